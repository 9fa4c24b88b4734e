// Package tableio reads and writes the CSV tables exchanged between the
// smoothing and trajectory stages: the raw observation grid, the smoothed
// grid, and the trajectory set.
package tableio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/speedfield/internal/speedfield"
	"github.com/banshee-data/speedfield/internal/units"
)

// ErrMissingColumn is returned when a required column is absent from a header.
var ErrMissingColumn = errors.New("tableio: missing column")

// Column names of the written tables.
var (
	SmoothedColumns   = []string{"time_index", "space_index", "raw_speed", "time", "milemarker", "speed"}
	TrajectoryColumns = []string{"time", "space", "speed", "vehicle_id"}
)

// header maps column names, including accepted aliases, to positions.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	rec, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty table: %w", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(rec))
	for i, name := range rec {
		h[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	return h, nil
}

// index returns the position of the first of names present in the header.
func (h header) index(names ...string) (int, error) {
	for _, n := range names {
		if i, ok := h[n]; ok {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrMissingColumn, names[0])
}

func (h header) indices(groups ...[]string) ([]int, error) {
	out := make([]int, len(groups))
	for i, names := range groups {
		idx, err := h.index(names...)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	// Index columns written by dataframe tools may carry a ".0" suffix.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int(f), nil
}

// parseSpeed parses an optional speed. Blank and NaN mean missing.
func parseSpeed(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid speed %q", s)
	}
	if math.IsNaN(f) {
		return math.NaN(), false, nil
	}
	return f, true, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ReadRawGrid reads a (t_index, x_index, speed) table.
func ReadRawGrid(r io.Reader) ([]speedfield.RawObservation, error) {
	cr := csv.NewReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	cols, err := h.indices(
		[]string{"t_index", "time_index", "t"},
		[]string{"x_index", "space_index", "x"},
		[]string{"speed", "raw_speed"},
	)
	if err != nil {
		return nil, err
	}

	var out []speedfield.RawObservation
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ti, err := parseInt(rec[cols[0]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		xi, err := parseInt(rec[cols[1]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, ok, err := parseSpeed(rec[cols[2]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			out = append(out, speedfield.Observed(ti, xi, v))
		} else {
			out = append(out, speedfield.Missing(ti, xi))
		}
	}
	return out, nil
}

func (h header) has(name string) bool {
	_, ok := h[name]
	return ok
}

// ReadSmoothed reads a smoothed table with speeds in mph. Index columns may
// be named time_index/space_index or t_index/x_index; bare t and x are the
// indices when time and milemarker columns are also present, and the
// physical coordinates otherwise.
func ReadSmoothed(r io.Reader) (speedfield.SmoothedGrid, error) {
	cr := csv.NewReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	tIndex, timeCol := []string{"time_index", "t_index"}, []string{"time"}
	if h.has("time") {
		tIndex = append(tIndex, "t")
	} else {
		timeCol = append(timeCol, "t")
	}
	xIndex, mmCol := []string{"space_index", "x_index"}, []string{"milemarker"}
	if h.has("milemarker") {
		xIndex = append(xIndex, "x")
	} else {
		mmCol = append(mmCol, "x")
	}
	cols, err := h.indices(
		tIndex,
		xIndex,
		[]string{"raw_speed"},
		timeCol,
		mmCol,
		[]string{"speed"},
	)
	if err != nil {
		return nil, err
	}

	var out speedfield.SmoothedGrid
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var p speedfield.SmoothedPoint
		if p.TIndex, err = parseInt(rec[cols[0]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if p.XIndex, err = parseInt(rec[cols[1]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if p.Raw, p.HasRaw, err = parseSpeed(rec[cols[2]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if p.Time, err = parseFloat(rec[cols[3]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if p.Milemarker, err = parseFloat(rec[cols[4]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if p.Speed, err = parseFloat(rec[cols[5]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// WriteSmoothed writes g with speeds in mph. The smoothed table feeds the
// fleet generator, so it never carries converted units.
func WriteSmoothed(w io.Writer, g speedfield.SmoothedGrid) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SmoothedColumns); err != nil {
		return err
	}
	for _, p := range g {
		raw := math.NaN()
		if p.HasRaw {
			raw = p.Raw
		}
		rec := []string{
			strconv.Itoa(p.TIndex),
			strconv.Itoa(p.XIndex),
			formatFloat(raw),
			formatFloat(p.Time),
			formatFloat(p.Milemarker),
			formatFloat(p.Speed),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrajectories writes the flattened trajectory rows with speeds
// converted to unit. Stalled samples have a blank speed.
func WriteTrajectories(w io.Writer, set speedfield.TrajectorySet, unit string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TrajectoryColumns); err != nil {
		return err
	}
	for _, s := range set.Rows() {
		rec := []string{
			formatFloat(s.Time),
			formatFloat(s.Space),
			formatFloat(units.ConvertSpeed(s.Speed, unit)),
			strconv.Itoa(s.VehicleID),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTrajectories reads a trajectory table in mph and groups it by vehicle.
func ReadTrajectories(r io.Reader) (speedfield.TrajectorySet, error) {
	cr := csv.NewReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	cols, err := h.indices(
		[]string{"time"},
		[]string{"space"},
		[]string{"speed"},
		[]string{"vehicle_id", "v_id"},
	)
	if err != nil {
		return nil, err
	}

	var rows []speedfield.Sample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var s speedfield.Sample
		if s.Time, err = parseFloat(rec[cols[0]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.Space, err = parseFloat(rec[cols[1]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.Speed, _, err = parseSpeed(rec[cols[2]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.VehicleID, err = parseInt(rec[cols[3]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, s)
	}
	return speedfield.GroupRows(rows), nil
}
