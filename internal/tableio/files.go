package tableio

import (
	"fmt"
	"io"

	"github.com/banshee-data/speedfield/internal/fsutil"
	"github.com/banshee-data/speedfield/internal/speedfield"
)

// ReadRawGridFile reads a raw grid table from path.
func ReadRawGridFile(fsys fsutil.FileSystem, path string) ([]speedfield.RawObservation, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw grid: %w", err)
	}
	defer f.Close()
	raw, err := ReadRawGrid(f)
	if err != nil {
		return nil, fmt.Errorf("read raw grid %s: %w", path, err)
	}
	return raw, nil
}

// ReadSmoothedFile reads a smoothed table from path.
func ReadSmoothedFile(fsys fsutil.FileSystem, path string) (speedfield.SmoothedGrid, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open smoothed grid: %w", err)
	}
	defer f.Close()
	g, err := ReadSmoothed(f)
	if err != nil {
		return nil, fmt.Errorf("read smoothed grid %s: %w", path, err)
	}
	return g, nil
}

// ReadTrajectoriesFile reads a trajectory table from path.
func ReadTrajectoriesFile(fsys fsutil.FileSystem, path string) (speedfield.TrajectorySet, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trajectories: %w", err)
	}
	defer f.Close()
	set, err := ReadTrajectories(f)
	if err != nil {
		return nil, fmt.Errorf("read trajectories %s: %w", path, err)
	}
	return set, nil
}

// WriteSmoothedFile writes g to path in mph, creating parent directories.
func WriteSmoothedFile(fsys fsutil.FileSystem, path string, g speedfield.SmoothedGrid) error {
	return writeFile(fsys, path, func(w io.Writer) error { return WriteSmoothed(w, g) })
}

// WriteTrajectoriesFile writes set to path, creating parent directories.
func WriteTrajectoriesFile(fsys fsutil.FileSystem, path string, set speedfield.TrajectorySet, unit string) error {
	return writeFile(fsys, path, func(w io.Writer) error { return WriteTrajectories(w, set, unit) })
}

func writeFile(fsys fsutil.FileSystem, path string, write func(io.Writer) error) (err error) {
	f, err := fsutil.CreateAll(fsys, path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
