// Command speedfield smooths a raw traffic speed grid and drives virtual
// vehicles through the result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/banshee-data/speedfield/internal/asm"
	"github.com/banshee-data/speedfield/internal/config"
	"github.com/banshee-data/speedfield/internal/db"
	"github.com/banshee-data/speedfield/internal/fsutil"
	"github.com/banshee-data/speedfield/internal/metrics"
	"github.com/banshee-data/speedfield/internal/monitoring"
	"github.com/banshee-data/speedfield/internal/report"
	"github.com/banshee-data/speedfield/internal/speedfield"
	"github.com/banshee-data/speedfield/internal/tableio"
	"github.com/banshee-data/speedfield/internal/trajectory"
	"github.com/banshee-data/speedfield/internal/units"
	"github.com/banshee-data/speedfield/internal/version"
)

var (
	inputPath     = flag.String("input", "", "Raw speed grid CSV (t_index,x_index,speed)")
	smoothedPath  = flag.String("smoothed", "", "Previously smoothed CSV (mph); skips smoothing")
	trajPath      = flag.String("trajectories", "", "Trajectory CSV to overlay on -plot/-html when -frequency is 0")
	configPath    = flag.String("config", "", "Tuning config (JSON or YAML); empty uses defaults and SPEEDFIELD_* env")
	outDir        = flag.String("out", "out", "Output directory")
	dbPath        = flag.String("db", "", "sqlite database for run history (optional)")
	runID         = flag.String("run", "", "Load the smoothed grid of this stored run (requires -db)")
	frequency     = flag.Float64("frequency", 0, "Seconds between vehicle spawns; 0 skips trajectory generation")
	hours         = flag.Float64("hours", 1, "Duration covered by spawns in hours")
	trajHz        = flag.Float64("traj-hz", 1, "Trajectory integration rate in Hz")
	workers       = flag.Int("workers", 0, "Override smoothing and fleet worker count (0 keeps config)")
	plotHeatmap   = flag.Bool("plot", false, "Write heatmap.png")
	htmlHeatmap   = flag.Bool("html", false, "Write heatmap.html")
	startTime     = flag.Int64("start-time", 0, "Unix time of t=0 for clock labels")
	timezone      = flag.String("tz", "UTC", "Time zone for clock labels")
	speedUnits    = flag.String("units", units.MPH, "Speed units for the trajectory table and summary (smoothed.csv stays mph): "+units.GetValidUnitsString())
	metricsListen = flag.String("metrics-listen", "", "Serve Prometheus metrics on this address, e.g. :9090")
	logLevel      = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logJSON       = flag.Bool("log-json", false, "Log as JSON")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

// options is the validated flag set.
type options struct {
	Input, Smoothed, Config, Out string
	Trajectories                 string
	DB, Run                      string
	Frequency, Hours, Hz         float64
	Workers                      int
	Plot, HTML                   bool
	StartUnix                    int64
	Timezone, Units              string
}

func optionsFromFlags() options {
	return options{
		Input: *inputPath, Smoothed: *smoothedPath, Config: *configPath, Out: *outDir,
		Trajectories: *trajPath,
		DB: *dbPath, Run: *runID,
		Frequency: *frequency, Hours: *hours, Hz: *trajHz,
		Workers: *workers,
		Plot:    *plotHeatmap, HTML: *htmlHeatmap,
		StartUnix: *startTime,
		Timezone:  *timezone, Units: *speedUnits,
	}
}

func (o options) validate() error {
	sources := 0
	for _, s := range []string{o.Input, o.Smoothed, o.Run} {
		if s != "" {
			sources++
		}
	}
	switch {
	case sources != 1:
		return errors.New("exactly one of -input, -smoothed or -run is required")
	case o.Run != "" && o.DB == "":
		return errors.New("-run requires -db")
	case !units.IsValid(o.Units):
		return fmt.Errorf("invalid -units %q, valid: %s", o.Units, units.GetValidUnitsString())
	case !units.IsTimezoneValid(o.Timezone):
		return fmt.Errorf("invalid -tz %q", o.Timezone)
	case o.Frequency < 0:
		return errors.New("-frequency must be >= 0")
	case o.Trajectories != "" && o.Frequency > 0:
		return errors.New("-trajectories overlays existing vehicles and cannot be combined with -frequency")
	case o.Workers < 0:
		return errors.New("-workers must be >= 0")
	}
	return nil
}

func setupLogging(level string, asJSON bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	if asJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	monitoring.SetLogger(log.Infof)
	monitoring.SetDebugLogger(log.Debugf)
	return nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if err := setupLogging(*logLevel, *logJSON); err != nil {
		log.Fatalf("invalid -log-level: %v", err)
	}

	if flag.Arg(0) == "runs" {
		if *dbPath == "" {
			log.Fatal("runs requires -db")
		}
		if err := db.RunRunsCommand(context.Background(), flag.Args()[1:], *dbPath, os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}
	if flag.Arg(0) == "migrate" {
		if *dbPath == "" {
			log.Fatal("migrate requires -db")
		}
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbPath, os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	opts := optionsFromFlags()
	if err := opts.validate(); err != nil {
		flag.Usage()
		log.Fatal(err)
	}

	var m *metrics.Collector
	if *metricsListen != "" {
		m = metrics.NewCollector()
		m.SetBuildInfo(version.Version, version.GitSHA)
		shutdown := m.Serve(*metricsListen)
		defer shutdown()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, fsutil.OSFileSystem{}, m, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("interrupted")
			os.Exit(130)
		}
		log.Fatal(err)
	}
}

// run executes one pipeline: load or smooth the grid, optionally generate a
// fleet, then write tables, plots and the run record.
func run(ctx context.Context, o options, fsys fsutil.FileSystem, m *metrics.Collector, stdout io.Writer) error {
	cfg, err := config.LoadTuningConfig(o.Config)
	if err != nil {
		return err
	}
	smoother := asm.NewSmoother(cfg, m)
	fleet := trajectory.NewFleet(cfg, m)
	if o.Workers > 0 {
		smoother.Workers = o.Workers
		fleet.Workers = o.Workers
	}

	var store *db.DB
	if o.DB != "" {
		if store, err = db.NewDB(o.DB); err != nil {
			return err
		}
		defer store.Close()
	}

	var (
		grid   speedfield.SmoothedGrid
		source string
		runRec db.Run
	)
	switch {
	case o.Run != "":
		if runRec, err = store.GetRun(ctx, o.Run); err != nil {
			return err
		}
		if grid, err = store.LoadSmoothed(ctx, o.Run); err != nil {
			return err
		}
		log.WithField("run", o.Run).Infof("loaded %d smoothed points", len(grid))
	case o.Smoothed != "":
		source = o.Smoothed
		if grid, err = tableio.ReadSmoothedFile(fsys, o.Smoothed); err != nil {
			return err
		}
	default:
		source = o.Input
		raw, err := tableio.ReadRawGridFile(fsys, o.Input)
		if err != nil {
			return err
		}
		log.WithField("input", o.Input).Infof("smoothing %d grid points", len(raw))
		if grid, err = smoother.Smooth(ctx, raw); err != nil {
			return err
		}
		if err := tableio.WriteSmoothedFile(fsys, filepath.Join(o.Out, "smoothed.csv"), grid); err != nil {
			return err
		}
	}

	if store != nil && o.Run == "" {
		if runRec, err = store.CreateRun(ctx, source, cfg); err != nil {
			return err
		}
		if err := store.InsertSmoothed(ctx, runRec.ID, grid); err != nil {
			return err
		}
		log.WithField("run", runRec.ID).Info("stored smoothed grid")
	}

	var set speedfield.TrajectorySet
	if o.Frequency > 0 {
		if set, err = fleet.Generate(ctx, grid, o.Frequency, o.Hours, o.Hz); err != nil {
			return err
		}
		if err := tableio.WriteTrajectoriesFile(fsys, filepath.Join(o.Out, "trajectories.csv"), set, o.Units); err != nil {
			return err
		}
		if store != nil {
			if err := store.InsertTrajectories(ctx, runRec.ID, set); err != nil {
				return err
			}
		}
		if err := report.Summarize(set).Write(stdout, o.Units); err != nil {
			return err
		}
	}

	if o.Frequency == 0 && (o.Plot || o.HTML) {
		if set, err = overlay(ctx, o, fsys, store); err != nil {
			return err
		}
	}

	if o.Plot {
		ho := report.DefaultHeatmapOptions()
		ho.Resolution = smoother.Resolution
		ho.StartUnix = o.StartUnix
		ho.Timezone = o.Timezone
		if err := report.SaveHeatmap(fsys, filepath.Join(o.Out, "heatmap.png"), grid, set, ho); err != nil {
			return err
		}
	}
	if o.HTML {
		if err := report.SaveHeatmapHTML(fsys, filepath.Join(o.Out, "heatmap.html"), "Smoothed speed", grid, set); err != nil {
			return err
		}
	}
	if runRec.ID != "" {
		fmt.Fprintf(stdout, "run: %s\n", runRec.ID)
	}
	return nil
}

// overlay loads existing trajectories to draw over the heatmap: the
// -trajectories table if given, otherwise the fleet stored with -run.
func overlay(ctx context.Context, o options, fsys fsutil.FileSystem, store *db.DB) (speedfield.TrajectorySet, error) {
	switch {
	case o.Trajectories != "":
		return tableio.ReadTrajectoriesFile(fsys, o.Trajectories)
	case o.Run != "":
		set, err := store.LoadTrajectories(ctx, o.Run)
		if err != nil {
			return nil, err
		}
		log.WithField("run", o.Run).Infof("overlaying %d stored trajectories", len(set))
		return set, nil
	}
	return nil, nil
}
