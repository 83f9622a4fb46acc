// Gray Logic Charts - sensor history charts for the building dashboard
//
// graylogic-charts reads the recent history of configured sensors from the
// site's reading store and renders one PNG per chart for a trailing time
// window. It is started from cron, once per interval:
//
//	*/5 * * * *  graylogic-charts /var/www/charts day
//	0   * * * *  graylogic-charts /var/www/charts week
//
// Exit status:
//
//	0  every chart rendered
//	1  usage error (nothing was touched)
//	2  the store endpoint never appeared
//	3  any other failure, including one or more charts not rendered
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-charts/migrations"

	"github.com/nerrad567/gray-logic-charts/internal/availability"
	"github.com/nerrad567/gray-logic-charts/internal/catalog"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-charts/internal/interval"
	"github.com/nerrad567/gray-logic-charts/internal/lock"
	"github.com/nerrad567/gray-logic-charts/internal/pipeline"
	"github.com/nerrad567/gray-logic-charts/internal/render"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// configEnv names the configuration file.
	configEnv = "GRAYLOGIC_CHARTS_CONFIG"

	// defaultConfigPath is used when configEnv is unset. A missing file
	// means compiled-in defaults.
	defaultConfigPath = "/etc/graylogic/charts.yaml"

	// flushTimeout bounds metric export after the run.
	flushTimeout = 10 * time.Second
)

// Exit codes.
const (
	exitOK          = 0
	exitUsage       = 1
	exitUnavailable = 2
	exitFailure     = 3
)

// errUsage marks invalid command lines.
var errUsage = errors.New("usage")

func main() {
	// Interrupt or SIGTERM cancels the run; deferred cleanup still releases
	// the lock and temporary files.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], os.Stderr)
	cancel()

	if err != nil && !errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	case errors.Is(err, availability.ErrTimeout):
		return exitUnavailable
	default:
		return exitFailure
	}
}

// usage writes the command synopsis and the valid interval names.
func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: graylogic-charts <output_directory> <interval>\n")
	fmt.Fprintf(w, "  interval: one of %s\n", strings.Join(interval.Names(), ", "))
}

// parseArgs validates the command line before anything touches the disk.
func parseArgs(args []string) (outputDir string, iv interval.Interval, err error) {
	if len(args) != 2 {
		return "", interval.Interval{}, fmt.Errorf("%w: expected 2 arguments, got %d", errUsage, len(args))
	}
	if args[0] == "" {
		return "", interval.Interval{}, fmt.Errorf("%w: empty output directory", errUsage)
	}

	iv, err = interval.Resolve(args[1])
	if err != nil {
		return "", interval.Interval{}, fmt.Errorf("%w: %w", errUsage, err)
	}
	return args[0], iv, nil
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command line arguments without the program name
//   - stderr: Destination of the usage message
//
// Returns:
//   - error: nil when every chart was rendered
func run(ctx context.Context, args []string, stderr io.Writer) error {
	outputDir, iv, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		usage(stderr)
		return err
	}

	configPath := getConfigPath()
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	baseLog := logging.New(cfg.Logging, version)
	defer baseLog.Close() //nolint:errcheck // Nothing left to report to on exit
	log := baseLog.With("interval", iv.Name)
	log.Debug("starting graylogic-charts",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
		"driver", cfg.Store.Driver,
	)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}

	charts, err := catalog.FromConfig(cfg.Charts)
	if err != nil {
		return fmt.Errorf("loading chart catalog: %w", err)
	}

	renderer, err := render.New(render.OptionsFromConfig(cfg.Render, loc), nil)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	if r, ok := renderer.(interface{ SetLogger(render.Logger) }); ok {
		r.SetLogger(log)
	}

	guard, err := lock.NewGuard(lock.Config{
		Path:             cfg.Lock.Path,
		RetryDelay:       cfg.Lock.RetryDelay,
		StaleAfter:       cfg.Lock.StaleAfter,
		ReclaimDeadOwner: cfg.Lock.ReclaimDeadOwner,
	})
	if err != nil {
		return fmt.Errorf("creating lock guard: %w", err)
	}
	guard.SetLogger(log)

	waiter := availability.NewWaiter(availability.Config{
		Endpoint:   cfg.EndpointPath(),
		MaxRetries: cfg.Availability.MaxRetries,
		RetryDelay: cfg.Availability.RetryDelay,
	})
	waiter.SetLogger(log)

	recorder := metrics.NewRecorder(cfg.Metrics)

	var notifier pipeline.Notifier
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			// Notifications are optional; the run goes ahead without them.
			log.Warn("MQTT unavailable, notifications disabled", "error", mqttErr)
		} else {
			mqttClient.SetLogger(log)
			defer func() {
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			notifier = &mqttNotifier{notifier: mqtt.NewNotifier(mqttClient, cfg.MQTT)}
		}
	}

	driver, err := pipeline.New(pipeline.Config{
		Charts:       charts,
		TempDir:      cfg.Render.TempDir,
		Location:     loc,
		QueryTimeout: cfg.Store.QueryTimeout,
	}, pipeline.Deps{
		Waiter:   waiter,
		Open:     sourceOpener(cfg, loc, log),
		Guard:    guard,
		Renderer: renderer,
		Notifier: notifier,
		Metrics:  recorder,
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}
	driver.SetLogger(log)

	report, runErr := driver.Run(ctx, pipeline.Request{OutputDir: outputDir, Interval: iv})

	if recorder.Enabled() {
		// The run context may already be cancelled; the export gets its own.
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if flushErr := recorder.Flush(flushCtx); flushErr != nil {
			log.Warn("exporting metrics failed", "error", flushErr)
		}
		cancel()
	}

	if runErr != nil {
		log.Error("chart run failed",
			"run_id", report.RunID,
			"rendered", len(report.Rendered),
			"failed", len(report.Failed),
			"error", runErr,
		)
		return runErr
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CHARTS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}
