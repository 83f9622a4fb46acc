package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-charts/internal/extract"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/tsdb"
	"github.com/nerrad567/gray-logic-charts/internal/pipeline"
)

// sourceOpener returns the opener for the configured store driver.
// The connection is made only after the store endpoint has appeared.
func sourceOpener(cfg *config.Config, loc *time.Location, log *logging.Logger) pipeline.SourceOpener {
	return func(ctx context.Context) (extract.Source, func() error, error) {
		switch cfg.Store.Driver {
		case config.DriverInfluxDB:
			return openInfluxDB(ctx, cfg, log)
		case config.DriverVictoriaMetrics:
			return openTSDB(ctx, cfg, log)
		default:
			return openSQL(ctx, cfg, loc, log)
		}
	}
}

// openSQL connects to a MySQL, PostgreSQL or SQLite store.
func openSQL(ctx context.Context, cfg *config.Config, loc *time.Location, log *logging.Logger) (extract.Source, func() error, error) {
	migrate := cfg.Store.Migrate && cfg.Store.Driver == config.DriverSQLite

	db, err := database.Open(ctx, database.Config{
		Driver:    cfg.Store.Driver,
		Socket:    cfg.Store.Socket,
		Host:      cfg.Store.Host,
		Port:      cfg.Store.Port,
		User:      cfg.Store.User,
		Password:  cfg.Store.Password,
		Name:      cfg.Store.Name,
		Path:      cfg.Store.Path,
		ReadWrite: migrate,
		Location:  loc,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	log.Debug("database connected", "driver", db.Driver(), "target", db.Target())

	if migrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Debug("database migrations complete")
	}

	if err := db.HealthCheck(ctx, cfg.Store.Table); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, fmt.Errorf("checking store: %w", err)
	}

	source, err := extract.NewSQLSource(db, cfg.Store.Table, cfg.Store.Layout, loc)
	if err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, err
	}
	return source, db.Close, nil
}

// openInfluxDB connects to an InfluxDB 2.x store.
func openInfluxDB(ctx context.Context, cfg *config.Config, log *logging.Logger) (extract.Source, func() error, error) {
	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	log.Debug("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	return extract.NewInfluxSource(client), client.Close, nil
}

// openTSDB connects to a VictoriaMetrics store.
func openTSDB(ctx context.Context, cfg *config.Config, log *logging.Logger) (extract.Source, func() error, error) {
	client, err := tsdb.Connect(ctx, cfg.TSDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to VictoriaMetrics: %w", err)
	}
	log.Debug("VictoriaMetrics connected", "url", cfg.TSDB.URL, "metric", cfg.TSDB.Metric)
	return extract.NewTSDBSource(client), client.Close, nil
}

// mqttNotifier adapts mqtt.Notifier to pipeline.Notifier.
type mqttNotifier struct {
	notifier *mqtt.Notifier
}

// ChartRendered implements pipeline.Notifier.
func (n *mqttNotifier) ChartRendered(ctx context.Context, event pipeline.ChartEvent) error {
	return n.notifier.PublishChart(ctx, mqtt.ChartPayload{
		RunID:     event.RunID,
		Chart:     event.Chart,
		Title:     event.Title,
		Interval:  event.Interval,
		Path:      event.Path,
		Series:    event.Series,
		Points:    event.Points,
		Timestamp: event.RenderedAt.UTC(),
	})
}

// RunFinished implements pipeline.Notifier.
func (n *mqttNotifier) RunFinished(ctx context.Context, report pipeline.Report) error {
	return n.notifier.PublishRun(ctx, mqtt.RunPayload{
		RunID:      report.RunID,
		Interval:   report.Interval,
		Rendered:   len(report.Rendered),
		Failed:     len(report.Failed),
		DurationMS: report.Duration().Milliseconds(),
		Timestamp:  report.Finished.UTC(),
	})
}
