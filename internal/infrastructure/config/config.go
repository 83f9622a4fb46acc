package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers understood by the extractor.
const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverInfluxDB = "influxdb"

	// DriverVictoriaMetrics reads readings written in InfluxDB line
	// protocol to a VictoriaMetrics server, through its Prometheus API.
	DriverVictoriaMetrics = "victoriametrics"
)

// DefaultMySQLSocket is the socket of a local MySQL server. It is used
// only while no store host is configured.
const DefaultMySQLSocket = "/var/run/mysqld/mysqld.sock"

// Store table layouts.
const (
	// LayoutInterval is the collector schema: one row per value held
	// constant between starttime and endtime.
	LayoutInterval = "interval"

	// LayoutPoint is a plain (time, value) table.
	LayoutPoint = "point"
)

// Render engines.
const (
	EngineGnuplot = "gnuplot"
	EngineGonum   = "gonum"
)

// Config is the root configuration structure for Gray Logic Charts.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Store        StoreConfig        `yaml:"store"`
	Availability AvailabilityConfig `yaml:"availability"`
	Lock         LockConfig         `yaml:"lock"`
	Render       RenderConfig       `yaml:"render"`
	Charts       []ChartConfig      `yaml:"charts"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	TSDB         TSDBConfig         `yaml:"tsdb"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// StoreConfig describes where sensor readings are read from.
type StoreConfig struct {
	// Driver is one of mysql, sqlite3, postgres, influxdb or victoriametrics.
	Driver string `yaml:"driver"`

	// Socket is the unix socket of a local MySQL server.
	// When set in the file it takes precedence over Host/Port.
	Socket string `yaml:"socket"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// Name is the database (schema) name.
	Name string `yaml:"name"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// Table holds the numeric readings. Default: numeric_data
	Table string `yaml:"table"`

	// Layout is "interval" (sensor, value, starttime, endtime) or
	// "point" (sensor, value, time).
	Layout string `yaml:"layout"`

	// Timezone is the zone DATETIME columns are stored in and the
	// zone the chart axis is drawn in. Default: Local
	Timezone string `yaml:"timezone"`

	// Migrate creates the numeric_data schema in a SQLite store.
	// Only meaningful for the sqlite3 driver.
	Migrate bool `yaml:"migrate"`

	// QueryTimeout bounds a single series query.
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// AvailabilityConfig controls the wait for the store endpoint.
type AvailabilityConfig struct {
	// Endpoint is a filesystem path whose existence means the store is up.
	// Empty means "derive from the store" (MySQL socket, SQLite file) and
	// "do not wait" when nothing can be derived.
	Endpoint   string        `yaml:"endpoint"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// LockConfig controls the cross-process run lock.
type LockConfig struct {
	Path       string        `yaml:"path"`
	RetryDelay time.Duration `yaml:"retry_delay"`

	// StaleAfter reclaims a lock file older than this. 0 disables.
	StaleAfter time.Duration `yaml:"stale_after"`

	// ReclaimDeadOwner reclaims a lock whose recorded PID is gone.
	ReclaimDeadOwner bool `yaml:"reclaim_dead_owner"`
}

// RenderConfig contains chart rendering settings.
type RenderConfig struct {
	// Engine is "gnuplot" (external process) or "gonum" (in-process).
	Engine string `yaml:"engine"`

	// Binary is the path to the gnuplot executable.
	Binary string `yaml:"binary"`

	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Font      string `yaml:"font"`
	FontSize  int    `yaml:"font_size"`
	XLabel    string `yaml:"x_label"`
	LineWidth int    `yaml:"line_width"`

	// XTicRotation rotates x tick labels, in degrees.
	XTicRotation int `yaml:"xtic_rotation"`

	// Timeout bounds a single chart render.
	Timeout time.Duration `yaml:"timeout"`

	// TempDir is where per-run extract directories are created.
	// Empty uses the system default.
	TempDir string `yaml:"temp_dir"`
}

// ChartConfig defines one chart. An empty charts list selects the
// built-in catalog.
type ChartConfig struct {
	Title  string         `yaml:"title"`
	Output string         `yaml:"output"`
	YLabel string         `yaml:"y_label"`
	Series []SeriesConfig `yaml:"series"`
}

// SeriesConfig defines one line of a chart.
type SeriesConfig struct {
	Sensor int    `yaml:"sensor"`
	Label  string `yaml:"label"`
	Style  string `yaml:"style"`
}

// InfluxDBConfig contains InfluxDB connection and query settings.
// Used when store.driver is "influxdb".
type InfluxDBConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
	SensorTag   string `yaml:"sensor_tag"`
	Field       string `yaml:"field"`
}

// TSDBConfig contains VictoriaMetrics query settings.
// Used when store.driver is "victoriametrics".
type TSDBConfig struct {
	URL string `yaml:"url"`

	// Metric is the series name, e.g. numeric_data_value for a
	// line-protocol measurement numeric_data with field value.
	Metric string `yaml:"metric"`

	// SensorLabel is the label carrying the sensor id.
	SensorLabel string `yaml:"sensor_label"`

	// Step is the query resolution.
	Step time.Duration `yaml:"step"`
}

// MQTTConfig contains MQTT broker settings for chart notifications.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
	Retained    bool             `yaml:"retained"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MetricsConfig controls where run metrics are exported.
// Both targets are optional and may be combined.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
	TextfilePath   string `yaml:"textfile_path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_CHARTS_SECTION_KEY
// For example: GRAYLOGIC_CHARTS_STORE_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	var explicit struct {
		Store struct {
			Socket *string `yaml:"socket"`
		} `yaml:"store"`
	}
	if err := yaml.Unmarshal(data, &explicit); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(cfg, explicit.Store.Socket != nil)
}

// LoadOptional behaves like Load, except that a missing file yields the
// defaults (with environment overrides) instead of an error.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return finish(Default(), false)
}

// finish applies environment overrides and validates. A configured host
// replaces the default MySQL socket unless the file names a socket itself.
func finish(cfg *Config, socketSet bool) (*Config, error) {
	applyEnvOverrides(cfg)

	if cfg.Store.Host != "" && !socketSet {
		cfg.Store.Socket = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config reproducing the classic installation: MySQL
// on the local socket, schema ems_data, gnuplot rendering.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:       DriverMySQL,
			Socket:       DefaultMySQLSocket,
			Port:         3306,
			User:         "root",
			Name:         "ems_data",
			Table:        "numeric_data",
			Layout:       LayoutInterval,
			Timezone:     "Local",
			QueryTimeout: 30 * time.Second,
		},
		Availability: AvailabilityConfig{
			MaxRetries: 30,
			RetryDelay: time.Second,
		},
		Lock: LockConfig{
			Path:       "/tmp/graylogic-charts.lock",
			RetryDelay: 5 * time.Second,
		},
		Render: RenderConfig{
			Engine:       EngineGnuplot,
			Binary:       "gnuplot",
			Width:        1000,
			Height:       600,
			Font:         "times",
			FontSize:     16,
			XLabel:       "Datum",
			LineWidth:    2,
			XTicRotation: -45,
			Timeout:      60 * time.Second,
		},
		InfluxDB: InfluxDBConfig{
			Measurement: "numeric_data",
			SensorTag:   "sensor",
			Field:       "value",
		},
		TSDB: TSDBConfig{
			Metric:      "numeric_data_value",
			SensorLabel: "sensor",
			Step:        time.Minute,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-charts",
			},
			QoS:         1,
			TopicPrefix: "graylogic/charts",
			Retained:    true,
		},
		Metrics: MetricsConfig{
			Job: "graylogic_charts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Credentials belong here rather than in the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRAYLOGIC_CHARTS_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("GRAYLOGIC_CHARTS_STORE_HOST"); v != "" {
		cfg.Store.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_CHARTS_STORE_USER"); v != "" {
		cfg.Store.User = v
	}
	if v := os.Getenv("GRAYLOGIC_CHARTS_STORE_PASSWORD"); v != "" {
		cfg.Store.Password = v
	}
	if v := os.Getenv("GRAYLOGIC_CHARTS_STORE_NAME"); v != "" {
		cfg.Store.Name = v
	}

	if v := os.Getenv("GRAYLOGIC_CHARTS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("GRAYLOGIC_CHARTS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_CHARTS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GRAYLOGIC_CHARTS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case DriverMySQL:
		if c.Store.Socket == "" && c.Store.Host == "" {
			errs = append(errs, "store.socket or store.host is required for mysql")
		}
	case DriverPostgres:
		if c.Store.Host == "" {
			errs = append(errs, "store.host is required for postgres")
		}
	case DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for sqlite3")
		}
	case DriverInfluxDB:
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required for the influxdb driver")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required for the influxdb driver")
		}
	case DriverVictoriaMetrics:
		if c.TSDB.URL == "" {
			errs = append(errs, "tsdb.url is required for the victoriametrics driver")
		}
		if c.TSDB.Metric == "" {
			errs = append(errs, "tsdb.metric is required for the victoriametrics driver")
		}
		if c.TSDB.Step <= 0 {
			errs = append(errs, "tsdb.step must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of mysql, sqlite3, postgres, influxdb, victoriametrics", c.Store.Driver))
	}

	if c.IsSQL() {
		if c.Store.Table == "" {
			errs = append(errs, "store.table is required")
		} else if !isIdentifier(c.Store.Table) {
			errs = append(errs, "store.table must contain only letters, digits and underscores")
		}
		if c.Store.Layout != LayoutInterval && c.Store.Layout != LayoutPoint {
			errs = append(errs, "store.layout must be interval or point")
		}
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("store.timezone: %v", err))
	}

	if c.Availability.MaxRetries < 1 {
		errs = append(errs, "availability.max_retries must be at least 1")
	}
	if c.Availability.RetryDelay < 0 {
		errs = append(errs, "availability.retry_delay must not be negative")
	}

	if c.Lock.Path == "" {
		errs = append(errs, "lock.path is required")
	}
	if c.Lock.RetryDelay <= 0 {
		errs = append(errs, "lock.retry_delay must be positive")
	}

	switch c.Render.Engine {
	case EngineGnuplot:
		if c.Render.Binary == "" {
			errs = append(errs, "render.binary is required for gnuplot")
		}
	case EngineGonum:
	default:
		errs = append(errs, fmt.Sprintf("render.engine %q is not one of gnuplot, gonum", c.Render.Engine))
	}
	if c.Render.Width < 1 || c.Render.Height < 1 {
		errs = append(errs, "render.width and render.height must be positive")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsSQL reports whether the store is read through database/sql.
func (c *Config) IsSQL() bool {
	switch c.Store.Driver {
	case DriverMySQL, DriverSQLite, DriverPostgres:
		return true
	default:
		return false
	}
}

// Location returns the time zone named by store.timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Store.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Store.Timezone)
	}
}

// EndpointPath returns the filesystem path to wait for before querying
// the store, or "" when there is nothing to wait for.
func (c *Config) EndpointPath() string {
	if c.Availability.Endpoint != "" {
		return c.Availability.Endpoint
	}
	switch c.Store.Driver {
	case DriverMySQL:
		return c.Store.Socket
	case DriverSQLite:
		return c.Store.Path
	default:
		return ""
	}
}

// isIdentifier reports whether s is safe to splice into SQL as a table name.
func isIdentifier(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return s != ""
}
