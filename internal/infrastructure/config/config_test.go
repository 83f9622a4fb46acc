package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "charts.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	if cfg.Store.Driver != DriverMySQL {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, DriverMySQL)
	}
	if cfg.Store.Name != "ems_data" {
		t.Errorf("Store.Name = %q, want ems_data", cfg.Store.Name)
	}
	if cfg.Availability.MaxRetries != 30 {
		t.Errorf("Availability.MaxRetries = %d, want 30", cfg.Availability.MaxRetries)
	}
	if cfg.Availability.RetryDelay != time.Second {
		t.Errorf("Availability.RetryDelay = %v, want 1s", cfg.Availability.RetryDelay)
	}
	if cfg.Lock.StaleAfter != 0 || cfg.Lock.ReclaimDeadOwner {
		t.Error("stale lock reclaim should be disabled by default")
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: sqlite3
  path: /var/lib/ems/data.db
  layout: point
  timezone: UTC
availability:
  max_retries: 5
  retry_delay: 250ms
lock:
  path: /run/charts.lock
  retry_delay: 2s
  stale_after: 1h
render:
  engine: gonum
  width: 800
  height: 400
charts:
  - title: Outdoor
    output: outdoor
    y_label: "°C"
    series:
      - sensor: 11
        label: Outdoor
        style: smooth
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Driver != DriverSQLite || cfg.Store.Path != "/var/lib/ems/data.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Store.Layout != LayoutPoint {
		t.Errorf("Store.Layout = %q, want point", cfg.Store.Layout)
	}
	if cfg.Store.Table != "numeric_data" {
		t.Errorf("Store.Table = %q, default should survive partial file", cfg.Store.Table)
	}
	if cfg.Availability.MaxRetries != 5 || cfg.Availability.RetryDelay != 250*time.Millisecond {
		t.Errorf("Availability = %+v", cfg.Availability)
	}
	if cfg.Lock.StaleAfter != time.Hour {
		t.Errorf("Lock.StaleAfter = %v, want 1h", cfg.Lock.StaleAfter)
	}
	if cfg.Render.Engine != EngineGonum || cfg.Render.Width != 800 {
		t.Errorf("Render = %+v", cfg.Render)
	}
	if cfg.Render.FontSize != 16 {
		t.Errorf("Render.FontSize = %d, want default 16", cfg.Render.FontSize)
	}
	if len(cfg.Charts) != 1 || len(cfg.Charts[0].Series) != 1 {
		t.Fatalf("Charts = %+v", cfg.Charts)
	}
	if cfg.Charts[0].Series[0].Sensor != 11 || cfg.Charts[0].Series[0].Style != "smooth" {
		t.Errorf("Series = %+v", cfg.Charts[0].Series[0])
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/charts.yaml"); err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "store: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail for invalid YAML")
	}
}

func TestLoadOptional(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadOptional() error = %v", err)
		}
		if cfg.Store.Driver != DriverMySQL {
			t.Errorf("Store.Driver = %q, want defaults", cfg.Store.Driver)
		}
	})

	t.Run("invalid file is still an error", func(t *testing.T) {
		path := writeConfig(t, "store:\n  driver: oracle\n")
		if _, err := LoadOptional(path); err == nil {
			t.Fatal("LoadOptional() should fail on validation errors")
		}
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GRAYLOGIC_CHARTS_STORE_PASSWORD", "s3cret")
	t.Setenv("GRAYLOGIC_CHARTS_STORE_USER", "charts")
	t.Setenv("GRAYLOGIC_CHARTS_MQTT_PASSWORD", "mqtt-pass")
	t.Setenv("GRAYLOGIC_CHARTS_LOG_LEVEL", "warn")

	path := writeConfig(t, "store:\n  user: root\n  password: pass\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Password != "s3cret" {
		t.Errorf("Store.Password = %q, want env override", cfg.Store.Password)
	}
	if cfg.Store.User != "charts" {
		t.Errorf("Store.User = %q, want env override", cfg.Store.User)
	}
	if cfg.MQTT.Auth.Password != "mqtt-pass" {
		t.Errorf("MQTT.Auth.Password = %q, want env override", cfg.MQTT.Auth.Password)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestStoreHost_ReplacesDefaultSocket(t *testing.T) {
	t.Run("env host", func(t *testing.T) {
		t.Setenv("GRAYLOGIC_CHARTS_STORE_HOST", "db.example.lan")

		cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadOptional() error = %v", err)
		}
		if cfg.Store.Host != "db.example.lan" {
			t.Errorf("Store.Host = %q, want env override", cfg.Store.Host)
		}
		if cfg.Store.Socket != "" {
			t.Errorf("Store.Socket = %q, want empty so TCP is used", cfg.Store.Socket)
		}
		if got := cfg.EndpointPath(); got != "" {
			t.Errorf("EndpointPath() = %q, want nothing to wait for", got)
		}
	})

	t.Run("file host", func(t *testing.T) {
		path := writeConfig(t, "store:\n  host: db.example.lan\n  port: 3307\n")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Store.Socket != "" {
			t.Errorf("Store.Socket = %q, want empty so TCP is used", cfg.Store.Socket)
		}
	})

	t.Run("explicit socket wins", func(t *testing.T) {
		t.Setenv("GRAYLOGIC_CHARTS_STORE_HOST", "db.example.lan")
		path := writeConfig(t, "store:\n  socket: /run/mysqld/ems.sock\n")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got := cfg.EndpointPath(); got != "/run/mysqld/ems.sock" {
			t.Errorf("EndpointPath() = %q, want configured socket", got)
		}
	})

	t.Run("no host keeps default socket", func(t *testing.T) {
		cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadOptional() error = %v", err)
		}
		if got := cfg.EndpointPath(); got != DefaultMySQLSocket {
			t.Errorf("EndpointPath() = %q, want %q", got, DefaultMySQLSocket)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "oracle" },
			wantErr: "store.driver",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Store.Driver = DriverSQLite },
			wantErr: "store.path",
		},
		{
			name: "mysql without socket or host",
			mutate: func(c *Config) {
				c.Store.Socket = ""
				c.Store.Host = ""
			},
			wantErr: "store.socket",
		},
		{
			name:    "influxdb without url",
			mutate:  func(c *Config) { c.Store.Driver = DriverInfluxDB },
			wantErr: "influxdb.url",
		},
		{
			name:    "victoriametrics without url",
			mutate:  func(c *Config) { c.Store.Driver = DriverVictoriaMetrics },
			wantErr: "tsdb.url",
		},
		{
			name: "victoriametrics zero step",
			mutate: func(c *Config) {
				c.Store.Driver = DriverVictoriaMetrics
				c.TSDB.URL = "http://localhost:8428"
				c.TSDB.Step = 0
			},
			wantErr: "tsdb.step",
		},
		{
			name:    "table with sql in it",
			mutate:  func(c *Config) { c.Store.Table = "numeric_data; DROP TABLE x" },
			wantErr: "store.table",
		},
		{
			name:    "bad layout",
			mutate:  func(c *Config) { c.Store.Layout = "wide" },
			wantErr: "store.layout",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Store.Timezone = "Mars/Olympus" },
			wantErr: "store.timezone",
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.Availability.MaxRetries = 0 },
			wantErr: "availability.max_retries",
		},
		{
			name:    "missing lock path",
			mutate:  func(c *Config) { c.Lock.Path = "" },
			wantErr: "lock.path",
		},
		{
			name:    "non-positive lock delay",
			mutate:  func(c *Config) { c.Lock.RetryDelay = 0 },
			wantErr: "lock.retry_delay",
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.Render.Engine = "matplotlib" },
			wantErr: "render.engine",
		},
		{
			name: "mqtt bad qos",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: "mqtt.qos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestEndpointPath(t *testing.T) {
	cfg := Default()
	if got := cfg.EndpointPath(); got != "/var/run/mysqld/mysqld.sock" {
		t.Errorf("EndpointPath() = %q, want mysql socket", got)
	}

	cfg.Store.Driver = DriverSQLite
	cfg.Store.Path = "/data/ems.db"
	if got := cfg.EndpointPath(); got != "/data/ems.db" {
		t.Errorf("EndpointPath() = %q, want sqlite file", got)
	}

	cfg.Store.Driver = DriverPostgres
	if got := cfg.EndpointPath(); got != "" {
		t.Errorf("EndpointPath() = %q, want empty for postgres", got)
	}

	cfg.Availability.Endpoint = "/run/pg.ready"
	if got := cfg.EndpointPath(); got != "/run/pg.ready" {
		t.Errorf("EndpointPath() = %q, want explicit endpoint", got)
	}
}

func TestIsSQL(t *testing.T) {
	tests := map[string]bool{
		DriverMySQL:           true,
		DriverSQLite:          true,
		DriverPostgres:        true,
		DriverInfluxDB:        false,
		DriverVictoriaMetrics: false,
	}
	for driver, want := range tests {
		cfg := Default()
		cfg.Store.Driver = driver
		if got := cfg.IsSQL(); got != want {
			t.Errorf("IsSQL() for %s = %v, want %v", driver, got, want)
		}
	}
}
