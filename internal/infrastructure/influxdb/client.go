package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/config"
)

// defaultPingTimeout bounds one health check.
const defaultPingTimeout = 5 * time.Second

// Point is one reading returned by a query.
type Point struct {
	Time  time.Time
	Value float64
}

// Client wraps the InfluxDB v2 client for reading sensor series.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	cfg      config.InfluxDBConfig

	// connected tracks current connection state.
	connected bool
	mu        sync.RWMutex
}

// Connect establishes a connection to the InfluxDB server.
//
// It performs the following setup:
//  1. Creates the client with token authentication
//  2. Prepares the query API for the configured organisation
//  3. Verifies connectivity with HealthCheck
//
// Parameters:
//   - ctx: Context for cancellation of the initial ping
//   - cfg: InfluxDB configuration
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If the connection fails
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: no url configured", ErrConnectionFailed)
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	c := &Client{
		client:    client,
		queryAPI:  client.QueryAPI(cfg.Org),
		cfg:       cfg,
		connected: true,
	}

	if err := c.HealthCheck(ctx); err != nil {
		c.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return c, nil
}

// Close shuts down the InfluxDB connection.
//
// Returns:
//   - error: nil (InfluxDB client Close doesn't return errors)
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.client.Close()
	return nil
}

// HealthCheck verifies the InfluxDB connection is alive and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}

	return nil
}

// IsConnected returns the current connection state.
//
// Note: This reflects the last known state. For reliability,
// use HealthCheck which performs an active ping.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// QuerySensor returns the readings of one sensor in [from, to], ordered
// by time.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - sensorID: Value of the sensor tag
//   - from, to: Inclusive time range
//
// Returns:
//   - []Point: Readings in ascending time order
//   - error: ErrNotConnected or a wrapped ErrQueryFailed
func (c *Client) QuerySensor(ctx context.Context, sensorID int, from, to time.Time) ([]Point, error) {
	if c == nil || !c.IsConnected() {
		return nil, ErrNotConnected
	}

	result, err := c.queryAPI.Query(ctx, buildFluxQuery(c.cfg, sensorID, from, to))
	if err != nil {
		return nil, fmt.Errorf("%w: sensor %d: %w", ErrQueryFailed, sensorID, err)
	}
	defer result.Close()

	var points []Point
	for result.Next() {
		record := result.Record()
		value, ok := toFloat(record.Value())
		if !ok {
			continue
		}
		points = append(points, Point{Time: record.Time(), Value: value})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: sensor %d: %w", ErrQueryFailed, sensorID, err)
	}

	return points, nil
}

// buildFluxQuery builds the range query for one sensor. range() stops
// are exclusive, so the stop is moved one nanosecond past to.
func buildFluxQuery(cfg config.InfluxDBConfig, sensorID int, from, to time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", fluxString(cfg.Bucket))
	fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n",
		from.UTC().Format(time.RFC3339Nano), to.Add(time.Nanosecond).UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s)\n", fluxString(cfg.Measurement))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r[%s] == %s)\n", fluxString(cfg.SensorTag), fluxString(strconv.Itoa(sensorID)))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._field == %s)\n", fluxString(cfg.Field))
	b.WriteString("  |> keep(columns: [\"_time\", \"_value\"])\n")
	b.WriteString("  |> sort(columns: [\"_time\"])")
	return b.String()
}

// fluxString quotes s as a Flux string literal.
func fluxString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
