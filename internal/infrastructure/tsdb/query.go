package tsdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Sample is one point of a range query result.
type Sample struct {
	Time  time.Time
	Value float64
}

// QuerySensor returns the samples of one sensor's series in [from, to] at
// the configured step, ordered by time.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - sensorID: Value of the sensor label
//   - from, to: Inclusive time range
//
// Returns:
//   - []Sample: Samples in ascending time order
//   - error: ErrNotConnected or a wrapped ErrQueryFailed
func (c *Client) QuerySensor(ctx context.Context, sensorID int, from, to time.Time) ([]Sample, error) {
	if c == nil || !c.IsConnected() {
		return nil, ErrNotConnected
	}
	query := sensorSelector(c.cfgMetric(), c.cfgLabel(), sensorID)

	raw, err := c.QueryRange(ctx, query, from, to, c.cfgStep())
	if err != nil {
		return nil, err
	}

	samples, err := parseMatrix(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: sensor %d: %w", ErrQueryFailed, sensorID, err)
	}
	return samples, nil
}

func (c *Client) cfgMetric() string {
	if c.cfg.Metric == "" {
		return "numeric_data_value"
	}
	return c.cfg.Metric
}

func (c *Client) cfgLabel() string {
	if c.cfg.SensorLabel == "" {
		return "sensor"
	}
	return c.cfg.SensorLabel
}

func (c *Client) cfgStep() time.Duration {
	if c.cfg.Step <= 0 {
		return time.Minute
	}
	return c.cfg.Step
}

// sensorSelector builds a PromQL series selector such as
// numeric_data_value{sensor="11"}.
func sensorSelector(metric, label string, sensorID int) string {
	return fmt.Sprintf("%s{%s=%q}", metric, label, strconv.Itoa(sensorID))
}

// queryResponse is the subset of the Prometheus API response we read.
type queryResponse struct {
	Status    string `json:"status"`
	ErrorType string `json:"errorType"`
	Error     string `json:"error"`
	Data      struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Values [][2]json.RawMessage `json:"values"`
		} `json:"result"`
	} `json:"data"`
}

// parseMatrix decodes a query_range response. Values of all returned
// series are merged and sorted by time.
func parseMatrix(raw json.RawMessage) ([]Sample, error) {
	var resp queryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("status %q: %s", resp.Status, resp.Error)
	}
	if resp.Data.ResultType != "" && resp.Data.ResultType != "matrix" {
		return nil, fmt.Errorf("unexpected result type %q", resp.Data.ResultType)
	}

	var samples []Sample
	for _, series := range resp.Data.Result {
		for _, pair := range series.Values {
			var ts float64
			if err := json.Unmarshal(pair[0], &ts); err != nil {
				return nil, fmt.Errorf("decoding timestamp: %w", err)
			}
			var text string
			if err := json.Unmarshal(pair[1], &text); err != nil {
				return nil, fmt.Errorf("decoding value: %w", err)
			}
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing value %q: %w", text, err)
			}
			sec, frac := math.Modf(ts)
			samples = append(samples, Sample{
				Time:  time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(),
				Value: value,
			})
		}
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})
	return samples, nil
}

// QueryRange executes a PromQL range query against VictoriaMetrics.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: PromQL query string
//   - start: Start time for the range
//   - end: End time for the range
//   - step: Query resolution step
//
// Returns:
//   - json.RawMessage: Raw Prometheus API JSON response
//   - error: nil on success, otherwise the query error
func (c *Client) QueryRange(ctx context.Context, query string, start, end time.Time, step time.Duration) (json.RawMessage, error) {
	if c == nil || !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("tsdb query is required")
	}
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end must be after start")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("start", formatUnixSeconds(start))
	params.Set("end", formatUnixSeconds(end))
	params.Set("step", formatStepSeconds(step))

	return c.doQuery(ctx, "/api/v1/query_range", params)
}

// doQuery executes a query request and returns the raw response body.
func (c *Client) doQuery(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	endpoint := c.url + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: executing query: %w", ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	const maxResponseSize = 10 << 20 // 10 MB
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrQueryFailed, resp.StatusCode)
	}

	return json.RawMessage(body), nil
}

// formatUnixSeconds converts a timestamp to a seconds-since-epoch string.
func formatUnixSeconds(t time.Time) string {
	seconds := float64(t.UnixNano()) / float64(time.Second)
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// formatStepSeconds converts a step duration to a Prometheus-compatible seconds string.
func formatStepSeconds(step time.Duration) string {
	return strconv.FormatFloat(step.Seconds(), 'f', -1, 64)
}
