package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/config"
)

// ChartPayload announces one rendered chart image.
type ChartPayload struct {
	RunID     string    `json:"run_id"`
	Chart     string    `json:"chart"`
	Title     string    `json:"title"`
	Interval  string    `json:"interval"`
	Path      string    `json:"path"`
	Series    int       `json:"series"`
	Points    int       `json:"points"`
	Timestamp time.Time `json:"timestamp"`
}

// RunPayload summarises one interval run.
type RunPayload struct {
	RunID      string    `json:"run_id"`
	Interval   string    `json:"interval"`
	Rendered   int       `json:"rendered"`
	Failed     int       `json:"failed"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher is the subset of Client the Notifier needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Notifier publishes chart and run payloads as JSON.
type Notifier struct {
	pub      Publisher
	topics   Topics
	qos      byte
	retained bool
}

// NewNotifier creates a Notifier publishing through pub with the topic
// prefix, QoS and retain flag from cfg.
func NewNotifier(pub Publisher, cfg config.MQTTConfig) *Notifier {
	return &Notifier{
		pub:      pub,
		topics:   Topics{Prefix: cfg.TopicPrefix},
		qos:      byte(cfg.QoS), //nolint:gosec // validated to 0..2 by config
		retained: cfg.Retained,
	}
}

// PublishChart announces a rendered chart on Topics.Chart.
//
// Parameters:
//   - ctx: Checked before publishing; paho tokens carry their own timeout
//   - p: Chart payload
//
// Returns:
//   - error: Context, marshal or publish failure
func (n *Notifier) PublishChart(ctx context.Context, p ChartPayload) error {
	return n.publish(ctx, n.topics.Chart(p.Chart, p.Interval), p)
}

// PublishRun announces the outcome of a run on Topics.Run.
func (n *Notifier) PublishRun(ctx context.Context, p RunPayload) error {
	return n.publish(ctx, n.topics.Run(p.Interval), p)
}

func (n *Notifier) publish(ctx context.Context, topic string, v any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshalling payload: %w", ErrPublishFailed, err)
	}

	return n.pub.Publish(topic, payload, n.qos, n.retained)
}
