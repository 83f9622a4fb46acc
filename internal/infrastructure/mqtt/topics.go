package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefixCharts is the default base for chart topics.
const TopicPrefixCharts = "graylogic/charts"

// Topics provides builders for chart notification topics.
//
//	topics := mqtt.Topics{Prefix: "graylogic/charts"}
//	topics.Chart("outdoor", "day")
//	// Returns: "graylogic/charts/outdoor/day"
type Topics struct {
	// Prefix replaces TopicPrefixCharts when non-empty.
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return TopicPrefixCharts
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Chart returns the topic a rendered chart is announced on.
//
// Example: graylogic/charts/outdoor/day
func (t Topics) Chart(chart, interval string) string {
	return fmt.Sprintf("%s/%s/%s", t.prefix(), chart, interval)
}

// Run returns the topic the summary of one interval run is announced on.
//
// Example: graylogic/charts/run/day
//
// The catalog reserves the chart name "run" so the two never collide.
func (t Topics) Run(interval string) string {
	return fmt.Sprintf("%s/run/%s", t.prefix(), interval)
}

// AllCharts returns a wildcard matching every chart topic.
//
// Example: graylogic/charts/+/+
func (t Topics) AllCharts() string {
	return t.prefix() + "/+/+"
}

// ValidateTopic rejects empty topics and publish topics carrying wildcards
// or empty levels.
func ValidateTopic(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcard in publish topic %q", ErrInvalidTopic, topic)
	}
	for _, level := range strings.Split(topic, "/") {
		if level == "" {
			return fmt.Errorf("%w: empty level in %q", ErrInvalidTopic, topic)
		}
	}
	return nil
}
