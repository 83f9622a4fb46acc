// Package mqtt publishes chart notifications to an MQTT broker.
//
// This package manages:
//   - Connection to a Mosquitto broker for the length of one run
//   - Message publishing with QoS guarantees
//   - Topic builders for chart and run announcements
//   - JSON payloads for rendered charts and run summaries
//
// # Topics
//
//	graylogic/charts/{chart}/{interval}   one message per rendered image
//	graylogic/charts/run/{interval}       one summary per run
//
// Messages are retained by default so a dashboard that subscribes late
// still sees the newest image of every chart.
//
// # Security Considerations
//
//   - TLS is recommended for brokers outside the host (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	notifier := mqtt.NewNotifier(client, cfg.MQTT)
//	err = notifier.PublishChart(ctx, mqtt.ChartPayload{Chart: "outdoor", Interval: "day"})
package mqtt
