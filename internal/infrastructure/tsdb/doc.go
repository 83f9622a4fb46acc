// Package tsdb reads sensor series from VictoriaMetrics.
//
// Readings written in InfluxDB line protocol (measurement numeric_data,
// tag sensor, field value) appear in VictoriaMetrics as the series
// numeric_data_value{sensor="11"}. This package fetches such a series
// over the Prometheus query_range API. It uses only net/http.
//
// # Usage
//
//	client, err := tsdb.Connect(ctx, cfg.TSDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	samples, err := client.QuerySensor(ctx, 11, from, to)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package tsdb
