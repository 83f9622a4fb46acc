// Package influxdb reads sensor series from InfluxDB 2.x.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, health monitoring and a single range query per sensor.
//
// # Data model
//
// Each reading is a point in one measurement (default numeric_data),
// tagged with the sensor id (default tag "sensor") and carrying the value
// in one field (default "value").
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	points, err := client.QuerySensor(ctx, 11, from, to)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package influxdb
