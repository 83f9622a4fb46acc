// Package extract pulls one sensor's readings for a time window out of the
// store and writes them to a data file the renderer can plot.
//
// Sources:
//   - SQLSource reads the collector's numeric_data table (MySQL, SQLite,
//     PostgreSQL) in either the interval or the point layout.
//   - InfluxSource reads an InfluxDB 2.x bucket.
//   - TSDBSource reads a VictoriaMetrics series.
//
// Data file format: a comment header line, then one tab-separated row per
// reading, oldest first.
//
//	# time	value
//	2026-03-15 10:00:00	10
//	2026-03-15 11:00:00	12.5
package extract
