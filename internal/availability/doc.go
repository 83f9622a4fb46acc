// Package availability waits for the sensor store to come up.
//
// At boot the database may start after the chart job is first scheduled.
// The waiter polls for the store's endpoint (a MySQL socket or a SQLite
// file) with a fixed delay and a bounded number of attempts. There is no
// backoff and no jitter.
package availability
