// Package database provides SQL store connectivity for Gray Logic Charts.
//
// This package manages:
//   - Opening MySQL (socket or TCP), SQLite and Postgres stores
//   - Placeholder rebinding so queries are written once with ?
//   - Health checks and lifecycle management
//   - SQLite schema migrations for standalone installs and tests
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Target() never includes the password, so it is safe to log
//   - SQLite stores are opened read-only unless migrations are requested
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Driver: database.DriverMySQL,
//	    Socket: "/var/run/mysqld/mysqld.sock",
//	    User:   "charts",
//	    Name:   "ems_data",
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
package database
