// Package config handles loading and validating Gray Logic Charts configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The defaults reproduce a classic single-box install: MySQL reached over
// its local socket, the ems_data schema, gnuplot for rendering and the
// built-in chart catalog.
//
// Security Considerations:
//   - Store and broker credentials should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.LoadOptional("/etc/graylogic/charts.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Store.Driver)
package config
