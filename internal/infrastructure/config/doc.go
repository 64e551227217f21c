// Package config handles loading and validating colorbridge configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables (MATRIX_HOST, GATEWAY_HOST, ...)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The chat token should be set via the environment, not the file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv("COLORBRIDGE_CONFIG"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Gateway.Host)
package config
