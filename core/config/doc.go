// Package config provides configuration management for the sidecar sync
// service.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Database: library database connection details (sqlite or mysql)
//   - Transport: how the device filesystem is reached (local mount or S3/MinIO)
//   - Sync: reconciliation behavior and library column mappings
//   - Progress: remote reading-progress server credentials
//   - Log: logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
