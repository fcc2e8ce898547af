// Package database manages the connection to the library database.
//
// The library is a SQLite file by default; a MySQL server is supported for
// shared deployments. The package returns a configured *gorm.DB with silent
// GORM logging, pooled connections, and a verified ping.
package database
