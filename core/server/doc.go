// Package server holds the HTTP server configuration shared by the start
// command and the auth middleware.
package server
