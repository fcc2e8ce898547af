// Package sidecar implements the sidecar synchronization feature.
//
// It wires the pieces of the reconciliation engine together: the transport
// supplies raw sidecar bytes from the device tree, the luatable codec
// decodes them, the field catalog extracts typed values, the reconcile
// pipeline gates and applies updates against the library store, and the
// outcomes aggregate into a report.
//
// # Components
//
//   - Service: orchestrates the forward sync (device to library), the
//     reverse sync (push missing sidecars back to the device), and remote
//     progress merging.
//   - Handler: exposes HTTP endpoints for triggering syncs.
//   - Feature: registers the feature with the application loader.
//
// # HTTP Endpoints
//
//   - POST /sidecar/sync        : sync every device book into the library.
//   - POST /sidecar/sync/:uuid  : sync a single book.
//   - POST /sidecar/push        : create sidecars for books missing one.
package sidecar
