// Package store caches built gradient fields in SQLite so a renderer can
// reopen a dataset without recomputing its gradients. It uses the pure-Go
// modernc.org/sqlite driver; fields are stored as snapshots keyed by name.
package store
