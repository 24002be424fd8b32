// Package settings is the host settings store and the merged view the
// notification engine reads from.
//
// Catalog defaults are never copied into the store: every read merges the
// stored overrides on top of catalog.Defaults(), so edits take effect on the
// next notification without any cache invalidation.
//
// Drivers:
//   - "file": a JSON document guarded by an flock lock file
//   - "sqlite": one row per top-level key (build with -tags sqlite)
package settings
