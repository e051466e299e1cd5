// Package source provides provider.Source implementations.
//
//   - Memory: a mutable in-memory list.
//   - SQL: rows of the provider_records table, through gorm.
//   - Redis: a hash of JSON definitions.
//   - File: a YAML document, optionally watched with fsnotify.
//   - Coalesce: collapses concurrent enumerations of any source into one call.
//
// Every source returns an empty slice and a nil error when no provider is
// defined, and an error when it cannot tell.
package source
