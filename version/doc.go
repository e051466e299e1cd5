// Package version exposes build information for mobilityd.
package version
