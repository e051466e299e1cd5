// Package logger provides structured logging for mobilitykit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers carrying structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("provider.registry")
//	log.Info("provider added", logger.Fields("provider_id", "velib"))
package logger
