// Package errors provides the AppError type shared by every mobilitykit package.
//
// Codes map the failure classes of the provider lifecycle and routing layer:
// CONFIGURATION_ERROR and CONSTRUCTION_FAILED for provider definitions,
// SOURCE_FAILURE for provider source enumeration, TECHNICAL_ERROR for routing
// requests a backend cannot serve.
package errors
