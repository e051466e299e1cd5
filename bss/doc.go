// Package bss annotates bike-share stations with live stand availability.
//
// Providers are looked up in a provider.Registry, dynamic ones first. The
// first provider whose Handles accepts a station POI answers for it.
package bss
