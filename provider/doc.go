// Package provider implements a generic registry of pluggable backends with
// hot reload.
//
// A Registry[T] merges providers enumerated by a Source with static (legacy)
// providers built once at startup. Reads refresh the registry at most once
// per interval: new ids and strictly newer definitions are constructed through
// the Factory, ids that vanished from the source are deleted, an empty
// enumeration clears the registry and a failing source leaves it untouched.
//
//	factory := provider.NewFactory[bss.Provider]()
//	factory.Register("gbfs", bss.NewGBFSFromArgs)
//
//	reg := provider.NewRegistry("bss", factory,
//	    provider.WithSource[bss.Provider](src),
//	    provider.WithInterval[bss.Provider](time.Minute),
//	)
//	for _, p := range reg.Providers(ctx) { ... }
//
// One bad definition never affects the others: construction errors are logged
// with the provider id and implementation reference, and the previous instance
// for that id keeps serving.
package provider
