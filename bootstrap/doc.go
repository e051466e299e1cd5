// Package bootstrap assembles a mobilityd process from its configuration.
//
// NewApp turns a config.Config into the running pieces: one provider
// registry per family (bss, street_network) fed by the configured source,
// the family managers built on top of them, and the optional admin server.
//
//	cfg, _ := config.Load("mobilityd")
//	app, err := bootstrap.NewApp(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Run starts file watchers and the admin server, blocks until SIGINT, SIGTERM
// or context cancellation, then shuts everything down in reverse order.
package bootstrap
