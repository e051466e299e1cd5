// Package server runs the gin engine behind the admin surface.
//
//	srv := server.New(server.Config{Addr: ":8081"}, log)
//	srv.ApplyMiddleware()
//	srv.Engine().GET("/status", handler)
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
//	defer srv.Stop(context.Background())
package server
