// Package server runs the operations HTTP listener that exposes liveness and readiness probes.
//
//	srv, err := server.New(server.Config{Addr: ":9090"}, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	g.Go(srv.Run(ctx, health.Handler(log, app.Healthcheck)))
//
// Serve blocks until the context is cancelled and then drains in-flight requests within
// Config.ShutdownTimeout.
package server
