// Package thttp runs HTTP servers under a context.
//
// A Server serves until the context passed to Run is closed and then shuts
// down gracefully. Request contexts inherit the values of the Run context, so
// tlog.Get(r.Context()) returns the server logger with the httpServer and
// remoteAddr fields added.
//
// Routing is left to the handler, usually a gorilla/mux router:
//
//	router := mux.NewRouter()
//	router.Handle("/metrics", promhttp.Handler())
//	server := thttp.NewServer(listener, thttp.Wrap(router, thttp.StandardMiddleware))
//	spawn("http", parallel.Fail, server.Run)
//
// A panic in a handler is answered with status 500 and makes Run return the
// panic as parallel.ErrPanic.
package thttp
