// Package shutdown coordinates process termination.
//
// Hooks run in reverse registration order once SIGINT or SIGTERM arrives
// or the parent context is cancelled, all under one deadline:
//
//	h := shutdown.NewHandler(15*time.Second, log)
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown
