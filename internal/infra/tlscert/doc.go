// Package tlscert serves the HTTPS listener's key pair and reloads it when
// the files on disk change, so certificates can be rotated without a
// restart.
//
// Usage:
//
//	r, err := tlscert.New(certFile, keyFile, tlscert.WithLogger(log))
//	srv.SetTLSConfig(r.TLSConfig())
//	go r.Run(ctx)
package tlscert
