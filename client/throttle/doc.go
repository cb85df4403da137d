// Package throttle provides an [http.RoundTripper] that rate-limits
// requests to the artifact server using a token bucket from
// [golang.org/x/time/rate].
//
// The client wires it in through client.WithThrottle; it can also wrap
// any transport directly:
//
//	rt, err := throttle.NewRoundTripper(
//		10, // requests per second
//		5,  // burst capacity
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//
// Requests beyond the burst block until a token is available or their
// context ends.
package throttle
