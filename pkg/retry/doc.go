// Package retry runs an operation on an exponential backoff schedule.
//
// Retry decisions follow the errors package: an error classified as invalid or
// fatal is returned immediately, anything else is retried until the attempts
// are used up or the context ends.
//
//	err := retry.Do(ctx, retry.Startup(), func() error {
//		return client.Connect(ctx)
//	})
//
// cachestats uses it to ride out a NATS server that is still starting, and to
// repeat query requests that found no responder yet.
package retry
