// Package gateway holds the pieces shared by the cachestats monitoring surfaces.
//
// The surfaces live in subpackages:
//
//   - gateway/http serves Prometheus metrics, health, attribute queries and a
//     websocket attribute stream on one HTTP listener.
//   - gateway/natsquery answers attribute queries over NATS request/reply.
//
// Both answer with management.QueryResponse, map error codes the same way and
// record query metrics under the transport labels defined here.
package gateway
