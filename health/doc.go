// Package health tracks the health of cachestats components and aggregates it
// into a single service status.
//
// A Status is healthy, degraded or unhealthy. Aggregate folds sub-statuses with
// the rule unhealthy > degraded > healthy. Monitor holds pushed statuses and
// pull-style checks:
//
//	monitor := health.NewMonitor()
//	monitor.Register("nats", func() health.Status {
//	    if client.IsHealthy() {
//	        return health.NewHealthy("nats", "connected")
//	    }
//	    return health.NewDegraded("nats", client.Status().String())
//	})
//
//	status := monitor.Check("cachestats")
//
// FromError strips URLs, paths, addresses and credentials from error text before
// it is placed in a status message.
package health
