package management

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	collectorNamespace = "cachestats"
	collectorSubsystem = "management"
)

// Collector exports every live registration as Prometheus metrics labelled by
// namespace and name. Values are read at scrape time from one snapshot per view.
type Collector struct {
	registry      *Registry
	descs         [attributeCount]*prometheus.Desc
	registrations *prometheus.Desc
}

// NewCollector creates a collector over the registry.
func NewCollector(registry *Registry) *Collector {
	c := &Collector{
		registry: registry,
		registrations: prometheus.NewDesc(
			prometheus.BuildFQName(collectorNamespace, collectorSubsystem, "registrations"),
			"Number of registered caches",
			nil, nil),
	}
	for i := Attribute(0); i < attributeCount; i++ {
		row := attributeTable[i]
		c.descs[i] = prometheus.NewDesc(
			prometheus.BuildFQName(collectorNamespace, collectorSubsystem, row.metric),
			row.help,
			[]string{"namespace", "name"}, nil)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.registrations
	for _, desc := range c.descs {
		ch <- desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	views := c.registry.Views()
	ch <- prometheus.MustNewConstMetric(c.registrations, prometheus.GaugeValue, float64(len(views)))

	for _, view := range views {
		snap, err := view.Snapshot()
		if err != nil {
			// unregistered between listing and reading
			continue
		}
		for i := Attribute(0); i < attributeCount; i++ {
			ch <- prometheus.MustNewConstMetric(c.descs[i], attributeTable[i].valueType,
				toFloat(i.value(snap)), view.key.Namespace, view.key.Name)
		}
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case uint64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
