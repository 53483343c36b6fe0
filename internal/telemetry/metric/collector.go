package metric

import "github.com/prometheus/client_golang/prometheus"

// Counter is implemented by session stores that can report their size.
type Counter interface {
	Count() int
}

// Collector reports the number of stored sessions at scrape time.
type Collector struct {
	store Counter
	desc  *prometheus.Desc
}

// NewCollector creates a collector over store.
func NewCollector(store Counter) *Collector {
	return &Collector{
		store: store,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "stored"),
			"Sessions currently held by the store",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(c.store.Count()))
}
