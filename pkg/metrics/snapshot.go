package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-radio/txwindow/pkg/stats"
)

var dropReasons = []stats.DropReason{
	stats.DropWindowClosed,
	stats.DropOverflow,
	stats.DropReceiveOnly,
	stats.DropRequeueFailed,
}

func desc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
}

// snapshotCollector reads one statistics snapshot per scrape.
type snapshotCollector struct {
	src Source

	open         *prometheus.Desc
	queueLength  *prometheus.Desc
	queued       *prometheus.Desc
	dropped      *prometheus.Desc
	expired      *prometheus.Desc
	overflows    *prometheus.Desc
	transmitted  *prometheus.Desc
	queueTimeMax *prometheus.Desc
	queueTimeAvg *prometheus.Desc
}

func newSnapshotCollector(src Source) *snapshotCollector {
	return &snapshotCollector{
		src:          src,
		open:         desc("window_open", "1 if the effective window is open."),
		queueLength:  desc("queue_length", "Packets currently queued."),
		queued:       desc("queued_total", "Packets accepted into the queue."),
		dropped:      desc("dropped_total", "Packets discarded, by reason.", "reason"),
		expired:      desc("expired_total", "Queued packets discarded after expiry."),
		overflows:    desc("overflow_total", "Enqueue attempts rejected by a full queue."),
		transmitted:  desc("transmitted_total", "Packets handed to the radio, by priority class.", "priority"),
		queueTimeMax: desc("queue_time_max_seconds", "Longest time a packet waited in the queue."),
		queueTimeAvg: desc("queue_time_avg_seconds", "Average time packets waited in the queue."),
	}
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
	ch <- c.queueLength
	ch <- c.queued
	ch <- c.dropped
	ch <- c.expired
	ch <- c.overflows
	ch <- c.transmitted
	ch <- c.queueTimeMax
	ch <- c.queueTimeAvg
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Statistics()

	open := 0.0
	if c.src.IsOpen() {
		open = 1
	}
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, open)
	ch <- prometheus.MustNewConstMetric(c.queueLength, prometheus.GaugeValue, float64(c.src.QueueLength()))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.CounterValue, float64(s.TotalQueued))
	for _, r := range dropReasons {
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped(r)), r.String())
	}
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(s.TotalExpired))
	ch <- prometheus.MustNewConstMetric(c.overflows, prometheus.CounterValue, float64(s.OverflowCount))
	ch <- prometheus.MustNewConstMetric(c.transmitted, prometheus.CounterValue, float64(s.HighPriorityTransmitted), "high")
	ch <- prometheus.MustNewConstMetric(c.transmitted, prometheus.CounterValue, float64(s.NormalPriorityTransmitted), "normal")
	ch <- prometheus.MustNewConstMetric(c.queueTimeMax, prometheus.GaugeValue, s.MaxQueueTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.queueTimeAvg, prometheus.GaugeValue, s.AvgQueueTime().Seconds())
}
