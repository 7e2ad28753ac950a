// Package metrics exports deployment metrics in the Prometheus text format
// and probes free disk space.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/pushchain/confdeploy/internal/deploy"
	"github.com/shirou/gopsutil/v3/disk"
)

const namespace = "confdeploy"

// Collector accumulates deployment metrics in its own registry. When
// TextfilePath is set, every recorded outcome rewrites the file so a
// node-exporter textfile collector can pick it up.
type Collector struct {
	TextfilePath string

	mu         sync.Mutex
	registry   *prometheus.Registry
	total      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	lastResult *prometheus.GaugeVec
	lastTime   *prometheus.GaugeVec
}

// New creates a collector writing to textfilePath (empty disables export).
func New(textfilePath string) *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		TextfilePath: textfilePath,
		registry:     reg,
		total: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deployments_total",
			Help:      "Deployments run by this process, by result.",
		}, []string{"service", "operation", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deployment_duration_seconds",
			Help:      "Wall time of a deployment from snapshot to done.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"service", "operation"}),
		lastResult: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_deployment_success",
			Help:      "1 if the last deployment of a config succeeded, 0 otherwise.",
		}, []string{"service", "config"}),
		lastTime: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_deployment_timestamp_seconds",
			Help:      "Unix time the last deployment of a config started.",
		}, []string{"service", "config"}),
	}
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Record implements deploy.Recorder.
func (c *Collector) Record(o deploy.Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total.WithLabelValues(o.Service, string(o.Operation), string(o.Result)).Inc()
	c.duration.WithLabelValues(o.Service, string(o.Operation)).Observe(o.Duration.Seconds())
	success := 0.0
	if o.Succeeded() {
		success = 1
	}
	c.lastResult.WithLabelValues(o.Service, o.Config).Set(success)
	c.lastTime.WithLabelValues(o.Service, o.Config).Set(float64(o.StartedAt.Unix()))

	if c.TextfilePath == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(c.TextfilePath, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Disk is filesystem usage for the filesystem holding a path.
type Disk struct {
	Path        string
	Total       uint64
	Used        uint64
	Free        uint64
	UsedPercent float64
}

// DiskUsage reports usage of the filesystem containing path.
func DiskUsage(path string) (Disk, error) {
	st, err := disk.Usage(path)
	if err != nil {
		return Disk{}, fmt.Errorf("disk usage %s: %w", path, err)
	}
	return Disk{
		Path:        path,
		Total:       st.Total,
		Used:        st.Used,
		Free:        st.Free,
		UsedPercent: st.UsedPercent,
	}, nil
}
