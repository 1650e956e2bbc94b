package monitor

import (
	"io"
	"net/http"
	"time"

	"github.com/lsds/ncclpg/srcs/go/config"
	"github.com/lsds/ncclpg/srcs/go/log"
)

type Monitor interface {
	http.Handler

	// Collective records one issued collective moving n payload bytes.
	Collective(name string, n int64)

	GetRates(names []string) []float64

	WriteTo(w io.Writer)
}

var defaultMonitor Monitor

func init() {
	defaultMonitor = newMonitor(config.EnableMonitoring, config.MonitoringPeriod)
}

func GetMonitor() Monitor {
	return defaultMonitor
}

// New returns an enabled monitor, rates are refreshed every p if p > 0.
func New(p time.Duration) Monitor {
	return newMonitor(true, p)
}

type noopMonitor struct{}

func (m *noopMonitor) Collective(name string, n int64) {}

func (m *noopMonitor) GetRates(names []string) []float64 {
	log.Warnf("monitoring is not enabled")
	return make([]float64, len(names))
}

func (m *noopMonitor) ServeHTTP(w http.ResponseWriter, req *http.Request) {}

func (m *noopMonitor) WriteTo(w io.Writer) {}

type collectiveMetrics struct {
	counters *counterGroup
}

func newMonitor(enabled bool, p time.Duration) Monitor {
	if !enabled {
		return &noopMonitor{}
	}
	m := &collectiveMetrics{
		counters: newCounterGroup("ncclpg"),
	}
	if p > 0 {
		go m.start(p)
	}
	return m
}

func (m *collectiveMetrics) start(p time.Duration) {
	for range time.Tick(p) {
		m.counters.update(p)
	}
}

func (m *collectiveMetrics) Collective(name string, n int64) {
	c := m.counters.getOrCreate(name)
	c.calls.Add(1)
	c.bytes.Add(n)
}

func (m *collectiveMetrics) GetRates(names []string) []float64 {
	return m.counters.getRates(names)
}

func (m *collectiveMetrics) WriteTo(w io.Writer) {
	m.counters.WriteTo(w)
}

func (m *collectiveMetrics) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	m.WriteTo(w)
}
