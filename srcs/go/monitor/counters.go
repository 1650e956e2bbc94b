package monitor

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type accumulator struct {
	name  string
	value int64
}

func newAccumulator(name string) *accumulator {
	return &accumulator{
		name: name,
	}
}

func (a *accumulator) Add(n int64) int64 {
	return atomic.AddInt64(&a.value, n)
}

func (a *accumulator) Get() int64 {
	return atomic.LoadInt64(&a.value)
}

func (a *accumulator) WriteTo(w io.Writer) {
	fmt.Fprintf(w, "%s %d\n", a.name, a.Get())
}

type rate struct {
	sync.Mutex

	name   string
	prev   int64
	target *accumulator
	value  float64
}

func newRate(a *accumulator, name string) *rate {
	return &rate{
		name:   name,
		target: a,
	}
}

const (
	callsSuffix     = `calls_total`
	totalUnitSuffix = `bytes`
	rateUnitSuffix  = `bytes_per_sec`
	rateTimeUnit    = float64(time.Second)
)

func (r *rate) getValue() float64 {
	r.Lock()
	defer r.Unlock()
	return r.value
}

func (r *rate) update(p time.Duration) {
	now := r.target.Get()
	r.Lock()
	defer r.Unlock()
	r.value = float64(now-r.prev) / (float64(p) / rateTimeUnit)
	r.prev = now
}

func (r *rate) WriteTo(w io.Writer) {
	fmt.Fprintf(w, "%s %f\n", r.name, r.getValue())
}

// collectiveCounter tracks the calls and payload bytes of one collective.
type collectiveCounter struct {
	calls *accumulator
	bytes *accumulator
	r     *rate
}

func newCollectiveCounter(prefix string, labels string) *collectiveCounter {
	b := newAccumulator(prefix + "_total_" + totalUnitSuffix + labels)
	return &collectiveCounter{
		calls: newAccumulator(prefix + "_" + callsSuffix + labels),
		bytes: b,
		r:     newRate(b, prefix+"_rate_"+rateUnitSuffix+labels),
	}
}

func (c *collectiveCounter) WriteTo(w io.Writer) {
	c.calls.WriteTo(w)
	c.bytes.WriteTo(w)
	c.r.WriteTo(w)
}

type counterGroup struct {
	sync.Mutex

	prefix   string
	counters map[string]*collectiveCounter
}

func newCounterGroup(prefix string) *counterGroup {
	return &counterGroup{
		prefix:   prefix,
		counters: make(map[string]*collectiveCounter),
	}
}

func labelsOf(name string) string {
	return fmt.Sprintf(`{collective="%s"}`, name)
}

func (g *counterGroup) getOrCreate(name string) *collectiveCounter {
	labels := labelsOf(name)
	g.Lock()
	defer g.Unlock()
	c, ok := g.counters[labels]
	if !ok {
		c = newCollectiveCounter(g.prefix, labels)
		g.counters[labels] = c
	}
	return c
}

func (g *counterGroup) reset() {
	g.Lock()
	defer g.Unlock()
	for k := range g.counters {
		delete(g.counters, k)
	}
}

func (g *counterGroup) update(p time.Duration) {
	g.Lock()
	defer g.Unlock()
	for _, c := range g.counters {
		c.r.update(p)
	}
}

func (g *counterGroup) WriteTo(w io.Writer) {
	g.Lock()
	defer g.Unlock()
	var keys []string
	for k := range g.counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		g.counters[k].WriteTo(w)
	}
}

func (g *counterGroup) getRates(names []string) []float64 {
	g.Lock()
	defer g.Unlock()
	rates := make([]float64, len(names))
	for i, name := range names {
		if c, ok := g.counters[labelsOf(name)]; ok {
			rates[i] = c.r.getValue()
		}
	}
	return rates
}
