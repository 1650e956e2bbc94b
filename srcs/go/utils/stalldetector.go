package utils

import (
	"sync"
	"time"

	"github.com/lsds/ncclpg/srcs/go/log"
)

// WatchStall warns every period until the returned stop is called. A step
// that was reported as stalled is reported again when it recovers. stop is
// idempotent.
func WatchStall(name string, period time.Duration) (stop func()) {
	t0 := time.Now()
	tk := time.NewTicker(period)
	quit := make(chan struct{})
	warned := make(chan int, 1)
	go func() {
		var n int
		defer func() { warned <- n }()
		for {
			select {
			case <-tk.C:
				n++
				log.Warnf("%s stalled for %s", name, time.Since(t0).Round(time.Millisecond))
			case <-quit:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			tk.Stop()
			close(quit)
			if n := <-warned; n > 0 {
				log.Infof("%s recovered after %s and %s", name, time.Since(t0), Pluralize(n, "warning", "warnings"))
			}
		})
	}
}
