package logger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type componentStat struct {
	warns  int64
	errors int64
}

var (
	retryCount int64
	components sync.Map // map[string]*componentStat
)

func recordWarn(component string) {
	v, _ := components.LoadOrStore(component, &componentStat{})
	atomic.AddInt64(&v.(*componentStat).warns, 1)
}

func recordError(component string) {
	v, _ := components.LoadOrStore(component, &componentStat{})
	atomic.AddInt64(&v.(*componentStat).errors, 1)
}

// IncrementRetryCount records a connection retry for the periodic report.
func IncrementRetryCount() {
	atomic.AddInt64(&retryCount, 1)
}

// StartReport periodically logs a summary of warn/error counts per component
// together with the accumulated retry count. Counters reset after every
// report so each line covers one interval.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fields := Fields{
					"retries": atomic.SwapInt64(&retryCount, 0),
				}
				components.Range(func(key, value interface{}) bool {
					cs := value.(*componentStat)
					w := atomic.SwapInt64(&cs.warns, 0)
					e := atomic.SwapInt64(&cs.errors, 0)
					if w > 0 {
						fields[key.(string)+"_warns"] = w
					}
					if e > 0 {
						fields[key.(string)+"_errors"] = e
					}
					return true
				})
				log.WithComponent("report").WithFields(fields).Info("periodic summary")
			}
		}
	}()
}
