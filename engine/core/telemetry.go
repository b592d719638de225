package core

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/containers"
)

// cpuClock reads the CPU time consumed by the process so far.
var cpuClock = processCPUTime

// Sample is a single process resource reading.
type Sample struct {
	At         time.Time
	CPUPercent float64
	HeapAlloc  uint64
	Sys        uint64
	NumGC      uint32
	Goroutines int
}

// Telemetry samples process CPU and memory on a background goroutine. It never
// touches renderer state.
type Telemetry struct {
	SessionID uuid.UUID

	interval time.Duration

	mu      sync.Mutex
	history *containers.RingQueue[Sample]

	lastCPU  time.Duration
	lastWall time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTelemetry(interval time.Duration, history int) *Telemetry {
	if interval <= 0 {
		interval = time.Second
	}
	return &Telemetry{
		SessionID: uuid.New(),
		interval:  interval,
		history:   containers.NewRingQueue[Sample](history),
	}
}

// Start launches the sampler. It stops when ctx is done or Stop is called.
func (t *Telemetry) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	cpu, err := cpuClock()
	if err != nil {
		LogDebug("telemetry cannot read process cpu time, cpu stays at zero: %s", err)
	}
	t.lastCPU = cpu
	t.lastWall = time.Now()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := t.Sample()
				Logger().Debug("telemetry",
					"session", t.SessionID.String(),
					"cpu", s.CPUPercent,
					"heap", s.HeapAlloc,
					"goroutines", s.Goroutines)
			}
		}
	}()
}

func (t *Telemetry) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
}

// Sample takes a reading immediately and appends it to the history.
func (t *Telemetry) Sample() Sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	now := time.Now()
	s := Sample{
		At:         now,
		HeapAlloc:  ms.HeapAlloc,
		Sys:        ms.Sys,
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if cpu, err := cpuClock(); err == nil {
		wall := now.Sub(t.lastWall)
		if wall > 0 && !t.lastWall.IsZero() {
			s.CPUPercent = 100 * float64(cpu-t.lastCPU) / float64(wall)
		}
		t.lastCPU = cpu
	} else {
		LogDebug("telemetry cpu sample skipped: %s", err)
	}
	t.lastWall = now
	t.history.Push(s)
	return s
}

// History returns the retained samples, oldest first.
func (t *Telemetry) History() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history.Items()
}
