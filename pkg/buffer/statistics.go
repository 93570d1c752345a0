package buffer

import (
	"sync/atomic"
	"time"
)

// Statistics counts channel operations. Counters are updated atomically and
// may be read while the channel is in use.
type Statistics struct {
	sends     atomic.Int64
	receives  atomic.Int64
	overflows atomic.Int64
	drops     atomic.Int64
	maxDepth  atomic.Int64
	startTime time.Time
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

func (s *Statistics) send()     { s.sends.Add(1) }
func (s *Statistics) receive()  { s.receives.Add(1) }
func (s *Statistics) overflow() { s.overflows.Add(1) }
func (s *Statistics) drop()     { s.drops.Add(1) }

func (s *Statistics) observeDepth(depth int) {
	d := int64(depth)
	for {
		cur := s.maxDepth.Load()
		if d <= cur || s.maxDepth.CompareAndSwap(cur, d) {
			return
		}
	}
}

// Sends returns the number of items accepted into the channel.
func (s *Statistics) Sends() int64 { return s.sends.Load() }

// Receives returns the number of items taken out through Recv.
func (s *Statistics) Receives() int64 { return s.receives.Load() }

// Overflows returns how often a send found the channel full.
func (s *Statistics) Overflows() int64 { return s.overflows.Load() }

// Drops returns the number of items discarded by the overflow policy.
func (s *Statistics) Drops() int64 { return s.drops.Load() }

// MaxDepth returns the highest depth observed after a send.
func (s *Statistics) MaxDepth() int64 { return s.maxDepth.Load() }

// DropRate returns drops over attempted sends (0.0 to 1.0).
func (s *Statistics) DropRate() float64 {
	attempts := s.Sends() + s.Drops()
	if attempts == 0 {
		return 0.0
	}
	return float64(s.Drops()) / float64(attempts)
}

// Uptime returns how long the channel has existed.
func (s *Statistics) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// StatsSummary is a point-in-time copy of Statistics.
type StatsSummary struct {
	Sends     int64         `json:"sends"`
	Receives  int64         `json:"receives"`
	Overflows int64         `json:"overflows"`
	Drops     int64         `json:"drops"`
	MaxDepth  int64         `json:"max_depth"`
	DropRate  float64       `json:"drop_rate"`
	Uptime    time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Sends:     s.Sends(),
		Receives:  s.Receives(),
		Overflows: s.Overflows(),
		Drops:     s.Drops(),
		MaxDepth:  s.MaxDepth(),
		DropRate:  s.DropRate(),
		Uptime:    s.Uptime(),
	}
}
