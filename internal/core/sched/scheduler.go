package sched

import (
	"time"

	"go.uber.org/zap"
)

// HandlerFunc is one scheduled tick body. now is the loop's wall clock and
// dt the handler's nominal interval in seconds: fixed-step simulation, not
// measured elapsed time.
type HandlerFunc func(now time.Time, dt float64)

type handler struct {
	name  string
	every time.Duration
	fn    HandlerFunc
	acc   time.Duration
	armed bool
}

// Scheduler fires named handlers at fixed intervals, driven by one external
// ticker through Advance. Handlers run on the caller's goroutine in
// registration order, so a handler can never overlap itself or another:
// when the loop falls behind, ticks are delayed, not stacked.
type Scheduler struct {
	handlers []*handler
	byName   map[string]*handler
	log      *zap.Logger
}

func New(log *zap.Logger) *Scheduler {
	return &Scheduler{
		handlers: make([]*handler, 0, 8),
		byName:   make(map[string]*handler, 8),
		log:      log,
	}
}

// Register adds a handler in the disarmed state. Registration order is
// execution order for handlers due on the same advance.
func (s *Scheduler) Register(name string, every time.Duration, fn HandlerFunc) {
	h := &handler{name: name, every: every, fn: fn}
	s.handlers = append(s.handlers, h)
	s.byName[name] = h
}

// Arm starts a registered handler. Arming an armed handler is a no-op.
func (s *Scheduler) Arm(name string) bool {
	h, ok := s.byName[name]
	if !ok {
		s.log.Warn("arm of unknown schedule", zap.String("name", name))
		return false
	}
	if !h.armed {
		h.armed = true
		h.acc = 0
		s.log.Info("schedule armed", zap.String("name", name), zap.Duration("every", h.every))
	}
	return true
}

func (s *Scheduler) Armed(name string) bool {
	h, ok := s.byName[name]
	return ok && h.armed
}

func (s *Scheduler) Interval(name string) (time.Duration, bool) {
	h, ok := s.byName[name]
	if !ok {
		return 0, false
	}
	return h.every, true
}

// Advance accumulates elapsed wall time and runs each armed handler at most
// once if its interval elapsed. Backlog beyond one interval is dropped so a
// stalled loop drifts instead of bursting.
func (s *Scheduler) Advance(now time.Time, elapsed time.Duration) {
	for _, h := range s.handlers {
		if !h.armed {
			continue
		}
		h.acc += elapsed
		if h.acc < h.every {
			continue
		}
		h.acc -= h.every
		if h.acc > h.every {
			h.acc = h.every
		}
		h.fn(now, h.every.Seconds())
	}
}
