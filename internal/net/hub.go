package net

import (
	"go.uber.org/zap"

	"github.com/crawld/server/internal/core/store"
	"github.com/crawld/server/internal/world"
)

// Hub is the game loop's session registry. All methods run on the game loop
// goroutine.
type Hub struct {
	sessions map[uint64]*Session
	log      *zap.Logger

	// OnGone is called with the identity of each authenticated session swept
	// out by Poll. Must not block.
	OnGone func(world.Identity)
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[uint64]*Session, 64),
		log:      log,
	}
}

func (h *Hub) Add(s *Session) {
	h.sessions[s.ID] = s
}

func (h *Hub) Len() int {
	return len(h.sessions)
}

// Poll sweeps dead sessions out of the registry and hands every queued
// request to handle. World rows owned by a disconnected identity stay put;
// the player resumes them on reconnect.
func (h *Hub) Poll(handle func(*Session, *Request)) {
	for id, sess := range h.sessions {
		if sess.IsClosed() {
			delete(h.sessions, id)
			h.log.Info("client disconnected", zap.Uint64("session", id))
			if h.OnGone != nil {
				if pid := sess.Identity(); pid != 0 {
					h.OnGone(pid)
				}
			}
			continue
		}
	drain:
		for n := len(sess.InQueue); n > 0; n-- {
			select {
			case req := <-sess.InQueue:
				handle(sess, req)
			default:
				break drain
			}
		}
	}
}

// Seed queues the current contents of each requested table for one session.
// It runs before the sub reply goes out, so the reply marks the end of the
// initial sync and everything after it is a live delta.
func (h *Hub) Seed(sess *Session, st *world.State, tables []string) {
	for _, table := range tables {
		for _, ev := range st.Snapshot(table) {
			frame, err := MarshalRow(ev)
			if err != nil {
				h.log.Error("seed frame marshal failed",
					zap.String("table", table), zap.Error(err))
				continue
			}
			sess.Send(frame)
		}
	}
}

// Broadcast fans committed row writes out to subscribed sessions, then
// flushes every session's tick buffer. Each event is marshaled at most once.
func (h *Hub) Broadcast(events []store.RowEvent) {
	for _, ev := range events {
		var frame []byte
		for _, sess := range h.sessions {
			if !sess.Subscribed(ev.Table) {
				continue
			}
			if frame == nil {
				var err error
				frame, err = MarshalRow(ev)
				if err != nil {
					h.log.Error("row frame marshal failed",
						zap.String("table", ev.Table), zap.Error(err))
					break
				}
			}
			sess.Send(frame)
		}
	}
	for _, sess := range h.sessions {
		sess.FlushOutput()
	}
}

// CloseAll drops every session, for shutdown.
func (h *Hub) CloseAll() {
	for id, sess := range h.sessions {
		sess.Close()
		delete(h.sessions, id)
	}
}
