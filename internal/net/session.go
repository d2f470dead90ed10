package net

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/world"
)

// Session is a single client connection. Network I/O runs in dedicated
// goroutines; the subscription set and output buffer are touched only from
// the game loop.
type Session struct {
	ID   uint64
	conn net.Conn

	InQueue  chan *Request // game loop reads authenticated requests from here
	OutQueue chan []byte   // writer goroutine reads frames from here

	IP string

	auth     Authenticator
	identity atomic.Uint64 // zero until hello succeeds

	subscribed map[string]struct{} // game loop only
	outBuf     [][]byte            // buffered frames, flushed once per tick

	readTimeout  time.Duration
	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	onClose   func()

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, auth Authenticator, inSize, outSize int, readTimeout, writeTimeout time.Duration, log *zap.Logger) *Session {
	return &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan *Request, inSize),
		OutQueue:     make(chan []byte, outSize),
		IP:           conn.RemoteAddr().String(),
		auth:         auth,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		closeCh:      make(chan struct{}),
		log:          log.With(zap.Uint64("session", id)),
	}
}

// Start launches the reader and writer goroutines. The client speaks first
// with a hello frame.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Identity returns the authenticated player identity, zero before hello.
func (s *Session) Identity() world.Identity {
	return world.Identity(s.identity.Load())
}

// Send buffers a frame for this session. Nothing reaches TCP until
// FlushOutput runs at the end of the tick. Game loop only.
func (s *Session) Send(frame []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, frame)
}

// FlushOutput drains the buffer to OutQueue for the writer goroutine.
// Non-blocking: a full queue means the client cannot keep up, and the
// session is dropped.
func (s *Session) FlushOutput() {
	for _, frame := range s.outBuf {
		select {
		case s.OutQueue <- frame:
		default:
			s.log.Warn("output queue full, dropping slow session")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// ApplySub replaces the session's table subscriptions. Game loop only.
func (s *Session) ApplySub(tables []string) {
	s.subscribed = make(map[string]struct{}, len(tables))
	for _, t := range tables {
		s.subscribed[t] = struct{}{}
	}
}

// Subscribed reports whether row updates for table reach this session.
// Game loop only.
func (s *Session) Subscribed(table string) bool {
	_, ok := s.subscribed[table]
	return ok
}

// Close shuts the session down. Safe to call from any goroutine, any number
// of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
		if s.onClose != nil {
			s.onClose()
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// sendDirect marshals and queues a frame from the reader goroutine,
// bypassing the tick buffer. Used for auth replies and frame errors.
func (s *Session) sendDirect(v any) {
	frame, err := MarshalFrame(v)
	if err != nil {
		return
	}
	select {
	case s.OutQueue <- frame:
	case <-s.closeCh:
	default:
		s.log.Warn("output queue full, dropping slow session")
		s.Close()
	}
}

// readLoop reads newline-delimited JSON frames, answers hello in place, and
// queues authenticated requests for the game loop.
func (s *Session) readLoop() {
	defer s.Close()

	sc := bufio.NewScanner(s.conn)
	sc.Buffer(make([]byte, 4096), MaxFrame)

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		if s.readTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		if !sc.Scan() {
			if err := sc.Err(); err != nil && !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if len(sc.Bytes()) == 0 {
			continue
		}

		// The scanner reuses its buffer; copy before Args can alias it.
		line := make([]byte, len(sc.Bytes()))
		copy(line, sc.Bytes())

		req := &Request{}
		if err := json.Unmarshal(line, req); err != nil {
			s.sendDirect(reply(0, "bad_frame"))
			continue
		}

		switch req.Op {
		case "hello":
			s.handleHello(req)
		case "cmd", "sub":
			if s.identity.Load() == 0 {
				s.sendDirect(reply(req.Seq, "auth_required"))
				continue
			}
			// Block until the game loop drains the queue. The reader
			// goroutine is per-session, so only this client waits.
			select {
			case s.InQueue <- req:
			case <-s.closeCh:
				return
			}
		default:
			s.sendDirect(reply(req.Seq, "bad_frame"))
		}
	}
}

// handleHello authenticates in the reader goroutine so bcrypt and the
// account lookup stay off the game loop. A repeated hello is answered with
// the identity already bound.
func (s *Session) handleHello(req *Request) {
	if id := s.identity.Load(); id != 0 {
		s.sendDirect(&Reply{Op: "reply", Seq: req.Seq, OK: true, Identity: id})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := s.auth.Authenticate(ctx, req.Name, req.Secret)
	if err != nil {
		s.log.Info("hello rejected", zap.String("account", req.Name), zap.Error(err))
		s.sendDirect(reply(req.Seq, "auth_failed"))
		return
	}

	s.identity.Store(uint64(id))
	s.log.Info("session authenticated",
		zap.String("account", req.Name),
		zap.Uint64("identity", uint64(id)),
	)
	s.sendDirect(&Reply{Op: "reply", Seq: req.Seq, OK: true, Identity: uint64(id)})
}

// writeLoop writes frames from OutQueue to the TCP connection.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case frame := <-s.OutQueue:
			if !s.writeFrame(frame) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeFrame(frame []byte) bool {
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := s.conn.Write(frame); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
