package net

import (
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/crawld/server/internal/config"
)

// Server accepts TCP connections and hands new sessions to the game loop
// over a channel.
type Server struct {
	listener net.Listener
	auth     Authenticator
	nextID   atomic.Uint64
	active   atomic.Int64
	newConns chan *Session

	maxSessions  int
	inSize       int
	outSize      int
	readTimeout  time.Duration
	writeTimeout time.Duration

	closeCh chan struct{}
	log     *zap.Logger
}

func NewServer(cfg config.NetworkConfig, auth Authenticator, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", cfg.BindAddress)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener:     ln,
		auth:         auth,
		newConns:     make(chan *Session, 64),
		maxSessions:  cfg.MaxSessions,
		inSize:       cfg.InQueueSize,
		outSize:      cfg.OutQueueSize,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		closeCh:      make(chan struct{}),
		log:          log,
	}, nil
}

// AcceptLoop runs in its own goroutine. It accepts connections, starts
// session pumps, and pushes sessions onto the newConns channel.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		if s.maxSessions > 0 && int(s.active.Load()) >= s.maxSessions {
			s.log.Warn("session cap reached, refusing connection",
				zap.String("ip", conn.RemoteAddr().String()))
			conn.Close()
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.auth, s.inSize, s.outSize, s.readTimeout, s.writeTimeout, s.log)
		s.active.Add(1)
		sess.onClose = func() { s.active.Add(-1) }
		sess.Start()

		s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))

		select {
		case s.newConns <- sess:
		default:
			s.log.Warn("new connection queue full, refusing connection")
			sess.Close()
		}
	}
}

// NewSessions is the channel the accept loop publishes started sessions on.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// Shutdown closes the listener, which unblocks and ends the accept loop.
// Live sessions are not touched; the hub owns those.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr reports the bound address, which matters when binding port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
