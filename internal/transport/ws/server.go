// Package ws exposes the world over websocket connections. Each accepted
// socket becomes one connection task: a reader goroutine, a writer
// goroutine, and a main loop that waits on the client and on the world's
// change hub at the same time.
package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/WiredSound/gemgame/internal/protocol"
	"github.com/WiredSound/gemgame/internal/session"
	"github.com/WiredSound/gemgame/internal/world"
	"github.com/WiredSound/gemgame/internal/world/model"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
	pingInterval     = 30 * time.Second
)

type Config struct {
	// FrameRate / FrameBurst bound how fast a single client may send
	// frames of any kind. A client exceeding the burst is disconnected.
	FrameRate  rate.Limit
	FrameBurst int
}

type Server struct {
	world    *world.World
	sessions *session.Store // nil disables persistence entirely
	cfg      Config
	logger   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, sessions *session.Store, cfg Config, logger *log.Logger) *Server {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 20
	}
	if cfg.FrameBurst <= 0 {
		cfg.FrameBurst = 40
	}
	return &Server{
		world:    w,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		sock, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer sock.Close()

		c, ok := s.handshake(sock)
		if !ok {
			return
		}
		c.run()
	}
}

// handshake drives the connection from accepted to active: the first frame
// must be a hello, the session store resolves (or mints) the identity, the
// entity is attached, and the welcome goes out. Any deviation closes the
// socket before a connection task is ever built.
func (s *Server) handshake(sock *websocket.Conn) (*conn, bool) {
	_ = sock.SetReadDeadline(time.Now().Add(handshakeTimeout))
	kind, raw, err := sock.ReadMessage()
	if err != nil {
		return nil, false
	}
	if kind != websocket.BinaryMessage {
		closePolicy(sock, "binary frames only")
		return nil, false
	}
	msg, err := protocol.DecodeClient(raw)
	if err != nil {
		closePolicy(sock, "malformed hello")
		return nil, false
	}
	hello, ok := msg.(*protocol.Hello)
	if !ok {
		closePolicy(sock, "expected hello")
		return nil, false
	}

	cid, ent, persisted := s.resolveSession(hello)
	ent, gen := s.world.AttachEntity(ent)

	welcome, err := protocol.Encode(&protocol.Welcome{
		Version:  protocol.Version,
		ClientID: cid.String(),
		Entity:   protocol.EntityPayload(ent),
	})
	if err != nil {
		s.logger.Printf("encode welcome: %v", err)
		s.world.DetachEntity(ent.ID, gen)
		return nil, false
	}
	_ = sock.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := sock.WriteMessage(websocket.BinaryMessage, welcome); err != nil {
		s.world.DetachEntity(ent.ID, gen)
		return nil, false
	}

	return newConn(s, sock, cid, ent, gen, persisted), true
}

// resolveSession never fails the connection: a broken session store
// degrades the client to an ephemeral identity that simply will not
// survive reconnects.
func (s *Server) resolveSession(hello *protocol.Hello) (cid model.ClientID, ent model.Entity, persisted bool) {
	if s.sessions == nil {
		return uuid.New(), session.NewEntity(), false
	}
	cid, ent, isNew, err := s.sessions.LookupOrCreate(hello.ClientID)
	if err != nil {
		s.logger.Printf("session lookup failed, continuing ephemeral: %v", err)
		return uuid.New(), session.NewEntity(), false
	}
	if !isNew {
		if err := s.sessions.Touch(cid); err != nil {
			s.logger.Printf("session touch: %v", err)
		}
	}
	return cid, ent, true
}

func closePolicy(sock *websocket.Conn, reason string) {
	_ = sock.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}
