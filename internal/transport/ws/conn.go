package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/WiredSound/gemgame/internal/protocol"
	"github.com/WiredSound/gemgame/internal/world"
	"github.com/WiredSound/gemgame/internal/world/coords"
	"github.com/WiredSound/gemgame/internal/world/hub"
	"github.com/WiredSound/gemgame/internal/world/model"
)

// conn is one active connection task. The main loop in run is the only
// goroutine touching interest and known; the reader and writer goroutines
// only move frames.
type conn struct {
	srv  *Server
	sock *websocket.Conn

	clientID  model.ClientID
	entityID  model.EntityID
	gen       uint64 // attachment generation, handed back on detach
	persisted bool

	// interest is the set of chunks the client currently has loaded.
	// Broadcasts outside it are not forwarded.
	interest map[coords.ChunkCoords]struct{}
	// known tracks which entities the client has been given, so movement
	// can be sent as a delta rather than a full introduction.
	known map[model.EntityID]struct{}

	limiter  *rate.Limiter
	outbound chan []byte

	ctx    context.Context
	cancel context.CancelFunc
}

func newConn(s *Server, sock *websocket.Conn, cid model.ClientID, ent model.Entity, gen uint64, persisted bool) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &conn{
		srv:       s,
		sock:      sock,
		clientID:  cid,
		entityID:  ent.ID,
		gen:       gen,
		persisted: persisted,
		interest:  map[coords.ChunkCoords]struct{}{},
		known:     map[model.EntityID]struct{}{},
		limiter:   rate.NewLimiter(s.cfg.FrameRate, s.cfg.FrameBurst),
		outbound:  make(chan []byte, 64),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *conn) run() {
	defer c.cleanup()

	sub := c.srv.world.Subscribe()
	defer sub.Close()

	go c.writeLoop()

	inbound := make(chan []byte, 16)
	go c.readLoop(inbound)

	for {
		select {
		case <-c.ctx.Done():
			return
		case raw, ok := <-inbound:
			if !ok {
				return
			}
			if !c.limiter.Allow() {
				c.srv.logger.Printf("client %s flooding, closing", c.clientID)
				closePolicy(c.sock, "rate limit exceeded")
				return
			}
			if !c.handleFrame(raw) {
				return
			}
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if lagged := sub.TakeLagged(); lagged > 0 {
				c.srv.logger.Printf("client %s lagged %d events, resyncing", c.clientID, lagged)
				if !c.resync() {
					return
				}
				continue
			}
			if !c.handleEvent(ev) {
				return
			}
		}
	}
}

// cleanup tears the connection's footprint out of the world: interests
// released, entity detached and announced, final state persisted. When a
// newer connection has taken the entity over, the detach is a no-op and
// nothing is saved here; the takeover owns the state now.
func (c *conn) cleanup() {
	c.cancel()
	for cc := range c.interest {
		c.srv.world.DropInterest(cc)
	}
	snap, ok := c.srv.world.DetachEntity(c.entityID, c.gen)
	if ok && c.persisted {
		_ = c.srv.sessions.Save(c.clientID, snap)
	}
}

func (c *conn) readLoop(inbound chan<- []byte) {
	defer close(inbound)
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		_ = c.sock.SetReadDeadline(time.Now().Add(readTimeout))
		kind, raw, err := c.sock.ReadMessage()
		if err != nil {
			c.cancel()
			return
		}
		if kind != websocket.BinaryMessage {
			closePolicy(c.sock, "binary frames only")
			c.cancel()
			return
		}
		select {
		case inbound <- raw:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *conn) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case b := <-c.outbound:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.sock.WriteMessage(websocket.BinaryMessage, b); err != nil {
				c.cancel()
				return
			}
		case <-ping.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

// send encodes and queues one outbound message. Safe from any goroutine;
// drops the message when the connection is already shutting down.
func (c *conn) send(msg protocol.Message) {
	b, err := protocol.Encode(msg)
	if err != nil {
		c.srv.logger.Printf("encode %T: %v", msg, err)
		return
	}
	select {
	case c.outbound <- b:
	case <-c.ctx.Done():
	}
}

// handleFrame processes one client frame in the active state. Returns
// false when the connection must close.
func (c *conn) handleFrame(raw []byte) bool {
	msg, err := protocol.DecodeClient(raw)
	if err != nil {
		c.srv.logger.Printf("client %s protocol violation: %v", c.clientID, err)
		closePolicy(c.sock, "malformed message")
		return false
	}

	switch m := msg.(type) {
	case *protocol.MoveMyEntity:
		dir := model.Direction(m.Direction)
		if !dir.Valid() {
			closePolicy(c.sock, "bad direction")
			return false
		}
		c.srv.world.Move(c.entityID, dir, m.RequestNumber, func(r world.MoveResult) {
			c.send(&protocol.YourEntityMoved{
				RequestNumber: r.RequestNumber,
				NewPosition:   r.NewPosition,
			})
		})
	case *protocol.RequestChunk:
		c.provideChunk(m.Coords)
	case *protocol.UnloadedChunk:
		c.forgetChunk(m.Coords)
	default:
		// A second hello; out of sequence.
		closePolicy(c.sock, "unexpected message")
		return false
	}
	return true
}

// provideChunk answers a chunk request: snapshot out, chunk into the
// interest set, and introductions for every entity standing in it.
func (c *conn) provideChunk(cc coords.ChunkCoords) {
	var tiles []byte
	if _, ok := c.interest[cc]; ok {
		// Duplicate request: refresh without double-counting interest.
		tiles = c.srv.world.SnapshotChunk(cc)
	} else {
		tiles = c.srv.world.AddInterest(cc)
		c.interest[cc] = struct{}{}
	}
	c.send(&protocol.ProvideChunk{Coords: cc, Tiles: tiles})

	for _, e := range c.srv.world.EntitiesInChunk(cc) {
		if e.ID == c.entityID {
			continue
		}
		if _, ok := c.known[e.ID]; ok {
			continue
		}
		c.known[e.ID] = struct{}{}
		c.send(&protocol.ProvideEntity{Entity: protocol.EntityPayload(e)})
	}
}

// forgetChunk handles the client telling us it dropped a chunk from view.
// Entities that only appeared through that chunk are forgotten too; no
// unload message is needed since the client initiated this.
func (c *conn) forgetChunk(cc coords.ChunkCoords) {
	if _, ok := c.interest[cc]; !ok {
		return
	}
	delete(c.interest, cc)
	c.srv.world.DropInterest(cc)

	for id := range c.known {
		e, ok := c.srv.world.LookupEntity(id)
		if !ok {
			delete(c.known, id)
			continue
		}
		if _, watched := c.interest[e.Pos.ToChunkCoords()]; !watched {
			delete(c.known, id)
		}
	}
}

// handleEvent translates one hub event into client messages, filtered by
// the interest set.
func (c *conn) handleEvent(ev hub.Event) bool {
	if ev.EntityID == c.entityID {
		// Our own detach publishes after this subscriber is closed, so a
		// removal seen here means a newer connection took the entity over.
		if ev.Kind == hub.KindEntityRemoved {
			c.srv.logger.Printf("client %s superseded by a newer connection", c.clientID)
			return false
		}
		// Own moves are answered through request reconciliation instead.
		return true
	}
	relevant := ev.Touches(c.interest)

	switch ev.Kind {
	case hub.KindEntityMoved:
		_, isKnown := c.known[ev.EntityID]
		switch {
		case relevant && isKnown:
			c.send(&protocol.EntityMoved{
				EntityID:    ev.EntityID.String(),
				NewPosition: ev.Entity.Pos,
				Direction:   uint8(ev.Entity.Direction),
			})
		case relevant:
			c.known[ev.EntityID] = struct{}{}
			c.send(&protocol.ProvideEntity{Entity: protocol.EntityPayload(ev.Entity)})
		case isKnown:
			// Moved fully outside our view.
			delete(c.known, ev.EntityID)
			c.send(&protocol.ShouldUnloadEntity{EntityID: ev.EntityID.String()})
		}
	case hub.KindEntityAdded:
		if relevant {
			c.known[ev.EntityID] = struct{}{}
			c.send(&protocol.ProvideEntity{Entity: protocol.EntityPayload(ev.Entity)})
		}
	case hub.KindEntityRemoved:
		if _, isKnown := c.known[ev.EntityID]; isKnown {
			delete(c.known, ev.EntityID)
			c.send(&protocol.ShouldUnloadEntity{EntityID: ev.EntityID.String()})
		}
	case hub.KindTileChanged:
		if relevant {
			c.send(&protocol.ChangeTile{Pos: ev.Pos, Tile: uint8(ev.Tile)})
		}
	}
	return true
}

// resync rebuilds the client's view after hub events were lost: fresh
// snapshots for every interested chunk and re-introductions for every
// visible entity. Entities the client knew that are no longer visible get
// unload messages so it does not render ghosts.
func (c *conn) resync() bool {
	visible := map[model.EntityID]struct{}{}
	for cc := range c.interest {
		c.send(&protocol.ProvideChunk{Coords: cc, Tiles: c.srv.world.SnapshotChunk(cc)})
		for _, e := range c.srv.world.EntitiesInChunk(cc) {
			if e.ID == c.entityID {
				continue
			}
			visible[e.ID] = struct{}{}
			c.send(&protocol.ProvideEntity{Entity: protocol.EntityPayload(e)})
		}
	}
	for id := range c.known {
		if _, ok := visible[id]; !ok {
			c.send(&protocol.ShouldUnloadEntity{EntityID: id.String()})
		}
	}
	c.known = visible
	return true
}
