package world

import (
	"time"

	"github.com/WiredSound/gemgame/internal/world/coords"
	"github.com/WiredSound/gemgame/internal/world/hub"
	"github.com/WiredSound/gemgame/internal/world/model"
)

type MoveStatus uint8

const (
	// MoveApplied means the entity moved to Result.NewPosition.
	MoveApplied MoveStatus = iota + 1
	// MoveQueued means the request arrived before the speed cap allowed.
	// The deliver callback fires when the cap elapses.
	MoveQueued
	// MoveRejected means the destination was blocked or occupied.
	// NewPosition holds the entity's unchanged position.
	MoveRejected
)

// MoveResult answers one movement request. NewPosition is authoritative
// either way: it equals the old position when the move did not happen.
type MoveResult struct {
	Status        MoveStatus
	RequestNumber uint32
	NewPosition   coords.TileCoords
}

// queuedMove is the per-entity single deferred request slot. A newer
// request overwrites the slot; the overwritten request is answered as
// rejected so the client can reconcile it.
type queuedMove struct {
	direction     model.Direction
	requestNumber uint32
	deliver       func(MoveResult)
	timer         *time.Timer
}

// Move validates and applies a single-tile movement request, returning how
// the request was classified. Requests that arrive faster than the speed
// cap are not dropped: they are scheduled to execute exactly when the cap
// allows, with destination legality re-checked at that moment. deliver is
// called outside the world lock, once per request, either synchronously
// (applied/rejected/queue replacement) or from the deferred timer.
func (w *World) Move(id model.EntityID, dir model.Direction, reqNum uint32, deliver func(MoveResult)) MoveStatus {
	w.mu.Lock()

	e, ok := w.entities[id]
	if !ok {
		// Detached (or taken over) entity. Still answer the request so the
		// client can reconcile its number before the connection winds down.
		w.mu.Unlock()
		deliver(MoveResult{Status: MoveRejected, RequestNumber: reqNum})
		return MoveRejected
	}
	if !dir.Valid() {
		res := MoveResult{Status: MoveRejected, RequestNumber: reqNum, NewPosition: e.Pos}
		w.mu.Unlock()
		deliver(res)
		return MoveRejected
	}

	now := w.clock()
	allowedAt := e.LastMoved.Add(w.moveInterval)
	if now.Before(allowedAt) {
		replaced := w.queueLocked(id, dir, reqNum, deliver, allowedAt.Sub(now))
		pos := e.Pos
		w.mu.Unlock()
		if replaced != nil {
			replaced.deliver(MoveResult{
				Status:        MoveRejected,
				RequestNumber: replaced.requestNumber,
				NewPosition:   pos,
			})
		}
		return MoveQueued
	}

	res := w.stepLocked(e, dir, reqNum, now)
	w.mu.Unlock()
	deliver(res)
	return res.Status
}

// queueLocked fills the entity's deferred slot, returning the request it
// displaced, if any. The timer for an existing slot is reused so the
// execution time never slips later.
func (w *World) queueLocked(id model.EntityID, dir model.Direction, reqNum uint32, deliver func(MoveResult), delay time.Duration) *queuedMove {
	if q, ok := w.queued[id]; ok {
		displaced := &queuedMove{requestNumber: q.requestNumber, deliver: q.deliver}
		q.direction = dir
		q.requestNumber = reqNum
		q.deliver = deliver
		return displaced
	}
	q := &queuedMove{direction: dir, requestNumber: reqNum, deliver: deliver}
	q.timer = time.AfterFunc(delay, func() { w.fireQueued(id) })
	w.queued[id] = q
	return nil
}

func (w *World) fireQueued(id model.EntityID) {
	w.mu.Lock()
	q, ok := w.queued[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.queued, id)

	e, ok := w.entities[id]
	if !ok {
		w.mu.Unlock()
		q.deliver(MoveResult{Status: MoveRejected, RequestNumber: q.requestNumber})
		return
	}
	res := w.stepLocked(e, q.direction, q.requestNumber, w.clock())
	w.mu.Unlock()
	q.deliver(res)
}

// stepLocked applies one validated move attempt. The entity turns to face
// the requested direction even when the step itself is illegal.
func (w *World) stepLocked(e *model.Entity, dir model.Direction, reqNum uint32, now time.Time) MoveResult {
	e.Direction = dir

	dx, dy := dir.Offset()
	dest := e.Pos.Translated(dx, dy)
	if !w.freeLocked(dest) {
		return MoveResult{Status: MoveRejected, RequestNumber: reqNum, NewPosition: e.Pos}
	}

	old := e.Pos
	delete(w.byPos, old)
	w.byPos[dest] = e.ID
	e.Pos = dest
	e.LastMoved = now

	chunks := []coords.ChunkCoords{old.ToChunkCoords()}
	if dc := dest.ToChunkCoords(); dc != chunks[0] {
		chunks = append(chunks, dc)
	}
	w.hub.Publish(hub.Event{
		Kind:     hub.KindEntityMoved,
		Chunks:   chunks,
		EntityID: e.ID,
		Entity:   *e,
		Pos:      dest,
	})

	return MoveResult{Status: MoveApplied, RequestNumber: reqNum, NewPosition: dest}
}
