package core

import (
	"encoding/json"
	"time"
)

// Signal types relayed between call participants.
const (
	SignalJoinRequest  = "video-join-request"
	SignalJoinAccepted = "video-join-accepted"
	SignalJoinDeclined = "video-join-declined"
	SignalJoin         = "video-join"
	SignalLeave        = "video-leave"
	SignalOffer        = "video-offer"
	SignalAnswer       = "video-answer"
	SignalICECandidate = "video-ice-candidate"
	SignalMediaState   = "video-media-state"
	SignalKick         = "video-kick"
)

// IsSignal reports whether typ is a relayed signaling type.
func IsSignal(typ string) bool {
	switch typ {
	case SignalJoinRequest, SignalJoinAccepted, SignalJoinDeclined,
		SignalJoin, SignalLeave,
		SignalOffer, SignalAnswer, SignalICECandidate,
		SignalMediaState, SignalKick:
		return true
	}
	return false
}

type participant struct {
	displayName   string
	initiator     bool
	micEnabled    bool
	cameraEnabled bool
}

type pendingRequest struct {
	displayName string
	requestedAt time.Time
}

// callState is the in-memory call of one room. It is Idle while
// participants is empty. Guarded by the owning Room's mutex.
type callState struct {
	initiator    string
	participants map[string]*participant
	pending      map[string]pendingRequest
}

func newCallState() *callState {
	return &callState{
		participants: make(map[string]*participant),
		pending:      make(map[string]pendingRequest),
	}
}

func (c *callState) active() bool {
	return len(c.participants) > 0
}

// join records userID as a participant. The first participant of an idle
// call becomes the initiator.
func (c *callState) join(userID, displayName string, mic, camera bool) bool {
	if !c.active() {
		c.initiator = userID
	}
	isInitiator := c.initiator == userID
	c.participants[userID] = &participant{
		displayName:   displayName,
		initiator:     isInitiator,
		micEnabled:    mic,
		cameraEnabled: camera,
	}
	delete(c.pending, userID)
	return isInitiator
}

// forget removes every trace of userID. An empty call returns to idle.
func (c *callState) forget(userID string) {
	delete(c.pending, userID)
	delete(c.participants, userID)
	if !c.active() {
		c.initiator = ""
	}
}

// CallSnapshot is a read-only view of a room's call.
type CallSnapshot struct {
	Initiator    string
	Participants []string
	Pending      []string
}

// Call returns a snapshot of the room's call state.
func (r *Room) Call() CallSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := CallSnapshot{Initiator: r.call.initiator}
	for id := range r.call.participants {
		snap.Participants = append(snap.Participants, id)
	}
	for id := range r.call.pending {
		snap.Pending = append(snap.Pending, id)
	}
	return snap
}

// relaySignal applies sig from the session of userID and delivers it.
// It returns the number of sessions reached; zero means the signal was dropped.
func (r *Room) relaySignal(from *Session, userID string, sig *Signal, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[from]; !ok {
		return 0, ErrNotInRoom
	}

	payload := clonePayload(sig.Payload)
	out := &Event{Kind: EventSignal, Room: r.Key, Signal: &Signal{Type: sig.Type, Payload: payload}}

	switch sig.Type {
	case SignalJoinRequest:
		name := stringField(payload, "displayName")
		if name == "" {
			name = userID
		}
		r.call.pending[userID] = pendingRequest{displayName: name, requestedAt: now}
		setField(payload, "userId", userID)
		return r.broadcastLocked(out, from), nil

	case SignalJoinAccepted, SignalJoinDeclined:
		target := stringField(payload, "targetUserId")
		if target == "" {
			target = stringField(payload, "userId")
		}
		if target == "" {
			return 0, ErrBadRequest
		}
		if !r.call.active() || r.call.initiator != userID {
			return 0, ErrBadRequest
		}
		if _, ok := r.call.pending[target]; !ok {
			return 0, ErrBadRequest
		}
		delete(r.call.pending, target)
		setField(payload, "fromUserId", userID)
		if sig.Type == SignalJoinAccepted {
			setField(payload, "acceptedBy", userID)
		} else {
			setField(payload, "declinedBy", userID)
		}
		return r.unicastLocked(target, out)

	case SignalJoin:
		name := stringField(payload, "displayName")
		isInitiator := r.call.join(userID, name, boolField(payload, "micEnabled", true), boolField(payload, "cameraEnabled", true))
		setField(payload, "userId", userID)
		setField(payload, "isInitiator", isInitiator)
		return r.broadcastLocked(out, from), nil

	case SignalLeave:
		delete(r.call.pending, userID)
		delete(r.call.participants, userID)
		if !r.call.active() {
			r.call.initiator = ""
		}
		setField(payload, "userId", userID)
		return r.broadcastLocked(out, from), nil

	case SignalMediaState:
		if p, ok := r.call.participants[userID]; ok {
			p.micEnabled = boolField(payload, "micEnabled", p.micEnabled)
			p.cameraEnabled = boolField(payload, "cameraEnabled", p.cameraEnabled)
		}
		setField(payload, "userId", userID)
		return r.broadcastLocked(out, from), nil

	case SignalOffer, SignalAnswer, SignalICECandidate:
		target := stringField(payload, "targetUserId")
		if target == "" {
			return 0, ErrBadRequest
		}
		setField(payload, "fromUserId", userID)
		return r.unicastLocked(target, out)

	case SignalKick:
		target := stringField(payload, "targetUserId")
		if target == "" {
			return 0, ErrBadRequest
		}
		setField(payload, "kickedBy", userID)
		return r.unicastLocked(target, out)
	}

	return 0, ErrBadRequest
}

func (r *Room) unicastLocked(target string, ev *Event) (int, error) {
	n := r.sendToUserLocked(target, ev)
	if n == 0 {
		return 0, ErrNoTarget
	}
	return n, nil
}

func clonePayload(in map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// stringField reads a string or numeric id from the payload.
func stringField(p map[string]json.RawMessage, key string) string {
	raw, ok := p[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func boolField(p map[string]json.RawMessage, key string, def bool) bool {
	raw, ok := p[key]
	if !ok {
		return def
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return def
	}
	return b
}

func setField(p map[string]json.RawMessage, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	p[key] = raw
}
