package rendezvous

import (
	"context"
	"sync"
	"time"

	"switchboard-hq/switchboard/pkg/proxy/types"
)

// State is the session lifecycle state.
type State string

const (
	// StateEmpty is a freshly created session with no participants.
	StateEmpty State = "empty"

	// StateAwaitingPeer has Side A suspended on its handshake, waiting for
	// Side B to arrive.
	StateAwaitingPeer State = "awaiting_peer"

	// StateActive has both sides assigned and turns flowing.
	StateActive State = "active"

	// StateClosed is terminal; a closed session never transitions out.
	StateClosed State = "closed"
)

// Side identifies a participant slot. Side A is whichever client's request
// is first accepted for a new session id; assignment is permanent.
type Side string

const (
	// SideA is the first arriver (the handshake side).
	SideA Side = "A"

	// SideB is the second arriver.
	SideB Side = "B"
)

// CloseReason records why a session was closed. It determines the error
// observed by suspended callers: timeouts for expiry reasons, session_gone
// for everything else.
type CloseReason string

const (
	// ReasonHandshakeTimeout closes a session whose Side B never arrived.
	ReasonHandshakeTimeout CloseReason = "handshake_timeout"

	// ReasonTTLExpired closes a session idle past its TTL.
	ReasonTTLExpired CloseReason = "ttl_expired"

	// ReasonEvicted closes the idlest session to admit a new one.
	ReasonEvicted CloseReason = "evicted"

	// ReasonAdminClosed is an explicit administrative close.
	ReasonAdminClosed CloseReason = "admin_closed"

	// ReasonShutdown closes all sessions at manager shutdown.
	ReasonShutdown CloseReason = "shutdown"
)

// EventSink receives session lifecycle notifications. Implementations must
// not block; they are invoked on request goroutines.
type EventSink interface {
	// SessionCreated fires when the directory admits a new session.
	SessionCreated(id string)

	// SessionPaired fires when Side B arrives and the session goes active.
	SessionPaired(id string)

	// SessionClosed fires exactly once per session.
	SessionClosed(id string, reason CloseReason)
}

// NopSink is an EventSink that does nothing.
type NopSink struct{}

// SessionCreated implements EventSink.
func (NopSink) SessionCreated(string) {}

// SessionPaired implements EventSink.
func (NopSink) SessionPaired(string) {}

// SessionClosed implements EventSink.
func (NopSink) SessionClosed(string, CloseReason) {}

// MultiSink fans lifecycle notifications out to several sinks.
type MultiSink []EventSink

// SessionCreated implements EventSink.
func (m MultiSink) SessionCreated(id string) {
	for _, s := range m {
		s.SessionCreated(id)
	}
}

// SessionPaired implements EventSink.
func (m MultiSink) SessionPaired(id string) {
	for _, s := range m {
		s.SessionPaired(id)
	}
}

// SessionClosed implements EventSink.
func (m MultiSink) SessionClosed(id string, reason CloseReason) {
	for _, s := range m {
		s.SessionClosed(id, reason)
	}
}

// Session is the per-pair state machine. All mutation happens inside
// Exchange and Close under the session mutex; the mutex is never held across
// the rendezvous wait.
type Session struct {
	id              string
	handshakeBudget time.Duration
	turnBudget      time.Duration
	sink            EventSink

	mu           sync.Mutex
	state        State
	sideAPresent bool
	sideBPresent bool
	waitingA     bool
	waitingB     bool
	closeReason  CloseReason
	createdAt    time.Time
	lastActivity time.Time
	turns        int64

	// Single-slot rendezvous queues. Deposits are non-blocking and happen
	// under mu; receives happen outside mu.
	aToB chan string
	bToA chan string

	// done is closed exactly once when the session closes.
	done chan struct{}
}

// NewSession creates a session in the Empty state.
func NewSession(id string, handshakeBudget, turnBudget time.Duration, sink EventSink) *Session {
	if sink == nil {
		sink = NopSink{}
	}
	now := time.Now()
	return &Session{
		id:              id,
		handshakeBudget: handshakeBudget,
		turnBudget:      turnBudget,
		sink:            sink,
		state:           StateEmpty,
		createdAt:       now,
		lastActivity:    now,
		aToB:            make(chan string, 1),
		bToA:            make(chan string, 1),
		done:            make(chan struct{}),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Exchange performs one atomic half-turn: deliver the caller's utterance to
// the peer side and suspend until the peer's utterance arrives as this
// call's response.
//
// The caller's side is derived from queue state at entry, under the session
// mutex: the first arriver is A (its utterance is the handshake ping and is
// discarded), the second is B, and afterwards a caller is the side opposite
// the one with a pending receiver, falling back to the side whose delivery
// slot is free. A call that would put a second concurrent request on one
// side fails with session_conflict.
//
// ctx cancellation (client disconnect) detaches the waiter and discards a
// delivery raced into its slot, since no live consumer remains.
func (s *Session) Exchange(ctx context.Context, utterance string) (string, error) {
	s.mu.Lock()

	if s.state == StateClosed {
		s.mu.Unlock()
		return "", types.NewSessionGoneError("session is closed")
	}

	s.lastActivity = time.Now()

	var (
		side      Side
		recv      chan string
		budget    = s.turnBudget
		handshake bool
		paired    bool
	)

	switch {
	case !s.sideAPresent:
		// First ever request: the handshake. The utterance is discarded and
		// the caller waits for B's first message.
		s.sideAPresent = true
		s.state = StateAwaitingPeer
		side = SideA
		handshake = true
		budget = s.handshakeBudget
		recv = s.bToA
		s.waitingA = true

	case !s.sideBPresent:
		// Second unique arriver: Side B. Its utterance answers A's pending
		// handshake; B then waits for A's next turn.
		if len(s.bToA) != 0 {
			s.mu.Unlock()
			return "", types.NewSessionConflictError(types.CodeSideBusy,
				"peer already has an undelivered utterance")
		}
		s.sideBPresent = true
		s.state = StateActive
		side = SideB
		paired = true
		s.bToA <- utterance
		recv = s.aToB
		s.waitingB = true

	default:
		var ok bool
		side, ok = s.resolveSideLocked()
		if !ok {
			s.mu.Unlock()
			return "", types.NewSessionConflictError(types.CodeThirdParticipant,
				"session already has a request in flight on both sides")
		}

		deliver := s.aToB
		recv = s.bToA
		if side == SideB {
			deliver = s.bToA
			recv = s.aToB
		}

		select {
		case deliver <- utterance:
		default:
			s.mu.Unlock()
			return "", types.NewSessionConflictError(types.CodeSideBusy,
				"previous utterance from this side has not been consumed yet")
		}

		if side == SideA {
			s.waitingA = true
		} else {
			s.waitingB = true
		}
	}

	s.mu.Unlock()

	if paired {
		s.sink.SessionPaired(s.id)
	}

	return s.await(ctx, side, recv, budget, handshake)
}

// resolveSideLocked identifies the caller's side once both slots are
// assigned. The rule is total over queue occupancy: the side opposite a
// pending receiver, else the side whose delivery slot is free, else conflict.
func (s *Session) resolveSideLocked() (Side, bool) {
	switch {
	case s.waitingA && s.waitingB:
		return "", false
	case s.waitingB:
		return SideA, true
	case s.waitingA:
		return SideB, true
	case len(s.aToB) == 0:
		return SideA, true
	case len(s.bToA) == 0:
		return SideB, true
	default:
		return "", false
	}
}

// await is the receive leg: suspend outside the mutex until the peer's
// utterance, budget expiry, cancellation, or session close.
func (s *Session) await(ctx context.Context, side Side, recv chan string, budget time.Duration, handshake bool) (string, error) {
	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case reply := <-recv:
		s.finishWait(side, true)
		return reply, nil

	case <-timer.C:
		// The delivery may have raced the timer; prefer it.
		select {
		case reply := <-recv:
			s.finishWait(side, true)
			return reply, nil
		default:
		}

		s.finishWait(side, false)
		if handshake {
			s.closeIfAwaitingPeer(ReasonHandshakeTimeout)
			return "", types.NewTimeoutError(types.CodeHandshakeTimeout,
				"no peer arrived within the handshake budget")
		}
		return "", types.NewTimeoutError(types.CodeTurnTimeout,
			"peer did not respond within the turn budget")

	case <-ctx.Done():
		// No live consumer remains: discard a delivery that raced in.
		s.finishWait(side, false)
		select {
		case <-recv:
		default:
		}
		if handshake {
			s.closeIfAwaitingPeer(ReasonHandshakeTimeout)
		}
		return "", types.NewTimeoutError(types.CodeTurnTimeout,
			"request cancelled while waiting for peer")

	case <-s.done:
		s.finishWait(side, false)
		s.mu.Lock()
		reason := s.closeReason
		s.mu.Unlock()
		if reason == ReasonTTLExpired || reason == ReasonHandshakeTimeout {
			return "", types.NewTimeoutError(types.CodeTurnTimeout,
				"session expired while waiting for peer")
		}
		return "", types.NewSessionGoneError("session closed while waiting for peer")
	}
}

// finishWait clears the waiting flag and, on success, refreshes activity and
// counts the turn. Timed-out calls also refresh activity.
func (s *Session) finishWait(side Side, delivered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if side == SideA {
		s.waitingA = false
	} else {
		s.waitingB = false
	}
	s.lastActivity = time.Now()
	if delivered {
		s.turns++
	}
}

// closeIfAwaitingPeer closes the session after a handshake timeout, unless
// Side B arrived in the race window.
func (s *Session) closeIfAwaitingPeer(reason CloseReason) {
	s.mu.Lock()
	if s.state != StateAwaitingPeer {
		s.mu.Unlock()
		return
	}
	s.closeLocked(reason)
	s.mu.Unlock()

	s.sink.SessionClosed(s.id, reason)
}

// Close transitions the session to Closed and wakes all suspended callers.
// It is idempotent; only the first reason sticks.
func (s *Session) Close(reason CloseReason) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.closeLocked(reason)
	s.mu.Unlock()

	s.sink.SessionClosed(s.id, reason)
}

// closeLocked marks the session closed and releases waiters. Caller holds mu.
func (s *Session) closeLocked(reason CloseReason) {
	s.state = StateClosed
	s.closeReason = reason
	close(s.done)
}

// Closed reports whether the session is in the Closed state.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateClosed
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// touch refreshes the activity timestamp.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// IdleFor returns how long the session has been without activity.
func (s *Session) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// IsIdleFor reports whether the session has been idle at least d.
func (s *Session) IsIdleFor(d time.Duration) bool {
	return s.IdleFor() >= d
}

// Info returns the redacted metadata used by the admin snapshot.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	return SessionInfo{
		ID:          s.id,
		State:       string(s.state),
		AgeSeconds:  now.Sub(s.createdAt).Seconds(),
		IdleSeconds: now.Sub(s.lastActivity).Seconds(),
		Turns:       s.turns,
	}
}

// SessionInfo is the redacted per-session listing entry. It carries no
// message content.
type SessionInfo struct {
	ID          string  `json:"id"`
	State       string  `json:"state"`
	AgeSeconds  float64 `json:"age_seconds"`
	IdleSeconds float64 `json:"idle_seconds"`
	Turns       int64   `json:"turns"`
}
