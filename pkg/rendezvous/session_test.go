package rendezvous

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"switchboard-hq/switchboard/pkg/proxy/types"
)

const (
	testHandshakeBudget = 500 * time.Millisecond
	testTurnBudget      = 500 * time.Millisecond
)

// exchangeResult carries one Exchange outcome across goroutines.
type exchangeResult struct {
	reply string
	err   error
}

// goExchange runs Exchange in a goroutine and returns its result channel.
func goExchange(s *Session, utterance string) chan exchangeResult {
	return goExchangeCtx(context.Background(), s, utterance)
}

func goExchangeCtx(ctx context.Context, s *Session, utterance string) chan exchangeResult {
	ch := make(chan exchangeResult, 1)
	go func() {
		reply, err := s.Exchange(ctx, utterance)
		ch <- exchangeResult{reply: reply, err: err}
	}()
	return ch
}

// waitResult reads a result with a test-level deadline.
func waitResult(t *testing.T, ch chan exchangeResult) exchangeResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("exchange did not terminate")
		return exchangeResult{}
	}
}

// errKind extracts the taxonomy kind from an error.
func errKind(t *testing.T, err error) types.Kind {
	t.Helper()
	var taxErr *types.Error
	if !errors.As(err, &taxErr) {
		t.Fatalf("expected taxonomy error, got %v", err)
	}
	return taxErr.Kind
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession("s-test", testHandshakeBudget, testTurnBudget, nil)
}

func TestHandshakeAndFirstTurn(t *testing.T) {
	s := newTestSession(t)

	// A's handshake hangs until B arrives.
	aCh := goExchange(s, "ping")
	waitState(t, s, StateAwaitingPeer)

	// B's first message answers A's handshake.
	bCh := goExchange(s, "Hello?")

	aRes := waitResult(t, aCh)
	if aRes.err != nil {
		t.Fatalf("side A handshake failed: %v", aRes.err)
	}
	if aRes.reply != "Hello?" {
		t.Errorf("side A reply = %q, want %q", aRes.reply, "Hello?")
	}

	// A's next utterance answers B's pending request.
	a2Ch := goExchange(s, "Hi there")
	bRes := waitResult(t, bCh)
	if bRes.err != nil {
		t.Fatalf("side B exchange failed: %v", bRes.err)
	}
	if bRes.reply != "Hi there" {
		t.Errorf("side B reply = %q, want %q", bRes.reply, "Hi there")
	}

	// Keep the conversation going one more round so A's second call resolves.
	b2Ch := goExchange(s, "How are you?")
	a2Res := waitResult(t, a2Ch)
	if a2Res.err != nil {
		t.Fatalf("side A second exchange failed: %v", a2Res.err)
	}
	if a2Res.reply != "How are you?" {
		t.Errorf("side A second reply = %q, want %q", a2Res.reply, "How are you?")
	}

	// Release B's still-pending call by closing the session; this test only cares that
	// the first three turns paired correctly.
	s.Close(ReasonAdminClosed)
	waitResult(t, b2Ch)
}

func TestHandshakeUtteranceIsDiscarded(t *testing.T) {
	s := newTestSession(t)

	aCh := goExchange(s, "handshake ping that must never be seen")
	waitState(t, s, StateAwaitingPeer)

	bCh := goExchange(s, "first real message")
	waitResult(t, aCh)

	// A replies; B must observe A's second utterance, never the ping.
	goExchange(s, "second utterance")
	bRes := waitResult(t, bCh)
	if bRes.err != nil {
		t.Fatalf("side B exchange failed: %v", bRes.err)
	}
	if bRes.reply == "handshake ping that must never be seen" {
		t.Error("handshake ping was delivered to side B")
	}
	if bRes.reply != "second utterance" {
		t.Errorf("side B reply = %q, want %q", bRes.reply, "second utterance")
	}
}

func TestHandshakeTimeoutClosesSession(t *testing.T) {
	s := NewSession("s-hs", 50*time.Millisecond, testTurnBudget, nil)

	res := waitResult(t, goExchange(s, "ping"))
	if kind := errKind(t, res.err); kind != types.KindTimeout {
		t.Fatalf("handshake timeout kind = %v, want %v", kind, types.KindTimeout)
	}

	if !s.Closed() {
		t.Error("session should be closed after handshake timeout")
	}

	// A request routed to the closed session fails with session_gone.
	_, err := s.Exchange(context.Background(), "retry")
	if kind := errKind(t, err); kind != types.KindSessionGone {
		t.Errorf("closed session kind = %v, want %v", kind, types.KindSessionGone)
	}
}

func TestTurnTimeoutKeepsSessionUsable(t *testing.T) {
	s := NewSession("s-tt", testHandshakeBudget, 50*time.Millisecond, nil)

	aCh := goExchange(s, "ping")
	waitState(t, s, StateAwaitingPeer)
	bCh := goExchange(s, "hello")
	waitResult(t, aCh)

	// Nobody answers B within the turn budget.
	bRes := waitResult(t, bCh)
	if kind := errKind(t, bRes.err); kind != types.KindTimeout {
		t.Fatalf("turn timeout kind = %v, want %v", kind, types.KindTimeout)
	}

	if s.Closed() {
		t.Fatal("turn timeout must not close the session")
	}
	if s.State() != StateActive {
		t.Errorf("state after turn timeout = %v, want %v", s.State(), StateActive)
	}
}

func TestTimeoutDoesNotRescindDeposit(t *testing.T) {
	s := NewSession("s-dep", testHandshakeBudget, 50*time.Millisecond, nil)

	aCh := goExchange(s, "ping")
	waitState(t, s, StateAwaitingPeer)
	bCh := goExchange(s, "hello")
	waitResult(t, aCh)

	// A deposits for B, then times out waiting for B's next utterance.
	// B already consumed its pending receive? No: B is waiting. Let B's
	// pending exchange consume A's deposit first.
	aRes := waitResult(t, goExchange(s, "for B"))
	bRes := waitResult(t, bCh)
	if bRes.err != nil {
		t.Fatalf("side B exchange failed: %v", bRes.err)
	}
	if bRes.reply != "for B" {
		t.Errorf("side B reply = %q, want %q", bRes.reply, "for B")
	}

	// A's own receive leg timed out, but the delivery stood.
	if kind := errKind(t, aRes.err); kind != types.KindTimeout {
		t.Errorf("side A kind = %v, want %v", kind, types.KindTimeout)
	}
}

func TestThirdConcurrentRequestConflicts(t *testing.T) {
	// Both conflict paths require states that only arise under concurrent
	// entry, so they are constructed directly.
	t.Run("both sides waiting", func(t *testing.T) {
		s := newTestSession(t)
		s.mu.Lock()
		s.state = StateActive
		s.sideAPresent = true
		s.sideBPresent = true
		s.waitingA = true
		s.waitingB = true
		s.mu.Unlock()

		_, err := s.Exchange(context.Background(), "intruder")
		if kind := errKind(t, err); kind != types.KindSessionConflict {
			t.Errorf("third participant kind = %v, want %v", kind, types.KindSessionConflict)
		}
	})

	t.Run("both deliveries queued", func(t *testing.T) {
		s := newTestSession(t)
		s.mu.Lock()
		s.state = StateActive
		s.sideAPresent = true
		s.sideBPresent = true
		s.aToB <- "queued for B"
		s.bToA <- "queued for A"
		s.mu.Unlock()

		_, err := s.Exchange(context.Background(), "intruder")
		if kind := errKind(t, err); kind != types.KindSessionConflict {
			t.Errorf("queued-deliveries kind = %v, want %v", kind, types.KindSessionConflict)
		}
	})
}

func TestConcurrentExchangesAllTerminate(t *testing.T) {
	// Randomized concurrency: hammer one session from many goroutines and
	// require every call to terminate with either a reply or a taxonomy
	// error within the budget (timeout liveness).
	s := NewSession("s-conc", 200*time.Millisecond, 200*time.Millisecond, nil)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.Exchange(context.Background(), "msg")
			if err != nil {
				var taxErr *types.Error
				if !errors.As(err, &taxErr) {
					errs <- err
				}
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent exchanges did not all terminate")
	}

	close(errs)
	for err := range errs {
		t.Errorf("non-taxonomy error escaped: %v", err)
	}
}

func TestCancellationDetachesWaiter(t *testing.T) {
	s := newTestSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	aCh := goExchangeCtx(ctx, s, "ping")
	waitState(t, s, StateAwaitingPeer)

	cancel()
	res := waitResult(t, aCh)
	if kind := errKind(t, res.err); kind != types.KindTimeout {
		t.Errorf("cancelled exchange kind = %v, want %v", kind, types.KindTimeout)
	}
}

func TestCloseWakesAllWaiters(t *testing.T) {
	s := newTestSession(t)

	aCh := goExchange(s, "ping")
	waitState(t, s, StateAwaitingPeer)

	s.Close(ReasonAdminClosed)

	res := waitResult(t, aCh)
	if kind := errKind(t, res.err); kind != types.KindSessionGone {
		t.Errorf("close wake kind = %v, want %v", kind, types.KindSessionGone)
	}
}

func TestCloseWithTTLReasonYieldsTimeout(t *testing.T) {
	s := newTestSession(t)

	aCh := goExchange(s, "ping")
	waitState(t, s, StateAwaitingPeer)

	s.Close(ReasonTTLExpired)

	res := waitResult(t, aCh)
	if kind := errKind(t, res.err); kind != types.KindTimeout {
		t.Errorf("TTL close wake kind = %v, want %v", kind, types.KindTimeout)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	sink := &countingSink{}
	s := NewSession("s-idem", testHandshakeBudget, testTurnBudget, sink)

	s.Close(ReasonAdminClosed)
	s.Close(ReasonTTLExpired)
	s.Close(ReasonShutdown)

	if got := sink.closed(); got != 1 {
		t.Errorf("close notifications = %d, want 1", got)
	}
	if s.State() != StateClosed {
		t.Errorf("state = %v, want %v", s.State(), StateClosed)
	}
}

func TestActivityTracking(t *testing.T) {
	s := newTestSession(t)

	if s.IsIdleFor(0) == false {
		// A fresh session is idle for ~0; IsIdleFor(0) must hold.
		t.Error("IsIdleFor(0) = false on fresh session")
	}
	if s.IsIdleFor(time.Hour) {
		t.Error("fresh session reported idle for an hour")
	}

	info := s.Info()
	if info.ID != "s-test" {
		t.Errorf("info id = %q, want %q", info.ID, "s-test")
	}
	if info.State != string(StateEmpty) {
		t.Errorf("info state = %q, want %q", info.State, StateEmpty)
	}
	if info.Turns != 0 {
		t.Errorf("info turns = %d, want 0", info.Turns)
	}
}

func TestDeliveryUniqueness(t *testing.T) {
	// Drive several full rounds and check every delivered reply is unique
	// and was sent exactly once by the peer.
	s := NewSession("s-uniq", 2*time.Second, 2*time.Second, nil)

	aCh := goExchange(s, "ping")
	waitState(t, s, StateAwaitingPeer)
	bCh := goExchange(s, "b-0")

	aRes := waitResult(t, aCh)
	if aRes.reply != "b-0" {
		t.Fatalf("round 0: side A reply = %q, want b-0", aRes.reply)
	}

	seen := map[string]bool{"b-0": true}
	for i := 1; i <= 5; i++ {
		aMsg := "a-" + string(rune('0'+i))
		bMsg := "b-" + string(rune('0'+i))

		a2 := goExchange(s, aMsg)
		bRes := waitResult(t, bCh)
		if bRes.err != nil {
			t.Fatalf("round %d: side B failed: %v", i, bRes.err)
		}
		if bRes.reply != aMsg {
			t.Fatalf("round %d: side B reply = %q, want %q", i, bRes.reply, aMsg)
		}
		if seen[bRes.reply] {
			t.Fatalf("round %d: reply %q observed twice", i, bRes.reply)
		}
		seen[bRes.reply] = true

		bCh = goExchange(s, bMsg)
		aRes := waitResult(t, a2)
		if aRes.err != nil {
			t.Fatalf("round %d: side A failed: %v", i, aRes.err)
		}
		if aRes.reply != bMsg {
			t.Fatalf("round %d: side A reply = %q, want %q", i, aRes.reply, bMsg)
		}
		if seen[aRes.reply] {
			t.Fatalf("round %d: reply %q observed twice", i, aRes.reply)
		}
		seen[aRes.reply] = true
	}

	s.Close(ReasonAdminClosed)
	waitResult(t, bCh)
}

// countingSink counts lifecycle notifications.
type countingSink struct {
	mu          sync.Mutex
	createdN    int
	pairedN     int
	closedN     int
	lastReason  CloseReason
	lastSession string
}

func (c *countingSink) SessionCreated(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createdN++
	c.lastSession = id
}

func (c *countingSink) SessionPaired(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairedN++
}

func (c *countingSink) SessionClosed(id string, reason CloseReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closedN++
	c.lastReason = reason
}

func (c *countingSink) closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closedN
}

func (c *countingSink) paired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pairedN
}

// waitState polls until the session reaches the given state.
func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("session never reached state %v (now %v)", want, s.State())
}
