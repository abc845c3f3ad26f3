package ws

import (
	"errors"
	"testing"
	"time"
)

type fakeConn struct {
	frames   []Frame
	failSend bool
	alive    bool
	probes   int
	closed   bool
}

func newFakeConn() *fakeConn { return &fakeConn{alive: true} }

func (c *fakeConn) Send(f Frame) error {
	if c.failSend {
		return errors.New("send failed")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Probe() error {
	c.alive = false
	c.probes++
	return nil
}

func (c *fakeConn) Alive() bool { return c.alive }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestHub_JoinIdempotent(t *testing.T) {
	h := NewHub(time.Minute)
	c := newFakeConn()
	h.Register(c)

	h.Join(c, 42)
	h.Join(c, 42)

	h.Broadcast(42, Frame{Type: TypeChat, SubjectID: 42, Content: "hello"})
	if len(c.frames) != 1 {
		t.Fatalf("connection received %d frames, want 1", len(c.frames))
	}
}

func TestHub_BroadcastFanOut(t *testing.T) {
	h := NewHub(time.Minute)
	conns := []*fakeConn{newFakeConn(), newFakeConn(), newFakeConn()}
	for _, c := range conns {
		h.Register(c)
		h.Join(c, 42)
	}
	conns[1].failSend = true

	h.Broadcast(42, Frame{Type: TypeChat, SubjectID: 42, Content: "hello"})

	if len(conns[0].frames) != 1 || len(conns[2].frames) != 1 {
		t.Fatalf("healthy connections got %d/%d frames, want 1/1",
			len(conns[0].frames), len(conns[2].frames))
	}
	if !conns[1].closed {
		t.Fatal("failing connection must be closed")
	}
	if got := h.Count(); got != 2 {
		t.Fatalf("hub tracks %d connections after failure, want 2", got)
	}
}

func TestHub_BroadcastExceptSkipsOrigin(t *testing.T) {
	h := NewHub(time.Minute)
	origin, other := newFakeConn(), newFakeConn()
	for _, c := range []*fakeConn{origin, other} {
		h.Register(c)
		h.Join(c, 7)
	}

	h.BroadcastExcept(7, Frame{Type: TypeChat, SubjectID: 7, Content: "relay"}, origin)

	if len(origin.frames) != 0 {
		t.Fatalf("origin received %d frames, want 0", len(origin.frames))
	}
	if len(other.frames) != 1 {
		t.Fatalf("other connection received %d frames, want 1", len(other.frames))
	}
}

func TestHub_BroadcastUnknownSubject(t *testing.T) {
	h := NewHub(time.Minute)
	c := newFakeConn()
	h.Register(c)
	h.Join(c, 1)

	h.Broadcast(999, Frame{Type: TypeChat, SubjectID: 999, Content: "nobody"})
	if len(c.frames) != 0 {
		t.Fatalf("connection received %d frames for a foreign subject, want 0", len(c.frames))
	}
}

func TestHub_MembershipDoesNotValidateSubjects(t *testing.T) {
	h := NewHub(time.Minute)
	c := newFakeConn()
	h.Register(c)

	// unknown subject ids are accepted; a connection may join several
	h.Join(c, 42)
	h.Join(c, 10_000_000)

	h.Broadcast(10_000_000, Frame{Type: TypeChat, SubjectID: 10_000_000, Content: "hi"})
	if len(c.frames) != 1 {
		t.Fatalf("connection received %d frames, want 1", len(c.frames))
	}
}

func TestHub_SweepEvictsAfterTwoMissedProbes(t *testing.T) {
	h := NewHub(time.Minute)
	dead, live := newFakeConn(), newFakeConn()
	for _, c := range []*fakeConn{dead, live} {
		h.Register(c)
		h.Join(c, 42)
	}

	// first sweep: both alive, both get probed
	h.sweep()
	if dead.closed || live.closed {
		t.Fatal("no connection may be evicted on the first sweep")
	}
	if dead.probes != 1 || live.probes != 1 {
		t.Fatalf("probes = %d/%d, want 1/1", dead.probes, live.probes)
	}

	// only live acknowledges its probe
	live.alive = true

	// second sweep: dead never acked and is evicted
	h.sweep()
	if !dead.closed {
		t.Fatal("connection without probe ack must be closed on the second sweep")
	}
	if live.closed {
		t.Fatal("acknowledging connection must survive")
	}
	if got := h.Count(); got != 1 {
		t.Fatalf("hub tracks %d connections, want 1", got)
	}

	// evicted connection receives no further broadcasts
	h.Broadcast(42, Frame{Type: TypeChat, SubjectID: 42, Content: "after"})
	if len(dead.frames) != 0 {
		t.Fatalf("evicted connection received %d frames, want 0", len(dead.frames))
	}
	if len(live.frames) != 1 {
		t.Fatalf("surviving connection received %d frames, want 1", len(live.frames))
	}
}

func TestHub_UnregisterClearsMembership(t *testing.T) {
	h := NewHub(time.Minute)
	c := newFakeConn()
	h.Register(c)
	h.Join(c, 42)

	h.Unregister(c)

	h.Broadcast(42, Frame{Type: TypeChat, SubjectID: 42, Content: "gone"})
	if len(c.frames) != 0 {
		t.Fatalf("unregistered connection received %d frames, want 0", len(c.frames))
	}
	if got := h.Count(); got != 0 {
		t.Fatalf("hub tracks %d connections, want 0", got)
	}
}
