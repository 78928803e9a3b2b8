package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	zmq "github.com/pebbe/zmq4"
)

func listen(t *testing.T) *Router {
	t.Helper()
	r, err := Listen("tcp://127.0.0.1:*")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func peer(t *testing.T, typ zmq.Type, id, endpoint string) *zmq.Socket {
	t.Helper()
	s, err := zmq.NewSocket(typ)
	if err != nil {
		t.Fatal(err)
	}
	s.SetLinger(0)
	if id != "" {
		if err := s.SetIdentity(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Connect(endpoint); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRequestReply(t *testing.T) {
	r := listen(t)
	req := peer(t, zmq.REQ, "peer-1", r.Endpoint())

	if _, err := req.Send("PUT [news] hello world", 0); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := r.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if msg.Identity != "peer-1" || msg.Body != "PUT [news] hello world" {
		t.Fatalf("Recv = %+v", msg)
	}

	if err := r.Reply(msg.Identity, "OK"); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	got, err := req.Recv(0)
	if err != nil || got != "OK" {
		t.Fatalf("peer got %q, %v", got, err)
	}
}

func TestSameIdentityTakesOver(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r := listen(t)

	// first peer sends a request and never sees its reply, like a crashed client
	stale := peer(t, zmq.REQ, "alice", r.Endpoint())
	if _, err := stale.Send("GET [news]", 0); err != nil {
		t.Fatal(err)
	}
	if msg, err := r.Recv(ctx); err != nil || msg.Identity != "alice" {
		t.Fatalf("Recv = %+v, %v", msg, err)
	}

	fresh := peer(t, zmq.REQ, "alice", r.Endpoint())
	if _, err := fresh.Send("ONLINE", 0); err != nil {
		t.Fatal(err)
	}
	msg, err := r.Recv(ctx)
	if err != nil || msg.Identity != "alice" || msg.Body != "ONLINE" {
		t.Fatalf("Recv = %+v, %v", msg, err)
	}
	if err := r.Reply("alice", "OK"); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	poller := zmq.NewPoller()
	poller.Add(fresh, zmq.POLLIN)
	polled, err := poller.Poll(5 * time.Second)
	if err != nil || len(polled) == 0 {
		t.Fatalf("reconnected peer got no reply: %v", err)
	}
	if got, err := fresh.Recv(0); err != nil || got != "OK" {
		t.Fatalf("reconnected peer got %q, %v", got, err)
	}
}

func TestReplyToUnknownPeerFails(t *testing.T) {
	r := listen(t)
	if err := r.Reply("nobody", "OK hello"); err == nil {
		t.Fatal("Reply to unknown peer succeeded")
	}
}

func TestRecvRejectsMissingDelimiter(t *testing.T) {
	r := listen(t)
	d := peer(t, zmq.DEALER, "dealer-1", r.Endpoint())
	if _, err := d.Send("GET [news]", 0); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.Recv(ctx); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Recv = %v, want ErrMalformed", err)
	}
}

func TestRecvStopsOnContext(t *testing.T) {
	r := listen(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if _, err := r.Recv(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Recv = %v, want DeadlineExceeded", err)
	}
}

func TestClosedRouter(t *testing.T) {
	r := listen(t)
	r.Close()

	if _, err := r.Recv(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Recv after Close = %v", err)
	}
	if err := r.Reply("peer-1", "OK"); !errors.Is(err, ErrClosed) {
		t.Errorf("Reply after Close = %v", err)
	}
	if ep := r.Endpoint(); ep != "" {
		t.Errorf("Endpoint after Close = %q", ep)
	}
}
