// Package transport carries text requests and replies over a ZeroMQ ROUTER
// socket. Peers are REQ sockets; the envelope of every message is
// [identity, "", body].
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	zmq "github.com/pebbe/zmq4"
)

// how often a blocked Recv checks its context
const pollInterval = 250 * time.Millisecond

// Message is one inbound request with the identity of the peer that sent it.
type Message struct {
	Identity string
	Body     string
}

// Router owns a bound ROUTER socket. The socket is not safe for concurrent
// use, so Recv and Reply must run on the same goroutine; mu only protects
// Close against them.
type Router struct {
	mu     sync.Mutex
	sock   *zmq.Socket
	poller *zmq.Poller
}

// Listen binds a ROUTER socket to endpoint, e.g. "tcp://*:5559".
func Listen(endpoint string) (*Router, error) {
	sock, err := zmq.NewSocket(zmq.ROUTER)
	if err != nil {
		return nil, fmt.Errorf("failed to create ROUTER socket: %w", err)
	}

	// Replies to peers the socket no longer knows fail instead of being dropped.
	if err := sock.SetRouterMandatory(1); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set router mandatory: %w", err)
	}
	// A peer reconnecting under an identity the socket still holds takes it
	// over, so a client that crashed can come back with ONLINE.
	if err := sock.SetRouterHandover(true); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set router handover: %w", err)
	}
	if err := sock.SetLinger(time.Second); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set linger: %w", err)
	}
	if err := sock.Bind(endpoint); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to bind %s: %w", endpoint, err)
	}

	poller := zmq.NewPoller()
	poller.Add(sock, zmq.POLLIN)

	r := &Router{sock: sock, poller: poller}
	glog.Infof("[Router] listening on %s", r.Endpoint())
	return r, nil
}

// Endpoint returns the bound endpoint with any wildcard port resolved.
func (r *Router) Endpoint() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sock == nil {
		return ""
	}
	ep, err := r.sock.GetLastEndpoint()
	if err != nil {
		return ""
	}
	return ep
}

// Recv blocks until a request arrives or ctx is done. Frames that do not
// match the REQ envelope are dropped with ErrMalformed.
func (r *Router) Recv(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		r.mu.Lock()
		if r.sock == nil {
			r.mu.Unlock()
			return Message{}, ErrClosed
		}
		polled, err := r.poller.Poll(pollInterval)
		if err != nil {
			r.mu.Unlock()
			return Message{}, fmt.Errorf("poll: %w", err)
		}
		if len(polled) == 0 {
			r.mu.Unlock()
			continue
		}
		// leave a late request unread once ctx is done
		if err := ctx.Err(); err != nil {
			r.mu.Unlock()
			return Message{}, err
		}
		parts, err := r.sock.RecvMessageBytes(0)
		r.mu.Unlock()
		if err != nil {
			return Message{}, fmt.Errorf("recv: %w", err)
		}

		if len(parts) != 3 || len(parts[1]) != 0 {
			return Message{}, fmt.Errorf("%w: %d frame(s)", ErrMalformed, len(parts))
		}
		return Message{Identity: string(parts[0]), Body: string(parts[2])}, nil
	}
}

// Reply sends text to the peer with the given identity. It fails when the
// peer is not connected.
func (r *Router) Reply(identity, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sock == nil {
		return ErrClosed
	}
	if _, err := r.sock.SendMessage(identity, "", text); err != nil {
		return fmt.Errorf("send to %s: %w", identity, err)
	}
	return nil
}

// Close releases the socket.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sock == nil {
		return nil
	}
	err := r.sock.Close()
	r.sock = nil
	return err
}
