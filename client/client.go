// Package client talks to the broker over a ZeroMQ REQ socket.
//
// A REQ socket allows one outstanding request. Get on an empty queue blocks
// until a matching PUT arrives; there is no server side timeout, so bound it
// with a context deadline if needed. A Conn whose request was abandoned this
// way is unusable: Close it and Dial again with the same identity, which
// tells the broker to forget the abandoned GET.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	zmq "github.com/pebbe/zmq4"
)

const DefaultEndpoint = "tcp://localhost:5559"

const pollInterval = 100 * time.Millisecond

type Conn struct {
	id     string
	sock   *zmq.Socket
	poller *zmq.Poller
	broken bool
}

// Dial connects with the given identity, or a random one when empty, and
// announces itself with ONLINE.
func Dial(ctx context.Context, endpoint, identity string) (*Conn, error) {
	if identity == "" {
		identity = uuid.NewString()
	}

	sock, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, fmt.Errorf("failed to create REQ socket: %w", err)
	}
	if err := sock.SetIdentity(identity); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set identity: %w", err)
	}
	sock.SetLinger(0)
	if err := sock.Connect(endpoint); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to connect %s: %w", endpoint, err)
	}

	poller := zmq.NewPoller()
	poller.Add(sock, zmq.POLLIN)
	c := &Conn{id: identity, sock: sock, poller: poller}

	if _, err := c.do(ctx, "ONLINE"); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// ID returns the identity the broker knows this connection by.
func (c *Conn) ID() string { return c.id }

func (c *Conn) Subscribe(ctx context.Context, topic string) error {
	_, err := c.do(ctx, fmt.Sprintf("SUB [%s]", topic))
	return err
}

func (c *Conn) Unsubscribe(ctx context.Context, topic string) error {
	_, err := c.do(ctx, fmt.Sprintf("UNSUB [%s]", topic))
	return err
}

// Put publishes value to topic. Surrounding whitespace of value is not kept.
func (c *Conn) Put(ctx context.Context, topic, value string) error {
	_, err := c.do(ctx, fmt.Sprintf("PUT [%s] %s", topic, value))
	return err
}

// Get returns the next value of topic for this subscriber, waiting for one if
// the queue is empty.
func (c *Conn) Get(ctx context.Context, topic string) (string, error) {
	return c.do(ctx, fmt.Sprintf("GET [%s]", topic))
}

// Close releases the socket. Calling it again is a no-op.
func (c *Conn) Close() error {
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	return err
}

// do sends one command and waits for its reply. It returns the value part of
// an "OK <value>" reply.
func (c *Conn) do(ctx context.Context, cmd string) (string, error) {
	if c.sock == nil {
		return "", ErrClosed
	}
	if c.broken {
		return "", ErrBroken
	}
	glog.V(2).Infof("[Client] %s -> %s", c.id, cmd)
	if _, err := c.sock.Send(cmd, 0); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			c.broken = true
			return "", err
		}
		polled, err := c.poller.Poll(pollInterval)
		if err != nil {
			c.broken = true
			return "", fmt.Errorf("poll: %w", err)
		}
		if len(polled) > 0 {
			break
		}
	}

	reply, err := c.sock.Recv(0)
	if err != nil {
		c.broken = true
		return "", fmt.Errorf("recv: %w", err)
	}
	glog.V(2).Infof("[Client] %s <- %s", c.id, reply)
	return parseReply(reply)
}

func parseReply(reply string) (string, error) {
	code, value, _ := strings.Cut(reply, " ")
	switch code {
	case "OK":
		return value, nil
	case "NF":
		return "", ErrNotFound
	case "NS":
		return "", ErrNotSubscribed
	case "NOK":
		return "", ErrRejected
	default:
		return "", fmt.Errorf("unexpected reply %q", reply)
	}
}
