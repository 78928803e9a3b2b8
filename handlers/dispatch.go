// Package handlers turns text commands into broker state operations and
// replies.
package handlers

import (
	"github.com/alphauslabs/qbroker/storage"
	"github.com/golang/glog"
)

const (
	Sub    = "SUB"
	Unsub  = "UNSUB"
	Get    = "GET"
	Put    = "PUT"
	Online = "ONLINE"
)

const (
	ReplyOK          = "OK"
	ReplyNotFound    = "NF"
	ReplyNotSubbed   = "NS"
	ReplyUnsupported = "NOK"
)

// Replier sends a reply to the peer with the given identity. An error means
// the reply did not leave the broker.
type Replier interface {
	Reply(identity, text string) error
}

type Dispatcher struct {
	state *storage.State
	out   Replier
}

func New(state *storage.State, out Replier) *Dispatcher {
	return &Dispatcher{state: state, out: out}
}

var commands = map[string]func(*Dispatcher, string, Request){
	Sub:    handleSub,
	Unsub:  handleUnsub,
	Get:    handleGet,
	Put:    handlePut,
	Online: handleOnline,
}

// Handle processes one request from sender. Every request gets exactly one
// reply, except a GET on an empty queue, whose reply is sent later by the
// PUT that satisfies it.
func (d *Dispatcher) Handle(sender, line string) {
	req, err := Parse(line)
	if err != nil {
		glog.Warningf("[Dispatcher] %s: %v", sender, err)
		d.send(sender, ReplyUnsupported)
		return
	}
	glog.V(1).Infof("[Dispatcher] %s %s [%s]", sender, req.Action, req.Topic)
	commands[req.Action](d, sender, req)
}

// deliver formats a payload reply; it is the ReplyFunc handed to the state.
func (d *Dispatcher) deliver(sub, payload string) error {
	return d.out.Reply(sub, ReplyOK+" "+payload)
}

// send transmits a status reply. Nothing depends on it arriving, so a
// failure is only logged.
func (d *Dispatcher) send(sender, text string) {
	if err := d.out.Reply(sender, text); err != nil {
		glog.Errorf("[Dispatcher] reply %q to %s failed: %v", text, sender, err)
	}
}

func handleSub(d *Dispatcher, sender string, req Request) {
	d.state.Subscribe(req.Topic, sender)
	d.send(sender, ReplyOK)
}

func handleUnsub(d *Dispatcher, sender string, req Request) {
	d.state.Unsubscribe(req.Topic, sender)
	d.send(sender, ReplyOK)
}

func handleGet(d *Dispatcher, sender string, req Request) {
	res, err := d.state.Get(req.Topic, sender, d.deliver)
	switch res {
	case storage.Value:
		if err != nil {
			glog.Warningf("[Dispatcher] GET reply to %s on %q failed, requeued: %v", sender, req.Topic, err)
		}
	case storage.Empty:
		glog.V(1).Infof("[Dispatcher] GET from %s on %q deferred", sender, req.Topic)
	case storage.NotSubscribed:
		d.send(sender, ReplyNotSubbed)
	case storage.NotFound:
		d.send(sender, ReplyNotFound)
	}
}

func handlePut(d *Dispatcher, sender string, req Request) {
	if n := d.state.Publish(req.Topic, req.Payload, d.deliver); n > 0 {
		glog.V(1).Infof("[Dispatcher] PUT on %q resolved %d pending GET(s)", req.Topic, n)
	}
	d.send(sender, ReplyOK)
}

func handleOnline(d *Dispatcher, sender string, _ Request) {
	if topics := d.state.Online(sender); len(topics) > 0 {
		glog.Infof("[Dispatcher] %s back online, dropped pending GET(s) on %v", sender, topics)
	}
	d.send(sender, ReplyOK)
}
