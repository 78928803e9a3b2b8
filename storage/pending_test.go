package storage

import (
	"errors"
	"reflect"
	"testing"
)

type delivery struct{ sub, payload string }

func recorder(fail map[string]bool) (ReplyFunc, *[]delivery) {
	var got []delivery
	return func(sub, payload string) error {
		got = append(got, delivery{sub, payload})
		if fail[sub] {
			return errors.New("host unreachable")
		}
		return nil
	}, &got
}

func TestResolveDeliversToWaiters(t *testing.T) {
	r := NewRegistry()
	p := NewPending()
	r.Subscribe("news", "alice")
	r.Subscribe("news", "bob")
	p.Record("news", "alice")

	r.Publish("news", "hello")
	reply, got := recorder(nil)
	if n := p.Resolve("news", r, reply); n != 1 {
		t.Fatalf("delivered %d, want 1", n)
	}
	if want := []delivery{{"alice", "hello"}}; !reflect.DeepEqual(*got, want) {
		t.Fatalf("got %v, want %v", *got, want)
	}
	if p.IsWaiting("news", "alice") {
		t.Fatal("alice still waiting")
	}
	if _, ok := p.Export()["news"]; ok {
		t.Fatal("empty wait set not deleted")
	}
	// bob did not ask, his copy stays queued
	if r.Len("news", "bob") != 1 || r.Len("news", "alice") != 0 {
		t.Fatalf("unexpected queues: %v", r.Export())
	}
}

func TestResolveRequeuesOnFailure(t *testing.T) {
	r := NewRegistry()
	p := NewPending()
	r.Subscribe("news", "alice")
	p.Record("news", "alice")
	r.Publish("news", "m1")
	r.Publish("news", "m2")

	reply, got := recorder(map[string]bool{"alice": true})
	if n := p.Resolve("news", r, reply); n != 0 {
		t.Fatalf("delivered %d, want 0", n)
	}
	if len(*got) != 1 {
		t.Fatalf("got %d attempts, want exactly one", len(*got))
	}
	if q := r.Export()["news"]["alice"]; !reflect.DeepEqual(q, []string{"m1", "m2"}) {
		t.Fatalf("payload lost or reordered: %v", q)
	}
	if p.IsWaiting("news", "alice") {
		t.Fatal("failed waiter should leave the wait set")
	}

	// next opportunity gets the same head
	if v, res := r.Take("news", "alice"); res != Value || v != "m1" {
		t.Fatalf("got (%q, %v), want m1", v, res)
	}
}

func TestResolveDropsVanishedWaiter(t *testing.T) {
	r := NewRegistry()
	p := NewPending()
	r.Subscribe("news", "alice")
	p.Record("news", "alice")
	r.Unsubscribe("news", "alice")
	r.Publish("news", "m1")

	reply, got := recorder(nil)
	p.Resolve("news", r, reply)
	if len(*got) != 0 {
		t.Fatalf("unexpected deliveries: %v", *got)
	}
	if p.IsWaiting("news", "alice") {
		t.Fatal("waiter kept")
	}
}

func TestResolveWithoutWaiters(t *testing.T) {
	r := NewRegistry()
	p := NewPending()
	reply, got := recorder(nil)
	if n := p.Resolve("none", r, reply); n != 0 || len(*got) != 0 {
		t.Fatal("resolve without waiters replied")
	}
}

func TestClearSubscriber(t *testing.T) {
	p := NewPending()
	p.Record("a", "eve")
	p.Record("b", "eve")
	p.Record("b", "frank")

	if got := p.ClearSubscriber("eve"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got %v", got)
	}
	want := PendingTable{"b": {"frank"}}
	if got := p.Export(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if p.Clear("b", "eve") {
		t.Fatal("clear of absent waiter reported true")
	}
}

func TestRecordIsSet(t *testing.T) {
	p := NewPending()
	p.Record("t", "a")
	p.Record("t", "a")
	if got := p.Count()["t"]; got != 1 {
		t.Fatalf("got %d waiters, want 1", got)
	}
}

func TestLoadPendingRoundTrip(t *testing.T) {
	in := PendingTable{"t": {"a", "b"}, "u": {"c"}}
	if got := LoadPending(in).Export(); !reflect.DeepEqual(got, in) {
		t.Fatalf("got %v, want %v", got, in)
	}
}
