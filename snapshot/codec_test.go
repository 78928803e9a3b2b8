package snapshot

import (
	"errors"
	"reflect"
	"testing"

	"github.com/alphauslabs/qbroker/storage"
	"github.com/vmihailenco/msgpack/v5"
)

func populated() *storage.State {
	s := storage.NewState()
	s.Subscribe("news", "alice")
	s.Subscribe("news", "bob")
	s.Subscribe("x", "dave")
	s.Subscribe("idle", "carol")
	s.Unsubscribe("idle", "carol")
	for _, m := range []string{"one", "two", "three with spaces"} {
		s.Publish("news", m, nil)
	}
	ok := func(string, string) error { return nil }
	s.Get("news", "bob", ok)
	s.Get("x", "dave", ok)
	return s
}

func TestRoundTrip(t *testing.T) {
	src := populated()
	topics, pending := src.Export()

	tb, err := EncodeTopics("ckpt-1", topics)
	if err != nil {
		t.Fatalf("EncodeTopics: %v", err)
	}
	pb, err := EncodePending("ckpt-1", pending)
	if err != nil {
		t.Fatalf("EncodePending: %v", err)
	}

	gotTopics, h, err := DecodeTopics(tb)
	if err != nil {
		t.Fatalf("DecodeTopics: %v", err)
	}
	if h.ID != "ckpt-1" || h.Version != version {
		t.Fatalf("unexpected header %+v", h)
	}
	gotPending, _, err := DecodePending(pb)
	if err != nil {
		t.Fatalf("DecodePending: %v", err)
	}

	dst := storage.NewState()
	dst.Import(gotTopics, gotPending)
	t2, p2 := dst.Export()
	if !reflect.DeepEqual(topics, t2) {
		t.Errorf("topics: got %v, want %v", t2, topics)
	}
	if !reflect.DeepEqual(pending, p2) {
		t.Errorf("pending: got %v, want %v", p2, pending)
	}
	if _, ok := t2["idle"]; !ok {
		t.Error("empty topic not restored")
	}
}

func TestRoundTripEmpty(t *testing.T) {
	b, err := EncodeTopics("", storage.TopicTable{})
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := DecodeTopics(b)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{"garbage", func(*testing.T) []byte { return []byte{0xc1, 0x00, 0xff} }},
		{"truncated", func(t *testing.T) []byte {
			b, _ := EncodeTopics("x", storage.TopicTable{"t": {"a": {"m"}}})
			return b[:len(b)/2]
		}},
		{"wrong version", func(t *testing.T) []byte {
			b, err := msgpack.Marshal(&topicsDoc{Header: Header{Version: 99}})
			if err != nil {
				t.Fatal(err)
			}
			return b
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeTopics(tt.data(t)); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("got %v, want ErrCorrupt", err)
			}
		})
	}
}
