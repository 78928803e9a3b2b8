package snapshot

import (
	"bytes"
	"fmt"
	"time"

	"github.com/alphauslabs/qbroker/storage"
	"github.com/vmihailenco/msgpack/v5"
)

const version = 1

// Header is stored at the front of every document.
type Header struct {
	Version   int       `msgpack:"version"`
	ID        string    `msgpack:"id"`
	CreatedAt time.Time `msgpack:"createdAt"`
}

type topicsDoc struct {
	Header Header             `msgpack:"header"`
	Topics storage.TopicTable `msgpack:"topics"`
}

type pendingDoc struct {
	Header  Header               `msgpack:"header"`
	Pending storage.PendingTable `msgpack:"pending"`
}

func newHeader(id string) Header {
	return Header{Version: version, ID: id, CreatedAt: time.Now().UTC()}
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(b []byte, v any, h *Header) error {
	if err := msgpack.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if h.Version != version {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, h.Version)
	}
	return nil
}

// EncodeTopics serializes the topic table. id tags the checkpoint that wrote it.
func EncodeTopics(id string, t storage.TopicTable) ([]byte, error) {
	return encode(&topicsDoc{Header: newHeader(id), Topics: t})
}

// DecodeTopics is the inverse of EncodeTopics.
func DecodeTopics(b []byte) (storage.TopicTable, Header, error) {
	var doc topicsDoc
	if err := decode(b, &doc, &doc.Header); err != nil {
		return nil, Header{}, err
	}
	if doc.Topics == nil {
		doc.Topics = storage.TopicTable{}
	}
	return doc.Topics, doc.Header, nil
}

// EncodePending serializes the pending table.
func EncodePending(id string, p storage.PendingTable) ([]byte, error) {
	return encode(&pendingDoc{Header: newHeader(id), Pending: p})
}

// DecodePending is the inverse of EncodePending.
func DecodePending(b []byte) (storage.PendingTable, Header, error) {
	var doc pendingDoc
	if err := decode(b, &doc, &doc.Header); err != nil {
		return nil, Header{}, err
	}
	if doc.Pending == nil {
		doc.Pending = storage.PendingTable{}
	}
	return doc.Pending, doc.Header, nil
}
