package snapshot

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// SnapshotsTable is the Spanner table used by SpannerStore:
//
//	CREATE TABLE Snapshots (
//	  slot STRING(64) NOT NULL,
//	  data BYTES(MAX),
//	  updatedAt TIMESTAMP OPTIONS (allow_commit_timestamp=true),
//	) PRIMARY KEY (slot)
const SnapshotsTable = "Snapshots"

// SpannerStore keeps each slot as one row of SnapshotsTable. A single
// InsertOrUpdate mutation replaces the row atomically.
type SpannerStore struct {
	client *spanner.Client
}

// NewSpannerStore connects to db, e.g. "projects/p/instances/i/databases/d".
func NewSpannerStore(ctx context.Context, db string, opts ...option.ClientOption) (*SpannerStore, error) {
	client, err := spanner.NewClient(ctx, db, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spanner client: %w", err)
	}
	return &SpannerStore{client: client}, nil
}

func (s *SpannerStore) Save(ctx context.Context, slot Slot, data []byte) error {
	_, err := s.client.Apply(ctx, []*spanner.Mutation{
		spanner.InsertOrUpdate(SnapshotsTable,
			[]string{"slot", "data", "updatedAt"},
			[]any{string(slot), data, spanner.CommitTimestamp},
		),
	})
	if err != nil {
		return fmt.Errorf("write %s to Spanner: %w", slot, err)
	}
	return nil
}

func (s *SpannerStore) Load(ctx context.Context, slot Slot) ([]byte, error) {
	row, err := s.client.Single().ReadRow(ctx, SnapshotsTable, spanner.Key{string(slot)}, []string{"data"})
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	var data []byte
	if err := row.Columns(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return data, nil
}

func (s *SpannerStore) Close() error {
	s.client.Close()
	return nil
}
