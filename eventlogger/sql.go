package eventlogger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

var _ Store = (*sqlStore)(nil)

type sqlStore struct {
	db *sql.DB
}

// NewSQLStore writes events to the events table. Data and metadata are
// stored as JSONB.
func NewSQLStore(db *sql.DB) *sqlStore {
	return &sqlStore{db: db}
}

func (s *sqlStore) Save(ctx context.Context, e Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encoding %s data: %w", e.Type, err)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encoding %s metadata: %w", e.Type, err)
	}

	query := `INSERT INTO events (id, event_type, event_data, event_metadata, created_at)
              VALUES ($1, $2, $3, $4, $5)
              ON CONFLICT (id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, e.ID, e.Type, data, metadata, e.CreatedAt); err != nil {
		return fmt.Errorf("inserting %s event: %w", e.Type, err)
	}
	return nil
}
