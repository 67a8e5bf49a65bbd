package pgstore

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-rails/coursekit/audit"
)

// AuditStore appends audit entries. There is no update or delete path.
type AuditStore struct {
	pg     *pgxpool.Pool
	schema string
}

func NewAuditStore(pg *pgxpool.Pool, schema string) *AuditStore {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = defaultSchema
	}
	return &AuditStore{pg: pg, schema: s}
}

func (s *AuditStore) table() string { return s.schema + ".audit_entries" }

// Record appends entries in one batch.
func (s *AuditStore) Record(ctx context.Context, entries []audit.Entry) error {
	if s.pg == nil || len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`INSERT INTO `+s.table()+`
			(school_id, entity_type, entity_id, action, actor_id, metadata, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
			e.SchoolID, string(e.EntityType), e.EntityID, e.Action, e.ActorID, e.Metadata)
	}
	br := s.pg.SendBatch(ctx, batch)
	defer br.Close()
	for range entries {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
