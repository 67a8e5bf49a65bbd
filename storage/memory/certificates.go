package memorystore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/audit"
	"github.com/open-rails/coursekit/certificates"
	"github.com/open-rails/coursekit/core"
)

// CertificateStore is an in-memory certificates.Store. It enforces the same
// (school, user, course) uniqueness contract as the postgres index.
type CertificateStore struct {
	mu   sync.Mutex
	rows map[string]certificates.Certificate
}

func NewCertificateStore() *CertificateStore {
	return &CertificateStore{rows: make(map[string]certificates.Certificate)}
}

func certKey(schoolID, userID, courseID uuid.UUID) string {
	return schoolID.String() + ":" + userID.String() + ":" + courseID.String()
}

func (s *CertificateStore) Get(ctx context.Context, schoolID, userID, courseID uuid.UUID) (*certificates.Certificate, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[certKey(schoolID, userID, courseID)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *CertificateStore) Create(ctx context.Context, cert *certificates.Certificate) error {
	_ = ctx
	if cert == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := certKey(cert.SchoolID, cert.UserID, cert.CourseID)
	if _, exists := s.rows[key]; exists {
		return core.ErrConflict
	}
	s.rows[key] = *cert
	return nil
}

// AuditStore is an in-memory audit.Sink that keeps entries in append order.
type AuditStore struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Record(ctx context.Context, entries []audit.Entry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

// Entries returns a copy of everything recorded, for assertions.
func (s *AuditStore) Entries() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
