package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/urls-node/internal/dbconn"
)

// maxInsertAttempts bounds how often a colliding identifier is regenerated.
const maxInsertAttempts = 3

// ConnectionProvider hands out leases on the data-store connection.
type ConnectionProvider interface {
	Acquire(ctx context.Context) (*dbconn.Lease, error)
}

// RepositoryFactory binds a Repository to an acquired connection.
type RepositoryFactory func(conn dbconn.Conn) Repository

// CreateRequest is the input of Service.Create.
type CreateRequest struct {
	URL         string
	RequesterIP string
	Origin      Origin
}

// CreateResult is the output of Service.Create.
type CreateResult struct {
	Mapping  *Mapping
	ShortURL string
}

// Service runs the create and resolve operations. Every call acquires a
// connection, performs one store operation and releases the connection on every
// exit path.
type Service struct {
	conns        ConnectionProvider
	repository   RepositoryFactory
	generateCode CodeGenerator
	now          func() time.Time
}

// NewService creates a Service.
func NewService(conns ConnectionProvider, repository RepositoryFactory, generator CodeGenerator) *Service {
	return &Service{
		conns:        conns,
		repository:   repository,
		generateCode: generator,
		now:          time.Now,
	}
}

// WithClock overrides the clock used for CreatedAt.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now

	return s
}

// Create stores a new mapping for req.URL and returns its short URL.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	lease, err := s.conns.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	repo := s.repository(lease.Conn())

	for range maxInsertAttempts {
		mapping := &Mapping{
			ShortID:     ShortID(s.generateCode()),
			URL:         req.URL,
			CreatedAt:   s.now().UTC(),
			RequesterIP: req.RequesterIP,
		}

		err = repo.Insert(ctx, mapping)
		if errors.Is(err, ErrDuplicateID) {
			continue
		}

		if err != nil {
			return nil, err
		}

		return &CreateResult{
			Mapping:  mapping,
			ShortURL: req.Origin.ShortURL(mapping.ShortID),
		}, nil
	}

	return nil, fmt.Errorf("%w: no free short id after %d attempts: %w", ErrWriteFailed, maxInsertAttempts, err)
}

// Resolve returns the original URL for id, or ErrNotFound.
func (s *Service) Resolve(ctx context.Context, id ShortID) (string, error) {
	lease, err := s.conns.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer lease.Release(ctx)

	mapping, err := s.repository(lease.Conn()).FindByShortID(ctx, id)
	if err != nil {
		return "", err
	}

	return mapping.URL, nil
}
