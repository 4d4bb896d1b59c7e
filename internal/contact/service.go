// AngelaMos | 2026
// service.go

package contact

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/contacts-backend/internal/core"
)

type Service struct {
	repo            Repository
	mutationTimeout time.Duration
}

func NewService(repo Repository, mutationTimeout time.Duration) *Service {
	if mutationTimeout <= 0 {
		mutationTimeout = 10 * time.Second
	}
	return &Service{repo: repo, mutationTimeout: mutationTimeout}
}

func (s *Service) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return core.Detached(ctx, s.mutationTimeout)
}

type ListResult struct {
	Contacts []Contact
	Total    int
	Page     int
	Limit    int
}

func (s *Service) List(
	ctx context.Context,
	ownerID string,
	params ListParams,
) (*ListResult, error) {
	ctx, span := core.StartSpan(ctx, "contact.List")
	defer span.End()

	q, err := NewQuery(ownerID, params)
	if err != nil {
		return nil, err
	}

	contacts, total, err := s.repo.List(ctx, q)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	core.AddSpanEvent(ctx, "contacts.listed",
		attribute.Int("contacts.page", q.Page()),
		attribute.Int("contacts.total", total),
	)

	return &ListResult{
		Contacts: contacts,
		Total:    total,
		Page:     q.Page(),
		Limit:    q.Limit(),
	}, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*Contact, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

func (s *Service) Create(
	ctx context.Context,
	ownerID string,
	req CreateContactRequest,
) (*Contact, error) {
	c := &Contact{
		ID:       uuid.New().String(),
		OwnerID:  ownerID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Favorite: req.Favorite,
	}

	mctx, cancel := s.detached(ctx)
	defer cancel()

	if err := s.repo.Create(mctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// Update applies a partial update. A request with no fields is rejected.
func (s *Service) Update(
	ctx context.Context,
	ownerID, id string,
	req UpdateContactRequest,
) (*Contact, error) {
	changes := req.Changes()
	if changes.IsEmpty() {
		return nil, fmt.Errorf("update contact: missing fields: %w", core.ErrInvalidInput)
	}

	mctx, cancel := s.detached(ctx)
	defer cancel()

	return s.repo.Update(mctx, ownerID, id, changes)
}

func (s *Service) SetFavorite(
	ctx context.Context,
	ownerID, id string,
	favorite bool,
) (*Contact, error) {
	mctx, cancel := s.detached(ctx)
	defer cancel()

	return s.repo.SetFavorite(mctx, ownerID, id, favorite)
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) (*Contact, error) {
	mctx, cancel := s.detached(ctx)
	defer cancel()

	return s.repo.Delete(mctx, ownerID, id)
}
