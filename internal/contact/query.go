// AngelaMos | 2026
// query.go

package contact

import (
	"fmt"
	"math"
	"strings"

	"github.com/carterperez-dev/contacts-backend/internal/core"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit inside int for every accepted limit.
	MaxPage = math.MaxInt / MaxLimit
)

// ListParams is the client-controlled part of a listing. The owner is never
// taken from here.
type ListParams struct {
	Page     int
	Limit    int
	Favorite *bool
	Name     string
	Email    string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
}

// Query is an owner-scoped listing of contacts. It is built once per request
// by NewQuery and never changes afterwards; pass it by value.
type Query struct {
	ownerID     string
	page        int
	limit       int
	hasFavorite bool
	favorite    bool
	name        string
	email       string
}

func NewQuery(ownerID string, params ListParams) (Query, error) {
	if ownerID == "" {
		return Query{}, fmt.Errorf("build contact query: missing owner: %w", core.ErrInvalidInput)
	}

	params.Normalize()

	q := Query{
		ownerID: ownerID,
		page:    params.Page,
		limit:   params.Limit,
		name:    params.Name,
		email:   params.Email,
	}
	if params.Favorite != nil {
		q.hasFavorite = true
		q.favorite = *params.Favorite
	}

	return q, nil
}

func (q Query) OwnerID() string { return q.ownerID }
func (q Query) Page() int       { return q.page }
func (q Query) Limit() int      { return q.limit }
func (q Query) Offset() int     { return (q.page - 1) * q.limit }

// Favorite returns the favorite filter and whether one was requested.
func (q Query) Favorite() (value, ok bool) { return q.favorite, q.hasFavorite }

func (q Query) Name() string  { return q.name }
func (q Query) Email() string { return q.email }

// Where renders the filter as a SQL predicate. Placeholders start at $1 and
// follow the order of the returned args.
func (q Query) Where() (string, []any) {
	conditions := []string{"owner_id = $1"}
	args := []any{q.ownerID}

	if q.hasFavorite {
		args = append(args, q.favorite)
		conditions = append(conditions, fmt.Sprintf("favorite = $%d", len(args)))
	}

	if q.name != "" {
		args = append(args, "%"+escapeLike(q.name)+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	if q.email != "" {
		args = append(args, "%"+escapeLike(q.email)+"%")
		conditions = append(conditions, fmt.Sprintf("email ILIKE $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
