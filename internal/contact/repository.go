// AngelaMos | 2026
// repository.go

package contact

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carterperez-dev/contacts-backend/internal/core"
)

// Repository stores contacts. Every method takes the owner and re-applies
// it, so a contact that exists under another owner is reported as
// core.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, contact *Contact) error
	GetByID(ctx context.Context, ownerID, id string) (*Contact, error)
	List(ctx context.Context, q Query) ([]Contact, int, error)
	Update(ctx context.Context, ownerID, id string, changes Changes) (*Contact, error)
	SetFavorite(ctx context.Context, ownerID, id string, favorite bool) (*Contact, error)
	Delete(ctx context.Context, ownerID, id string) (*Contact, error)
}

const contactColumns = `id, owner_id, name, email, phone, favorite, created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, contact *Contact) error {
	query := `
		INSERT INTO contacts (id, owner_id, name, email, phone, favorite)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		contact.ID,
		contact.OwnerID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Favorite,
	).Scan(&contact.CreatedAt, &contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	ownerID, id string,
) (*Contact, error) {
	if !isValidID(id) {
		return nil, fmt.Errorf("get contact: %w", core.ErrNotFound)
	}

	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE id = $1 AND owner_id = $2`

	return r.one(ctx, "get contact", query, id, ownerID)
}

func (r *repository) List(
	ctx context.Context,
	q Query,
) ([]Contact, int, error) {
	where, args := q.Where()

	countQuery := `SELECT COUNT(*) FROM contacts WHERE ` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM contacts
		WHERE %s
		ORDER BY created_at ASC, id ASC
		LIMIT $%d OFFSET $%d`,
		contactColumns, where, len(args)+1, len(args)+2)

	args = append(args, q.Limit(), q.Offset())

	contacts := []Contact{}
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}

	return contacts, total, nil
}

func (r *repository) Update(
	ctx context.Context,
	ownerID, id string,
	changes Changes,
) (*Contact, error) {
	if !isValidID(id) {
		return nil, fmt.Errorf("update contact: %w", core.ErrNotFound)
	}

	query := `
		UPDATE contacts
		SET name = COALESCE($3, name),
		    email = COALESCE($4, email),
		    phone = COALESCE($5, phone),
		    favorite = COALESCE($6, favorite),
		    updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + contactColumns

	return r.one(ctx, "update contact", query,
		id,
		ownerID,
		changes.Name,
		changes.Email,
		changes.Phone,
		changes.Favorite,
	)
}

func (r *repository) SetFavorite(
	ctx context.Context,
	ownerID, id string,
	favorite bool,
) (*Contact, error) {
	if !isValidID(id) {
		return nil, fmt.Errorf("set favorite: %w", core.ErrNotFound)
	}

	query := `
		UPDATE contacts
		SET favorite = $3, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + contactColumns

	return r.one(ctx, "set favorite", query, id, ownerID, favorite)
}

func (r *repository) Delete(
	ctx context.Context,
	ownerID, id string,
) (*Contact, error) {
	if !isValidID(id) {
		return nil, fmt.Errorf("delete contact: %w", core.ErrNotFound)
	}

	query := `
		DELETE FROM contacts
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + contactColumns

	return r.one(ctx, "delete contact", query, id, ownerID)
}

func (r *repository) one(
	ctx context.Context,
	op, query string,
	args ...any,
) (*Contact, error) {
	var contact Contact
	err := r.db.GetContext(ctx, &contact, query, args...)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &contact, nil
}

// isValidID filters out ids Postgres would reject as malformed uuids.
func isValidID(id string) bool {
	return uuid.Validate(id) == nil
}
