// AngelaMos | 2026
// fakes_test.go

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/carterperez-dev/contacts-backend/internal/core"
	"github.com/carterperez-dev/contacts-backend/internal/mail"
	"github.com/carterperez-dev/contacts-backend/internal/user"
)

// memoryUsers is an in-memory user.Repository with the same atomicity as
// the SQL one: every method runs under a single lock.
type memoryUsers struct {
	mu   sync.Mutex
	byID map[string]*user.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[string]*user.User)}
}

func clone(u *user.User) *user.User {
	c := *u
	if u.TokenHash != nil {
		v := *u.TokenHash
		c.TokenHash = &v
	}
	if u.VerificationToken != nil {
		v := *u.VerificationToken
		c.VerificationToken = &v
	}
	return &c
}

func (m *memoryUsers) find(match func(*user.User) bool) *user.User {
	for _, u := range m.byID {
		if match(u) {
			return u
		}
	}
	return nil
}

func (m *memoryUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.find(func(x *user.User) bool { return x.Email == u.Email }) != nil {
		return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	}

	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.byID[u.ID] = clone(u)
	return nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u := m.find(func(x *user.User) bool { return x.Email == email }); u != nil {
		return clone(u), nil
	}
	return nil, core.ErrNotFound
}

func (m *memoryUsers) byToken(hash string) *user.User {
	if hash == "" {
		return nil
	}
	return m.find(func(x *user.User) bool {
		return x.TokenHash != nil && *x.TokenHash == hash
	})
}

func (m *memoryUsers) GetByTokenHash(_ context.Context, hash string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u := m.byToken(hash); u != nil {
		return clone(u), nil
	}
	return nil, core.ErrNotFound
}

func (m *memoryUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.find(func(x *user.User) bool { return x.Email == email }) != nil, nil
}

func (m *memoryUsers) SetToken(_ context.Context, id, hash string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	u.TokenHash = &hash
	return clone(u), nil
}

func (m *memoryUsers) ClearToken(_ context.Context, id, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok || u.TokenHash == nil || *u.TokenHash != hash {
		return false, nil
	}
	u.TokenHash = nil
	return true, nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memoryUsers) MarkVerified(_ context.Context, token string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.find(func(x *user.User) bool {
		return x.VerificationToken != nil && *x.VerificationToken == token
	})
	if u == nil {
		return nil, core.ErrNotFound
	}
	u.Verified = true
	u.VerificationToken = nil
	return clone(u), nil
}

func (m *memoryUsers) UpdateSubscriptionByToken(
	_ context.Context,
	hash, subscription string,
) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.byToken(hash)
	if u == nil {
		return nil, core.ErrNotFound
	}
	u.Subscription = subscription
	return clone(u), nil
}

func (m *memoryUsers) SwapAvatarByToken(
	_ context.Context,
	hash, avatarURL string,
) (*user.AvatarSwap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.byToken(hash)
	if u == nil {
		return nil, core.ErrNotFound
	}
	previous := u.AvatarURL
	u.AvatarURL = avatarURL
	return &user.AvatarSwap{User: clone(u), Previous: previous}, nil
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) Create(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUsers) userResult(args mock.Arguments) (*user.User, error) {
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.userResult(m.Called(ctx, email))
}

func (m *mockUsers) GetByTokenHash(ctx context.Context, hash string) (*user.User, error) {
	return m.userResult(m.Called(ctx, hash))
}

func (m *mockUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUsers) SetToken(ctx context.Context, id, hash string) (*user.User, error) {
	return m.userResult(m.Called(ctx, id, hash))
}

func (m *mockUsers) ClearToken(ctx context.Context, id, hash string) (bool, error) {
	args := m.Called(ctx, id, hash)
	return args.Bool(0), args.Error(1)
}

func (m *mockUsers) UpdatePassword(ctx context.Context, id, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *mockUsers) MarkVerified(ctx context.Context, token string) (*user.User, error) {
	return m.userResult(m.Called(ctx, token))
}

func (m *mockUsers) UpdateSubscriptionByToken(
	ctx context.Context,
	hash, subscription string,
) (*user.User, error) {
	return m.userResult(m.Called(ctx, hash, subscription))
}

func (m *mockUsers) SwapAvatarByToken(
	ctx context.Context,
	hash, avatarURL string,
) (*user.AvatarSwap, error) {
	args := m.Called(ctx, hash, avatarURL)
	if s, ok := args.Get(0).(*user.AvatarSwap); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
	full bool
}

func (o *outbox) Enqueue(msg mail.Message) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.full {
		return false
	}
	o.msgs = append(o.msgs, msg)
	return true
}

func (o *outbox) sent() []mail.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mail.Message(nil), o.msgs...)
}
