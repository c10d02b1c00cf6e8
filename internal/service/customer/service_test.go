package customer

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepo is a lightweight in-memory customer repository for tests.
type memoryRepo struct {
	mu      sync.Mutex
	byEmail map[string]domain.Customer
	taken   map[string]bool
}

type memoryTokenRepo struct {
	tokens map[string]tokenrepo.Token
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: make(map[string]domain.Customer), taken: make(map[string]bool)}
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{tokens: make(map[string]tokenrepo.Token)}
}

func (r *memoryTokenRepo) Create(_ context.Context, token tokenrepo.Token) error {
	if _, exists := r.tokens[token.Token]; exists {
		return domain.ErrAlreadyExists
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *memoryTokenRepo) Get(_ context.Context, token string) (*tokenrepo.Token, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := t
	return &clone, nil
}

func (r *memoryTokenRepo) Delete(_ context.Context, token string) error {
	if _, ok := r.tokens[token]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tokens, token)
	return nil
}

func (r *memoryTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, t := range r.tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[c.Email]; exists {
		return nil, domain.ErrAlreadyExists
	}
	clone := c
	if clone.ID == "" {
		clone.ID = "cust-" + c.Email
	}
	clone.CreatedAt = time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)
	r.byEmail[clone.Email] = clone
	r.taken[clone.Username] = true
	return &clone, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byEmail[email]; ok {
		clone := c
		return &clone, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byEmail {
		if c.ID == id {
			clone := c
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) UsernameTaken(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.taken[username], nil
}

func TestSignupAndLogin_SucceedsWithTrimmedPassword(t *testing.T) {
	svc := New(newMemoryRepo(), newMemoryTokenRepo(), nil)
	ctx := context.Background()

	customer, err := svc.Signup(ctx, SignupInput{Email: " User@Example.com ", Password: " Abcdefg1 "})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", customer.Email)
	assert.NotEmpty(t, customer.Username)
	assert.NotEqual(t, "Abcdefg1", customer.PasswordHash)

	got, token, err := svc.Login(ctx, "user@example.com", "Abcdefg1")
	require.NoError(t, err)
	assert.Equal(t, customer.ID, got.ID)
	assert.NotEmpty(t, token)
}

func TestSignup_RejectsInvalidInput(t *testing.T) {
	svc := New(newMemoryRepo(), newMemoryTokenRepo(), nil)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "", Password: "Abcdefg1"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.Signup(ctx, SignupInput{Email: "not-an-email", Password: "Abcdefg1"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.Signup(ctx, SignupInput{Email: "a@b.co", Password: "weak"})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc := New(newMemoryRepo(), newMemoryTokenRepo(), nil)
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupInput{Email: "a@b.co", Password: "Abcdefg1"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, SignupInput{Email: "A@B.co", Password: "Abcdefg1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestValidatePassword_FailsOnWeakValues(t *testing.T) {
	cases := []struct {
		name string
		pass string
	}{
		{"too short", "Abc1"},
		{"no upper", "abcdefg1"},
		{"no lower", "ABCDEFG1"},
		{"no digit", "Abcdefgh"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, validatePassword(tc.pass, 8), ErrWeakPassword)
		})
	}
	assert.NoError(t, validatePassword("Abcdefg1", 8))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := New(newMemoryRepo(), newMemoryTokenRepo(), nil)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "user@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "user@example.com", "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "missing@example.com", "Abcdefg1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLookupByToken_AndLogout(t *testing.T) {
	svc := New(newMemoryRepo(), newMemoryTokenRepo(), nil)
	ctx := context.Background()
	c, err := svc.Signup(ctx, SignupInput{Email: "user@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)
	_, token, err := svc.Login(ctx, "user@example.com", "Abcdefg1")
	require.NoError(t, err)

	got, err := svc.LookupByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.LookupByToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.NoError(t, svc.Logout(ctx, token), "second logout is a no-op")
	_, err = svc.LookupByToken(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLookupByToken_ExpiredIsDeleted(t *testing.T) {
	tokens := newMemoryTokenRepo()
	svc := New(newMemoryRepo(), tokens, nil, WithAccessTTL(time.Hour))
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupInput{Email: "user@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)
	_, token, err := svc.Login(ctx, "user@example.com", "Abcdefg1")
	require.NoError(t, err)

	svc.tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = svc.LookupByToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Empty(t, tokens.tokens)
}

func TestPurgeExpiredTokens(t *testing.T) {
	tokens := newMemoryTokenRepo()
	tokens.tokens["old"] = tokenrepo.Token{Token: "old", CustomerID: "c", Kind: tokenrepo.KindAccess, ExpiresAt: time.Now().Add(-time.Minute)}
	tokens.tokens["new"] = tokenrepo.Token{Token: "new", CustomerID: "c", Kind: tokenrepo.KindAccess, ExpiresAt: time.Now().Add(time.Hour)}
	svc := New(newMemoryRepo(), tokens, nil)

	n, err := svc.PurgeExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, tokens.tokens, "new")
}

func TestAccessTTLSeconds(t *testing.T) {
	assert.Equal(t, 172800, New(newMemoryRepo(), newMemoryTokenRepo(), nil).AccessTTLSeconds())
	assert.Equal(t, 60, New(newMemoryRepo(), newMemoryTokenRepo(), nil, WithAccessTTL(time.Minute)).AccessTTLSeconds())
}
