package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/repository"
)

var testNow = time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

// stubHasher is a fast deterministic stand-in for the argon2 hasher.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) {
	return "stub$" + password, nil
}

func (stubHasher) Verify(password, encoded string) (bool, error) {
	rest, ok := strings.CutPrefix(encoded, "stub$")
	if !ok {
		return false, errors.New("malformed hash")
	}
	return rest == password, nil
}

// stubAccountRepo keeps aggregates by value so every load hands out a fresh
// copy, mirroring reconstitution from storage.
type stubAccountRepo struct {
	accounts map[string]domain.Account

	emailTaken    bool
	usernameTaken bool
	createErr     error
	// updateConflicts makes the next N Update calls fail with a version conflict.
	updateConflicts int
	updates         int
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]domain.Account)}
}

func (r *stubAccountRepo) key(tenantID, id string) string {
	return tenantID + "|" + id
}

func (r *stubAccountRepo) Create(_ context.Context, account *domain.Account) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.accounts[r.key(account.TenantID, account.ID)] = *account
	return nil
}

func (r *stubAccountRepo) GetByID(_ context.Context, tenantID, id string) (*domain.Account, error) {
	account, ok := r.accounts[r.key(tenantID, id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := account
	copy.ClearEvents()
	return &copy, nil
}

func (r *stubAccountRepo) GetByIdentifier(_ context.Context, tenantID, identifier string) (*domain.Account, error) {
	for _, account := range r.accounts {
		if account.TenantID != tenantID {
			continue
		}
		if strings.EqualFold(account.Email, identifier) || strings.EqualFold(account.Username, identifier) {
			copy := account
			copy.ClearEvents()
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubAccountRepo) Update(_ context.Context, account *domain.Account) error {
	if r.updateConflicts > 0 {
		r.updateConflicts--
		return repository.ErrVersionConflict
	}
	key := r.key(account.TenantID, account.ID)
	if _, ok := r.accounts[key]; !ok {
		return repository.ErrNotFound
	}
	account.Version++
	r.accounts[key] = *account
	r.updates++
	return nil
}

func (r *stubAccountRepo) ExistsByEmail(context.Context, string, string, string) (bool, error) {
	return r.emailTaken, nil
}

func (r *stubAccountRepo) ExistsByUsername(context.Context, string, string, string) (bool, error) {
	return r.usernameTaken, nil
}

func (r *stubAccountRepo) stored(tenantID, id string) domain.Account {
	return r.accounts[r.key(tenantID, id)]
}

// auditRecorder captures forwarded events in order.
type auditRecorder struct {
	events []domain.Event
	err    error
}

func (r *auditRecorder) Publish(_ context.Context, event domain.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

// rejectingPolicy fails every password it sees.
type rejectingPolicy struct{}

func (rejectingPolicy) Validate(string, domain.PasswordContext) error {
	return errors.New("too guessable")
}

func seedAccount(repo *stubAccountRepo, state domain.State) domain.Account {
	cred, _ := domain.NewCredential("Aa1!aaaa", stubHasher{})
	account, _ := domain.NewAccount(domain.NewAccountParams{
		ID:         "acc-1",
		TenantID:   "T1",
		Email:      "a@x.com",
		Username:   "alice",
		Credential: cred,
	}, testNow)
	if state != domain.StatePending {
		account.Status = domain.NewStatus(state, "", testNow)
	}
	account.ClearEvents()
	repo.accounts[repo.key("T1", "acc-1")] = *account
	return *account
}
