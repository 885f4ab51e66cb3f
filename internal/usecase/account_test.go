package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/port"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/repository"
)

func newAccountService(repo *stubAccountRepo, audit *auditRecorder) *AccountService {
	var publisher port.AuditPublisher
	if audit != nil {
		publisher = audit
	}
	return NewAccountService(repo, publisher).WithClock(func() time.Time { return testNow })
}

func TestAccountServiceActivate(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, domain.StatePending)
	audit := &auditRecorder{}
	svc := newAccountService(repo, audit)

	account, err := svc.Activate(context.Background(), "T1", "acc-1")
	if err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}
	if !account.Status.Is(domain.StateActive) {
		t.Fatalf("status = %s, want active", account.Status.State())
	}
	if !account.EmailVerified {
		t.Fatal("activation must mark the email verified")
	}

	stored := repo.stored("T1", "acc-1")
	if !stored.Status.Is(domain.StateActive) {
		t.Fatal("activation not persisted")
	}
	if len(audit.events) != 1 {
		t.Fatalf("expected one forwarded event, got %d", len(audit.events))
	}
	if _, ok := audit.events[0].(domain.AccountActivatedEvent); !ok {
		t.Fatalf("expected AccountActivatedEvent, got %T", audit.events[0])
	}
}

func TestAccountServiceActivateTwice(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, domain.StateActive)
	svc := newAccountService(repo, nil)

	if _, err := svc.Activate(context.Background(), "T1", "acc-1"); !errors.Is(err, domain.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestAccountServiceIllegalTransitionLeavesStoreUntouched(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, domain.StatePending)
	svc := newAccountService(repo, nil)

	_, err := svc.Suspend(context.Background(), "T1", "acc-1", "abuse")
	if !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if stored := repo.stored("T1", "acc-1"); !stored.Status.Is(domain.StatePending) {
		t.Fatal("rejected transition must not be persisted")
	}
	if repo.updates != 0 {
		t.Fatalf("expected no updates, got %d", repo.updates)
	}
}

func TestAccountServiceLockAndUnlock(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, domain.StateActive)
	audit := &auditRecorder{}
	svc := newAccountService(repo, audit)

	until := testNow.Add(time.Hour)
	account, err := svc.Lock(context.Background(), "T1", "acc-1", "manual review", &until)
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}
	if !account.Status.Is(domain.StateLocked) {
		t.Fatalf("status = %s, want locked", account.Status.State())
	}
	locked, ok := audit.events[0].(domain.AccountLockedEvent)
	if !ok {
		t.Fatalf("expected AccountLockedEvent, got %T", audit.events[0])
	}
	if locked.Reason != "manual review" {
		t.Fatalf("event reason = %q", locked.Reason)
	}

	account, err = svc.Unlock(context.Background(), "T1", "acc-1")
	if err != nil {
		t.Fatalf("Unlock returned error: %v", err)
	}
	if !account.Status.Is(domain.StateActive) || account.LockedUntil != nil || account.LoginAttempts != 0 {
		t.Fatal("unlock must restore active state and clear attempt accounting")
	}
}

func TestAccountServiceDeleteIsTerminal(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, domain.StateActive)
	svc := newAccountService(repo, nil)

	account, err := svc.Delete(context.Background(), "T1", "acc-1", "user request")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if !account.Status.Is(domain.StateDeleted) || account.DeletedAt == nil {
		t.Fatal("delete must set the deleted status and timestamp")
	}

	if _, err := svc.Restore(context.Background(), "T1", "acc-1", "oops"); !errors.Is(err, domain.ErrAccountDeleted) {
		t.Fatalf("expected ErrAccountDeleted, got %v", err)
	}
	if _, err := svc.Delete(context.Background(), "T1", "acc-1", "again"); !errors.Is(err, domain.ErrAlreadyDeleted) {
		t.Fatalf("expected ErrAlreadyDeleted, got %v", err)
	}
}

func TestAccountServiceUpdateProfile(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, domain.StateActive)
	svc := newAccountService(repo, nil)

	first := "Alice"
	account, err := svc.UpdateProfile(context.Background(), "T1", "acc-1", domain.ProfileUpdate{FirstName: &first})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if account.FirstName != "Alice" {
		t.Fatalf("first name = %q, want Alice", account.FirstName)
	}
	if account.LastName != "" {
		t.Fatal("unset fields must stay untouched")
	}
}

func TestAccountServiceChangePhoneResetsVerification(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, domain.StateActive)
	svc := newAccountService(repo, nil)

	if _, err := svc.ChangePhone(context.Background(), "T1", "acc-1", "+15551234567"); err != nil {
		t.Fatalf("ChangePhone returned error: %v", err)
	}
	if _, err := svc.VerifyPhone(context.Background(), "T1", "acc-1"); err != nil {
		t.Fatalf("VerifyPhone returned error: %v", err)
	}
	account, err := svc.ChangePhone(context.Background(), "T1", "acc-1", "+15557654321")
	if err != nil {
		t.Fatalf("second ChangePhone returned error: %v", err)
	}
	if account.PhoneVerified {
		t.Fatal("changing the phone must reset verification")
	}
}

func TestAccountServiceUnknownAccount(t *testing.T) {
	repo := newStubAccountRepo()
	svc := newAccountService(repo, nil)

	if _, err := svc.Get(context.Background(), "T1", "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Activate(context.Background(), "T1", "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Activate: expected ErrNotFound, got %v", err)
	}
}

func TestAccountServiceRetriesOnVersionConflict(t *testing.T) {
	repo := newStubAccountRepo()
	seedAccount(repo, domain.StatePending)
	repo.updateConflicts = 1
	svc := newAccountService(repo, nil)

	account, err := svc.Activate(context.Background(), "T1", "acc-1")
	if err != nil {
		t.Fatalf("Activate returned error after retry: %v", err)
	}
	if !account.Status.Is(domain.StateActive) {
		t.Fatal("retry must still apply the operation")
	}
	if repo.updates != 1 {
		t.Fatalf("expected one committed update, got %d", repo.updates)
	}
}
