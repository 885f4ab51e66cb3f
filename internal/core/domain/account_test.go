package domain

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

func newTestAccount(t *testing.T) *Account {
	t.Helper()

	cred, err := NewCredential("Aa1!aaaa", stubHasher{})
	if err != nil {
		t.Fatalf("NewCredential returned error: %v", err)
	}

	account, err := NewAccount(NewAccountParams{
		ID:         "acc-1",
		TenantID:   "T1",
		Email:      "a@x.com",
		Username:   "alice",
		Credential: cred,
	}, testNow)
	if err != nil {
		t.Fatalf("NewAccount returned error: %v", err)
	}
	return account
}

func newActiveAccount(t *testing.T) *Account {
	t.Helper()
	account := newTestAccount(t)
	if err := account.Activate(testNow); err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}
	account.ClearEvents()
	return account
}

func TestNewAccountStartsPending(t *testing.T) {
	account := newTestAccount(t)

	if !account.Status.Is(StatePending) {
		t.Fatalf("expected pending status, got %s", account.Status.State())
	}
	if account.LoginAttempts != 0 {
		t.Fatalf("expected zero login attempts, got %d", account.LoginAttempts)
	}
	if account.LockedUntil != nil {
		t.Fatal("new account must not carry a lock deadline")
	}

	events := account.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	created, ok := events[0].(AccountCreatedEvent)
	if !ok {
		t.Fatalf("expected AccountCreatedEvent, got %T", events[0])
	}
	if created.TenantID != "T1" || created.AccountID != "acc-1" {
		t.Fatalf("event carries wrong identity: %+v", created.EventMeta)
	}
	if created.Email != "a@x.com" || created.Username != "alice" || created.Status != StatePending {
		t.Fatalf("unexpected event payload: %+v", created)
	}
}

func TestNewAccountRequiredFields(t *testing.T) {
	cred, _ := NewCredential("Aa1!aaaa", stubHasher{})
	base := NewAccountParams{ID: "acc-1", TenantID: "T1", Email: "a@x.com", Username: "alice", Credential: cred}

	cases := []struct {
		name   string
		mutate func(*NewAccountParams)
	}{
		{"id", func(p *NewAccountParams) { p.ID = "" }},
		{"tenant_id", func(p *NewAccountParams) { p.TenantID = " " }},
		{"email", func(p *NewAccountParams) { p.Email = "" }},
		{"username", func(p *NewAccountParams) { p.Username = "" }},
		{"credential", func(p *NewAccountParams) { p.Credential = Credential{} }},
	}

	for _, tc := range cases {
		params := base
		tc.mutate(&params)
		_, err := NewAccount(params, testNow)
		if !errors.Is(err, ErrRequiredFieldMissing) {
			t.Errorf("%s: expected ErrRequiredFieldMissing, got %v", tc.name, err)
		}
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != tc.name {
			t.Errorf("%s: expected FieldError naming the field, got %v", tc.name, err)
		}
	}
}

func TestActivate(t *testing.T) {
	account := newTestAccount(t)
	account.ClearEvents()

	if err := account.Activate(testNow); err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}
	if !account.Status.Is(StateActive) {
		t.Fatalf("expected active status, got %s", account.Status.State())
	}
	if !account.EmailVerified {
		t.Fatal("activation must mark the email verified")
	}

	events := account.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if _, ok := events[0].(AccountActivatedEvent); !ok {
		t.Fatalf("expected AccountActivatedEvent, got %T", events[0])
	}

	if err := account.Activate(testNow); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive on repeat, got %v", err)
	}
}

func TestIllegalTransitionLeavesStatusUnchanged(t *testing.T) {
	account := newTestAccount(t)

	// Pending -> Suspended is not in the table.
	if err := account.Suspend("abuse", testNow); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if !account.Status.Is(StatePending) {
		t.Fatalf("status changed after a rejected transition: %s", account.Status.State())
	}

	if err := account.Deactivate("", testNow); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if err := account.Unlock(testNow); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestSuspendAndRestore(t *testing.T) {
	account := newActiveAccount(t)

	if err := account.Suspend("abuse report", testNow); err != nil {
		t.Fatalf("Suspend returned error: %v", err)
	}
	if !account.Status.Is(StateSuspended) || account.Status.Reason() != "abuse report" {
		t.Fatalf("unexpected status after suspend: %+v", account.Status)
	}

	if err := account.Restore("appeal accepted", testNow.Add(time.Hour)); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if !account.Status.Is(StateActive) {
		t.Fatalf("expected active status after restore, got %s", account.Status.State())
	}
}

func TestLockAndUnlock(t *testing.T) {
	account := newActiveAccount(t)
	account.LoginAttempts = 3
	until := testNow.Add(time.Hour)

	if err := account.Lock("fraud review", &until, testNow); err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}
	if !account.Status.Is(StateLocked) {
		t.Fatalf("expected locked status, got %s", account.Status.State())
	}
	if account.LockedUntil == nil || !account.LockedUntil.Equal(until) {
		t.Fatalf("unexpected lock deadline: %v", account.LockedUntil)
	}

	events := account.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	locked, ok := events[0].(AccountLockedEvent)
	if !ok {
		t.Fatalf("expected AccountLockedEvent, got %T", events[0])
	}
	if locked.LoginAttempts != 3 || locked.Reason != "fraud review" {
		t.Fatalf("unexpected event payload: %+v", locked)
	}

	if err := account.Unlock(testNow.Add(time.Minute)); err != nil {
		t.Fatalf("Unlock returned error: %v", err)
	}
	if !account.Status.Is(StateActive) || account.LoginAttempts != 0 || account.LockedUntil != nil {
		t.Fatal("unlock must restore active status, reset attempts, and clear the deadline")
	}
}

func TestLockFromNonActiveIsIllegal(t *testing.T) {
	account := newTestAccount(t)
	if err := account.Lock("", nil, testNow); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestIndefiniteLock(t *testing.T) {
	account := newActiveAccount(t)
	if err := account.Lock("legal hold", nil, testNow); err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}
	if account.LockedUntil != nil {
		t.Fatal("indefinite lock must not carry a deadline")
	}

	// An indefinite lock never expires lazily.
	_, err := account.VerifyPassword("Aa1!aaaa", stubHasher{}, testNow.Add(365*24*time.Hour))
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestDeleteIsTerminal(t *testing.T) {
	account := newActiveAccount(t)

	if err := account.Delete("user request", testNow); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if !account.Status.Is(StateDeleted) || account.DeletedAt == nil {
		t.Fatal("delete must set the terminal status and the deletion timestamp")
	}

	if err := account.Delete("again", testNow); !errors.Is(err, ErrAlreadyDeleted) {
		t.Fatalf("expected ErrAlreadyDeleted on repeat, got %v", err)
	}

	mutations := []struct {
		name string
		call func() error
	}{
		{"activate", func() error { return account.Activate(testNow) }},
		{"deactivate", func() error { return account.Deactivate("", testNow) }},
		{"suspend", func() error { return account.Suspend("", testNow) }},
		{"restore", func() error { return account.Restore("", testNow) }},
		{"lock", func() error { return account.Lock("", nil, testNow) }},
		{"unlock", func() error { return account.Unlock(testNow) }},
		{"change password", func() error { return account.ChangePassword("Aa1!aaaa", CredentialFromHash("stub$x"), stubHasher{}, testNow) }},
		{"reset password", func() error { return account.ResetPassword(CredentialFromHash("stub$x"), PasswordChangeAdminReset, testNow) }},
		{"update profile", func() error { return account.UpdateProfile(ProfileUpdate{}, testNow) }},
		{"verify email", func() error { return account.VerifyEmail(testNow) }},
		{"enable two-factor", func() error { return account.EnableTwoFactor("secret", testNow) }},
		{"disable two-factor", func() error { return account.DisableTwoFactor(testNow) }},
	}
	for _, m := range mutations {
		if err := m.call(); !errors.Is(err, ErrAccountDeleted) {
			t.Errorf("%s on deleted account: expected ErrAccountDeleted, got %v", m.name, err)
		}
	}

	if _, err := account.VerifyPassword("Aa1!aaaa", stubHasher{}, testNow); !errors.Is(err, ErrAccountDeleted) {
		t.Errorf("verify password on deleted account: expected ErrAccountDeleted, got %v", err)
	}
}

func TestVerifyPasswordSuccess(t *testing.T) {
	account := newActiveAccount(t)
	account.LoginAttempts = 2

	ok, err := account.VerifyPassword("Aa1!aaaa", stubHasher{}, testNow)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected a match for the correct password")
	}
	if account.LoginAttempts != 0 {
		t.Fatalf("expected attempts reset to zero, got %d", account.LoginAttempts)
	}
	if account.LastLoginAt == nil || !account.LastLoginAt.Equal(testNow) {
		t.Fatalf("expected last login stamped at %v, got %v", testNow, account.LastLoginAt)
	}

	events := account.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if _, ok := events[0].(LoginSucceededEvent); !ok {
		t.Fatalf("expected LoginSucceededEvent, got %T", events[0])
	}
}

func TestVerifyPasswordLockoutThreshold(t *testing.T) {
	account := newActiveAccount(t)

	for i := 1; i <= 4; i++ {
		ok, err := account.VerifyPassword("wrong", stubHasher{}, testNow)
		if err != nil {
			t.Fatalf("attempt %d returned error: %v", i, err)
		}
		if ok {
			t.Fatalf("attempt %d unexpectedly matched", i)
		}
		if account.LoginAttempts != i {
			t.Fatalf("attempt %d: counter is %d", i, account.LoginAttempts)
		}
		if !account.Status.Is(StateActive) {
			t.Fatalf("attempt %d: status is %s before the threshold", i, account.Status.State())
		}
	}

	ok, err := account.VerifyPassword("wrong", stubHasher{}, testNow)
	if err != nil {
		t.Fatalf("fifth attempt returned error: %v", err)
	}
	if ok {
		t.Fatal("fifth attempt unexpectedly matched")
	}
	if !account.Status.Is(StateLocked) {
		t.Fatalf("expected locked status after the fifth failure, got %s", account.Status.State())
	}
	wantUntil := testNow.Add(30 * time.Minute)
	if account.LockedUntil == nil || !account.LockedUntil.Equal(wantUntil) {
		t.Fatalf("expected lock until %v, got %v", wantUntil, account.LockedUntil)
	}

	var failures []LoginFailedEvent
	var locks []AccountLockedEvent
	for _, ev := range account.Events() {
		switch e := ev.(type) {
		case LoginFailedEvent:
			failures = append(failures, e)
		case AccountLockedEvent:
			locks = append(locks, e)
		}
	}
	if len(failures) != 5 {
		t.Fatalf("expected five LoginFailedEvent, got %d", len(failures))
	}
	for i, f := range failures {
		if f.LoginAttempts != i+1 {
			t.Errorf("failure %d carries attempt count %d", i+1, f.LoginAttempts)
		}
		if wantLocked := i == 4; f.Locked != wantLocked {
			t.Errorf("failure %d: locked flag = %v", i+1, f.Locked)
		}
	}
	if len(locks) != 1 {
		t.Fatalf("expected one AccountLockedEvent, got %d", len(locks))
	}
	if locks[0].LoginAttempts != 5 {
		t.Fatalf("lock event snapshots %d attempts, want 5", locks[0].LoginAttempts)
	}

	// Further attempts fail fast with the lock deadline attached.
	_, err = account.VerifyPassword("Aa1!aaaa", stubHasher{}, testNow.Add(time.Minute))
	var le *LockedError
	if !errors.As(err, &le) {
		t.Fatalf("expected LockedError, got %v", err)
	}
	if le.Until == nil || !le.Until.Equal(wantUntil) {
		t.Fatalf("locked error carries deadline %v, want %v", le.Until, wantUntil)
	}
}

func TestVerifyPasswordLazyLockExpiry(t *testing.T) {
	account := newActiveAccount(t)
	past := testNow.Add(-time.Minute)
	account.Status = NewStatus(StateLocked, "too many failed login attempts", testNow.Add(-31*time.Minute))
	account.LockedUntil = &past
	account.LoginAttempts = 5

	ok, err := account.VerifyPassword("Aa1!aaaa", stubHasher{}, testNow)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected a match after the lock expired")
	}
	if !account.Status.Is(StateActive) {
		t.Fatalf("expected active status after lazy expiry, got %s", account.Status.State())
	}
	if account.LoginAttempts != 0 || account.LockedUntil != nil {
		t.Fatal("expected attempts reset and deadline cleared")
	}
}

func TestVerifyPasswordLazyExpiryWithWrongPassword(t *testing.T) {
	account := newActiveAccount(t)
	past := testNow.Add(-time.Second)
	account.Status = NewStatus(StateLocked, "", testNow.Add(-time.Hour))
	account.LockedUntil = &past
	account.LoginAttempts = 4

	ok, err := account.VerifyPassword("wrong", stubHasher{}, testNow)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Fatal("wrong password unexpectedly matched")
	}
	// The expired lock clears, the failure counts, and the threshold re-locks.
	if !account.Status.Is(StateLocked) {
		t.Fatalf("expected re-lock at threshold, got %s", account.Status.State())
	}
	if account.LoginAttempts != 5 {
		t.Fatalf("expected attempt counter 5, got %d", account.LoginAttempts)
	}
}

func TestVerifyPasswordCustomPolicy(t *testing.T) {
	cred, _ := NewCredential("Aa1!aaaa", stubHasher{})
	account, err := NewAccount(NewAccountParams{
		ID:         "acc-2",
		TenantID:   "T1",
		Email:      "b@x.com",
		Username:   "bob",
		Credential: cred,
		Policy:     LockoutPolicy{MaxAttempts: 2, LockDuration: 5 * time.Minute},
	}, testNow)
	if err != nil {
		t.Fatalf("NewAccount returned error: %v", err)
	}
	if err := account.Activate(testNow); err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := account.VerifyPassword("wrong", stubHasher{}, testNow); err != nil {
			t.Fatalf("VerifyPassword returned error: %v", err)
		}
	}
	if !account.Status.Is(StateLocked) {
		t.Fatalf("expected lock after two failures, got %s", account.Status.State())
	}
	want := testNow.Add(5 * time.Minute)
	if account.LockedUntil == nil || !account.LockedUntil.Equal(want) {
		t.Fatalf("expected lock until %v, got %v", want, account.LockedUntil)
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	account := newActiveAccount(t)
	account.Credential = CredentialFromHash("corrupted")

	if _, err := account.VerifyPassword("Aa1!aaaa", stubHasher{}, testNow); err == nil {
		t.Fatal("expected error for malformed stored hash")
	}
	if account.LoginAttempts != 0 {
		t.Fatal("a fatal verify error must not count as a failed attempt")
	}
}

func TestChangePassword(t *testing.T) {
	account := newActiveAccount(t)
	next, _ := NewCredential("Bb2@bbbb", stubHasher{})

	if err := account.ChangePassword("nope", next, stubHasher{}, testNow); !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
	if account.PasswordChangedAt != nil {
		t.Fatal("rejected change must not stamp the password timestamp")
	}

	if err := account.ChangePassword("Aa1!aaaa", next, stubHasher{}, testNow); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	ok, _ := account.VerifyPassword("Aa1!aaaa", stubHasher{}, testNow)
	if ok {
		t.Fatal("old password still verifies after change")
	}
	account.LoginAttempts = 0
	ok, _ = account.VerifyPassword("Bb2@bbbb", stubHasher{}, testNow)
	if !ok {
		t.Fatal("new password does not verify after change")
	}

	var changed *PasswordChangedEvent
	for _, ev := range account.Events() {
		if e, ok := ev.(PasswordChangedEvent); ok {
			changed = &e
		}
	}
	if changed == nil || changed.ChangeType != PasswordChangeUserInitiated {
		t.Fatalf("expected user_initiated PasswordChangedEvent, got %+v", changed)
	}
}

func TestResetPassword(t *testing.T) {
	account := newActiveAccount(t)
	account.LoginAttempts = 3
	next, _ := NewCredential("Cc3#cccc", stubHasher{})

	if err := account.ResetPassword(next, PasswordChangeForgotPassword, testNow); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}
	if account.LoginAttempts != 0 {
		t.Fatal("reset must clear the attempt counter")
	}

	events := account.Events()
	changed, ok := events[len(events)-1].(PasswordChangedEvent)
	if !ok || changed.ChangeType != PasswordChangeForgotPassword {
		t.Fatalf("expected forgot_password PasswordChangedEvent, got %+v", events[len(events)-1])
	}

	ok2, _ := account.VerifyPassword("Cc3#cccc", stubHasher{}, testNow)
	if !ok2 {
		t.Fatal("new password does not verify after reset")
	}
}

func TestProfilePhoneAndTwoFactor(t *testing.T) {
	account := newActiveAccount(t)

	first := "Alice"
	avatar := "https://cdn.example.com/a.png"
	if err := account.UpdateProfile(ProfileUpdate{FirstName: &first, AvatarURL: &avatar}, testNow); err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if account.FirstName != "Alice" || account.AvatarURL != avatar {
		t.Fatal("profile update not applied")
	}

	if err := account.VerifyPhone(testNow); !errors.Is(err, ErrRequiredFieldMissing) {
		t.Fatalf("expected ErrRequiredFieldMissing without a phone, got %v", err)
	}
	if err := account.ChangePhone("+15550100", testNow); err != nil {
		t.Fatalf("ChangePhone returned error: %v", err)
	}
	if err := account.VerifyPhone(testNow); err != nil {
		t.Fatalf("VerifyPhone returned error: %v", err)
	}
	if !account.PhoneVerified {
		t.Fatal("phone not marked verified")
	}
	if err := account.ChangePhone("+15550199", testNow); err != nil {
		t.Fatalf("ChangePhone returned error: %v", err)
	}
	if account.PhoneVerified {
		t.Fatal("phone change must reset the verified flag")
	}

	if err := account.EnableTwoFactor("", testNow); !errors.Is(err, ErrRequiredFieldMissing) {
		t.Fatalf("expected ErrRequiredFieldMissing for empty secret, got %v", err)
	}
	if err := account.EnableTwoFactor("JBSWY3DP", testNow); err != nil {
		t.Fatalf("EnableTwoFactor returned error: %v", err)
	}
	if !account.TwoFactorEnabled || account.TwoFactorSecret == nil {
		t.Fatal("two-factor not enabled")
	}
	if err := account.DisableTwoFactor(testNow); err != nil {
		t.Fatalf("DisableTwoFactor returned error: %v", err)
	}
	if account.TwoFactorEnabled || account.TwoFactorSecret != nil {
		t.Fatal("two-factor not fully disabled")
	}
}

func TestEventsDrain(t *testing.T) {
	account := newTestAccount(t)

	if got := len(account.Events()); got != 1 {
		t.Fatalf("expected one pending event, got %d", got)
	}
	account.ClearEvents()
	if got := len(account.Events()); got != 0 {
		t.Fatalf("expected no events after clear, got %d", got)
	}

	// Events returns a copy; mutating it must not affect the aggregate.
	if err := account.Activate(testNow); err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}
	events := account.Events()
	events[0] = nil
	if account.Events()[0] == nil {
		t.Fatal("Events exposed internal storage")
	}
}

func TestLoginAttemptsNeverNegative(t *testing.T) {
	account := newActiveAccount(t)

	sequence := []string{"wrong", "Aa1!aaaa", "wrong", "wrong", "Aa1!aaaa"}
	for _, password := range sequence {
		if _, err := account.VerifyPassword(password, stubHasher{}, testNow); err != nil {
			t.Fatalf("VerifyPassword returned error: %v", err)
		}
		if account.LoginAttempts < 0 {
			t.Fatalf("login attempts went negative: %d", account.LoginAttempts)
		}
		if account.LockedUntil != nil && !account.Status.Is(StateLocked) {
			t.Fatal("lock deadline present while not locked")
		}
	}
}
