package domain

import (
	"strings"
	"time"
)

// LockoutPolicy bounds the failed-attempt accounting of VerifyPassword.
// It is passed to the account factory explicitly so tests can exercise
// boundary values without touching global state.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultLockoutPolicy returns the service defaults: five failed attempts
// lock the account for thirty minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: 5, LockDuration: 30 * time.Minute}
}

func (p LockoutPolicy) normalized() LockoutPolicy {
	d := DefaultLockoutPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.LockDuration <= 0 {
		p.LockDuration = d.LockDuration
	}
	return p
}

// Account is the aggregate root of the user security core. Identity is
// always tenant-scoped: lookups and uniqueness are qualified by
// (TenantID, ID) and never compared across tenants.
//
// Fields are exported for persistence mapping, but every mutation must go
// through the operation methods below; each operation validates fully before
// touching any state so a rejected call leaves the aggregate unchanged.
type Account struct {
	ID       string
	TenantID string

	Email         string
	EmailVerified bool
	Username      string
	Phone         *string
	PhoneVerified bool

	FirstName string
	LastName  string
	AvatarURL string

	Credential Credential
	Status     Status

	LoginAttempts int
	LockedUntil   *time.Time

	TwoFactorEnabled bool
	TwoFactorSecret  *string

	LastLoginAt       *time.Time
	PasswordChangedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time

	// Version backs the optimistic lock at the persistence boundary.
	Version int64

	Policy LockoutPolicy

	events []Event
}

// NewAccountParams collects the attributes required by the account factory.
type NewAccountParams struct {
	ID         string
	TenantID   string
	Email      string
	Username   string
	Credential Credential
	FirstName  string
	LastName   string
	Phone      *string
	Policy     LockoutPolicy
}

// NewAccount validates the required fields and constructs an account in the
// pending state with zero login attempts. One AccountCreatedEvent is emitted.
func NewAccount(p NewAccountParams, at time.Time) (*Account, error) {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return nil, &FieldError{Field: "id"}
	case strings.TrimSpace(p.TenantID) == "":
		return nil, &FieldError{Field: "tenant_id"}
	case strings.TrimSpace(p.Email) == "":
		return nil, &FieldError{Field: "email"}
	case strings.TrimSpace(p.Username) == "":
		return nil, &FieldError{Field: "username"}
	case p.Credential.Empty():
		return nil, &FieldError{Field: "credential"}
	}

	at = at.UTC()
	a := &Account{
		ID:         p.ID,
		TenantID:   p.TenantID,
		Email:      p.Email,
		Username:   p.Username,
		Phone:      p.Phone,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Credential: p.Credential,
		Status:     NewStatus(StatePending, "", at),
		Policy:     p.Policy.normalized(),
		CreatedAt:  at,
		UpdatedAt:  at,
	}

	a.record(AccountCreatedEvent{
		EventMeta: a.meta(at),
		Email:     a.Email,
		Username:  a.Username,
		Status:    StatePending,
	})
	return a, nil
}

// Activate transitions the account to active and marks the email as
// verified. Fails with ErrAlreadyActive when already active and with
// ErrIllegalTransition when the table forbids the edge.
func (a *Account) Activate(at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	if a.Status.Is(StateActive) {
		return ErrAlreadyActive
	}

	next, err := a.Status.TransitionTo(StateActive, "", at)
	if err != nil {
		return err
	}

	a.Status = next
	a.EmailVerified = true
	a.touch(at)
	a.record(AccountActivatedEvent{EventMeta: a.meta(at)})
	return nil
}

// Deactivate transitions an active account to inactive.
func (a *Account) Deactivate(reason string, at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	next, err := a.Status.TransitionTo(StateInactive, reason, at)
	if err != nil {
		return err
	}
	a.Status = next
	a.touch(at)
	return nil
}

// Suspend transitions an active account to suspended.
func (a *Account) Suspend(reason string, at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	next, err := a.Status.TransitionTo(StateSuspended, reason, at)
	if err != nil {
		return err
	}
	a.Status = next
	a.touch(at)
	return nil
}

// Restore transitions an inactive or suspended account back to active. It
// does not touch the login-attempt counter; Unlock owns that.
func (a *Account) Restore(reason string, at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	next, err := a.Status.TransitionTo(StateActive, reason, at)
	if err != nil {
		return err
	}
	a.Status = next
	a.touch(at)
	return nil
}

// Lock transitions an active account to locked. A nil until means the lock
// is indefinite. The emitted AccountLockedEvent snapshots the current
// login-attempt counter.
func (a *Account) Lock(reason string, until *time.Time, at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	next, err := a.Status.TransitionTo(StateLocked, reason, at)
	if err != nil {
		return err
	}

	a.Status = next
	a.LockedUntil = cloneTime(until)
	a.touch(at)
	a.record(AccountLockedEvent{
		EventMeta:     a.meta(at),
		Reason:        reason,
		LoginAttempts: a.LoginAttempts,
		LockedUntil:   cloneTime(a.LockedUntil),
	})
	return nil
}

// Unlock transitions a locked account back to active, resets the
// login-attempt counter, and clears the lock deadline.
func (a *Account) Unlock(at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	next, err := a.Status.TransitionTo(StateActive, "", at)
	if err != nil {
		return err
	}

	a.Status = next
	a.LoginAttempts = 0
	a.LockedUntil = nil
	a.touch(at)
	return nil
}

// Delete soft-deletes the account. The transition is legal from every state
// except deleted itself; repeating it fails with ErrAlreadyDeleted. Data is
// retained for audit purposes.
func (a *Account) Delete(reason string, at time.Time) error {
	if a.Status.Is(StateDeleted) {
		return ErrAlreadyDeleted
	}
	next, err := a.Status.TransitionTo(StateDeleted, reason, at)
	if err != nil {
		return err
	}

	at = at.UTC()
	a.Status = next
	a.DeletedAt = &at
	a.touch(at)
	return nil
}

// VerifyPassword checks the plaintext against the credential and applies the
// lockout accounting. A lock whose deadline has passed is cleared lazily
// before verification proceeds. On a mismatch the attempt counter and, when
// the threshold is reached, the transition to locked are applied together:
// there is no observable state with attempts at the threshold while the
// status is still active.
//
// A wrong password is reported through the boolean, never through the error.
// An error means the account is deleted, still locked, or the stored hash is
// malformed.
func (a *Account) VerifyPassword(password string, hasher PasswordHasher, at time.Time) (bool, error) {
	if err := a.ensureNotDeleted(); err != nil {
		return false, err
	}
	at = at.UTC()

	if a.Status.Is(StateLocked) {
		if a.LockedUntil == nil || at.Before(*a.LockedUntil) {
			return false, &LockedError{Until: cloneTime(a.LockedUntil)}
		}
		// Lock expired; clear it lazily before verifying.
		next, err := a.Status.TransitionTo(StateActive, "lock expired", at)
		if err != nil {
			return false, err
		}
		a.Status = next
		a.LockedUntil = nil
	}

	ok, err := a.Credential.Verify(password, hasher)
	if err != nil {
		return false, err
	}

	if ok {
		a.LoginAttempts = 0
		a.LastLoginAt = &at
		a.touch(at)
		a.record(LoginSucceededEvent{EventMeta: a.meta(at)})
		return true, nil
	}

	attempts := a.LoginAttempts + 1
	lock := attempts >= a.Policy.normalized().MaxAttempts && a.Status.CanTransitionTo(StateLocked)

	a.LoginAttempts = attempts
	a.touch(at)
	a.record(LoginFailedEvent{
		EventMeta:     a.meta(at),
		LoginAttempts: attempts,
		Locked:        lock,
	})

	if lock {
		until := at.Add(a.Policy.normalized().LockDuration)
		next, err := a.Status.TransitionTo(StateLocked, "too many failed login attempts", at)
		if err != nil {
			return false, err
		}
		a.Status = next
		a.LockedUntil = &until
		a.record(AccountLockedEvent{
			EventMeta:     a.meta(at),
			Reason:        "too many failed login attempts",
			LoginAttempts: attempts,
			LockedUntil:   &until,
		})
	}

	return false, nil
}

// ChangePassword replaces the credential after verifying the current
// password. The credential is swapped wholesale; no partial mutation.
func (a *Account) ChangePassword(currentPassword string, next Credential, hasher PasswordHasher, at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	if next.Empty() {
		return &FieldError{Field: "credential"}
	}

	ok, err := a.Credential.Verify(currentPassword, hasher)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIncorrectPassword
	}

	at = at.UTC()
	a.Credential = next
	a.PasswordChangedAt = &at
	a.touch(at)
	a.record(PasswordChangedEvent{
		EventMeta:  a.meta(at),
		ChangeType: PasswordChangeUserInitiated,
	})
	return nil
}

// ResetPassword replaces the credential without checking the current
// password, for administrative and forgot-password flows. The login-attempt
// counter is reset.
func (a *Account) ResetPassword(next Credential, changeType PasswordChangeType, at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	if next.Empty() {
		return &FieldError{Field: "credential"}
	}
	if changeType != PasswordChangeAdminReset && changeType != PasswordChangeForgotPassword {
		changeType = PasswordChangeAdminReset
	}

	at = at.UTC()
	a.Credential = next
	a.LoginAttempts = 0
	a.PasswordChangedAt = &at
	a.touch(at)
	a.record(PasswordChangedEvent{
		EventMeta:  a.meta(at),
		ChangeType: changeType,
	})
	return nil
}

// ProfileUpdate carries a partial profile change; nil fields are untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
}

// UpdateProfile applies a partial update to the non-security profile fields.
func (a *Account) UpdateProfile(update ProfileUpdate, at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	if update.FirstName != nil {
		a.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		a.LastName = *update.LastName
	}
	if update.AvatarURL != nil {
		a.AvatarURL = *update.AvatarURL
	}
	a.touch(at)
	return nil
}

// VerifyEmail marks the email address as verified.
func (a *Account) VerifyEmail(at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	a.EmailVerified = true
	a.touch(at)
	return nil
}

// VerifyPhone marks the phone number as verified.
func (a *Account) VerifyPhone(at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	if a.Phone == nil || *a.Phone == "" {
		return &FieldError{Field: "phone"}
	}
	a.PhoneVerified = true
	a.touch(at)
	return nil
}

// ChangePhone replaces the phone number and resets its verified flag.
func (a *Account) ChangePhone(phone string, at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	if strings.TrimSpace(phone) == "" {
		return &FieldError{Field: "phone"}
	}
	a.Phone = &phone
	a.PhoneVerified = false
	a.touch(at)
	return nil
}

// EnableTwoFactor stores the shared secret and switches two-factor on.
func (a *Account) EnableTwoFactor(secret string, at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	if strings.TrimSpace(secret) == "" {
		return &FieldError{Field: "two_factor_secret"}
	}
	a.TwoFactorEnabled = true
	a.TwoFactorSecret = &secret
	a.touch(at)
	return nil
}

// DisableTwoFactor discards the shared secret and switches two-factor off.
func (a *Account) DisableTwoFactor(at time.Time) error {
	if err := a.ensureNotDeleted(); err != nil {
		return err
	}
	a.TwoFactorEnabled = false
	a.TwoFactorSecret = nil
	a.touch(at)
	return nil
}

// IsLocked reports whether the account is locked as of the given time,
// accounting for an expired deadline that has not been cleared yet.
func (a *Account) IsLocked(at time.Time) bool {
	if !a.Status.Is(StateLocked) {
		return false
	}
	return a.LockedUntil == nil || at.UTC().Before(*a.LockedUntil)
}

// Events returns the pending events in emission order.
func (a *Account) Events() []Event {
	out := make([]Event, len(a.events))
	copy(out, a.events)
	return out
}

// ClearEvents discards the pending events after a successful persistence
// cycle so they are never re-delivered.
func (a *Account) ClearEvents() {
	a.events = nil
}

func (a *Account) ensureNotDeleted() error {
	if a.Status.Is(StateDeleted) {
		return ErrAccountDeleted
	}
	return nil
}

func (a *Account) record(event Event) {
	a.events = append(a.events, event)
}

func (a *Account) meta(at time.Time) EventMeta {
	return EventMeta{AccountID: a.ID, TenantID: a.TenantID, OccurredAt: at.UTC()}
}

func (a *Account) touch(at time.Time) {
	a.UpdatedAt = at.UTC()
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
