package domain

import "time"

// Event is the closed set of audit events emitted by the Account aggregate.
// The audit sink dispatches over the concrete types with a single exhaustive
// switch; the unexported marker keeps the set closed to this package.
type Event interface {
	EventName() string
	Meta() EventMeta
	isAccountEvent()
}

// EventMeta carries the fields shared by every account event.
type EventMeta struct {
	AccountID  string
	TenantID   string
	OccurredAt time.Time
}

// Meta returns the shared event fields.
func (m EventMeta) Meta() EventMeta { return m }

func (m EventMeta) isAccountEvent() {}

// PasswordChangeType distinguishes how a credential replacement was initiated.
type PasswordChangeType string

const (
	PasswordChangeUserInitiated  PasswordChangeType = "user_initiated"
	PasswordChangeAdminReset     PasswordChangeType = "admin_reset"
	PasswordChangeForgotPassword PasswordChangeType = "forgot_password"
)

// AccountCreatedEvent is emitted once by the account factory.
type AccountCreatedEvent struct {
	EventMeta
	Email    string
	Username string
	Status   State
}

// EventName identifies the event kind on the wire.
func (AccountCreatedEvent) EventName() string { return "account.created" }

// AccountActivatedEvent is emitted when an account transitions to active.
type AccountActivatedEvent struct {
	EventMeta
}

// EventName identifies the event kind on the wire.
func (AccountActivatedEvent) EventName() string { return "account.activated" }

// AccountLockedEvent is emitted when an account is locked, either explicitly
// or by the failed-attempt threshold. LockedUntil is nil for an indefinite
// lock; LoginAttempts is the counter snapshot at lock time.
type AccountLockedEvent struct {
	EventMeta
	Reason        string
	LoginAttempts int
	LockedUntil   *time.Time
}

// EventName identifies the event kind on the wire.
func (AccountLockedEvent) EventName() string { return "account.locked" }

// PasswordChangedEvent is emitted when the credential is replaced.
type PasswordChangedEvent struct {
	EventMeta
	ChangeType PasswordChangeType
}

// EventName identifies the event kind on the wire.
func (PasswordChangedEvent) EventName() string { return "account.password.changed" }

// LoginSucceededEvent is emitted on a successful password verification.
type LoginSucceededEvent struct {
	EventMeta
}

// EventName identifies the event kind on the wire.
func (LoginSucceededEvent) EventName() string { return "account.login.succeeded" }

// LoginFailedEvent is emitted on every failed password verification with the
// post-increment attempt count. Locked reports whether this failure tripped
// the lockout threshold.
type LoginFailedEvent struct {
	EventMeta
	LoginAttempts int
	Locked        bool
}

// EventName identifies the event kind on the wire.
func (LoginFailedEvent) EventName() string { return "account.login.failed" }
