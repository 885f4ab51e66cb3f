package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/repository"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *AccountRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewAccountRepository(mock, domain.DefaultLockoutPolicy())
}

func testAccount(t *testing.T) *domain.Account {
	t.Helper()
	at := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	account, err := domain.NewAccount(domain.NewAccountParams{
		ID:         "acc-1",
		TenantID:   "T1",
		Email:      "a@x.com",
		Username:   "alice",
		Credential: domain.CredentialFromHash("argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"),
	}, at)
	if err != nil {
		t.Fatalf("NewAccount returned error: %v", err)
	}
	return account
}

func TestAccountRepositoryCreate(t *testing.T) {
	mock, repo := newMockRepo(t)
	account := testAccount(t)

	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(
			account.ID,
			account.TenantID,
			account.Email,
			account.EmailVerified,
			account.Username,
			account.Phone,
			account.PhoneVerified,
			account.FirstName,
			account.LastName,
			account.AvatarURL,
			account.Credential.Hash(),
			"pending",
			(*string)(nil),
			account.Status.ChangedAt(),
			account.LoginAttempts,
			account.LockedUntil,
			account.TwoFactorEnabled,
			account.TwoFactorSecret,
			account.LastLoginAt,
			account.PasswordChangedAt,
			account.CreatedAt,
			account.UpdatedAt,
			account.DeletedAt,
			account.Version,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepositoryCreateMapsUniqueViolations(t *testing.T) {
	cases := []struct {
		constraint string
		want       error
	}{
		{emailConstraintName, repository.ErrEmailTaken},
		{usernameConstraintName, repository.ErrUsernameTaken},
	}

	for _, tc := range cases {
		mock, repo := newMockRepo(t)
		account := testAccount(t)

		mock.ExpectExec(`INSERT INTO accounts`).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: tc.constraint})

		err := repo.Create(context.Background(), account)
		if !errors.Is(err, tc.want) {
			t.Errorf("constraint %s: expected %v, got %v", tc.constraint, tc.want, err)
		}
	}
}

func TestAccountRepositoryUpdateVersionConflict(t *testing.T) {
	mock, repo := newMockRepo(t)
	account := testAccount(t)
	account.Version = 3

	mock.ExpectExec(`UPDATE accounts`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(pgxmock.NewRows([]string{"found"}).AddRow(true))

	err := repo.Update(context.Background(), account)
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if account.Version != 3 {
		t.Fatalf("version must not advance on conflict, got %d", account.Version)
	}
}

func TestAccountRepositoryUpdateMissingRow(t *testing.T) {
	mock, repo := newMockRepo(t)
	account := testAccount(t)

	mock.ExpectExec(`UPDATE accounts`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(pgxmock.NewRows([]string{"found"}).AddRow(false))

	if err := repo.Update(context.Background(), account); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepositoryUpdateBumpsVersion(t *testing.T) {
	mock, repo := newMockRepo(t)
	account := testAccount(t)
	account.Version = 7

	mock.ExpectExec(`UPDATE accounts`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.Update(context.Background(), account); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if account.Version != 8 {
		t.Fatalf("expected version 8 after update, got %d", account.Version)
	}
}

func TestAccountRepositoryGetByIDNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM accounts`).
		WillReturnRows(pgxmock.NewRows(accountColumns))

	if _, err := repo.GetByID(context.Background(), "T1", "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepositoryGetByID(t *testing.T) {
	mock, repo := newMockRepo(t)
	at := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	rows := pgxmock.NewRows(accountColumns).AddRow(
		"acc-1",
		"T1",
		"a@x.com",
		true,
		"alice",
		(*string)(nil),
		false,
		"Alice",
		"",
		"",
		"argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"active",
		(*string)(nil),
		at,
		2,
		(*time.Time)(nil),
		false,
		(*string)(nil),
		(*time.Time)(nil),
		(*time.Time)(nil),
		at,
		at,
		(*time.Time)(nil),
		int64(4),
	)
	mock.ExpectQuery(`SELECT .+ FROM accounts`).
		WithArgs("T1", "acc-1").
		WillReturnRows(rows)

	account, err := repo.GetByID(context.Background(), "T1", "acc-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if !account.Status.Is(domain.StateActive) {
		t.Fatalf("expected active status, got %s", account.Status.State())
	}
	if account.LoginAttempts != 2 || account.Version != 4 {
		t.Fatalf("unexpected scan result: attempts=%d version=%d", account.LoginAttempts, account.Version)
	}
	if account.Policy.MaxAttempts != domain.DefaultLockoutPolicy().MaxAttempts {
		t.Fatal("reconstituted aggregate missing the lockout policy")
	}
}

func TestAccountRepositoryExistsByEmail(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(pgxmock.NewRows([]string{"found"}).AddRow(true))

	found, err := repo.ExistsByEmail(context.Background(), "T1", "a@x.com", "")
	if err != nil {
		t.Fatalf("ExistsByEmail returned error: %v", err)
	}
	if !found {
		t.Fatal("expected existing email to be reported")
	}
}
