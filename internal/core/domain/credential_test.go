package domain

import (
	"errors"
	"strings"
	"testing"
)

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

func TestNewCredentialRoundTrip(t *testing.T) {
	cred, err := NewCredential("Aa1!aaaa", stubHasher{})
	if err != nil {
		t.Fatalf("NewCredential returned error: %v", err)
	}

	ok, err := cred.Verify("Aa1!aaaa", stubHasher{})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify returned false for the original plaintext")
	}

	ok, err = cred.Verify("Aa1!aaab", stubHasher{})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for a different plaintext")
	}
}

func TestCredentialFromHashRoundTrip(t *testing.T) {
	cred, err := NewCredential("Aa1!aaaa", stubHasher{})
	if err != nil {
		t.Fatalf("NewCredential returned error: %v", err)
	}

	restored := CredentialFromHash(cred.Hash())
	ok, err := restored.Verify("Aa1!aaaa", stubHasher{})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("reconstituted credential did not verify the original plaintext")
	}
}

func TestNewCredentialLengthBounds(t *testing.T) {
	if _, err := NewCredential("Aa1!aaa", stubHasher{}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	long := "Aa1!" + strings.Repeat("a", MaxPasswordLength)
	if _, err := NewCredential(long, stubHasher{}); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestNewCredentialComposition(t *testing.T) {
	cases := []string{
		"aa1!aaaa", // no uppercase
		"AA1!AAAA", // no lowercase
		"Aaa!aaaa", // no digit
		"Aa1aaaaa", // no symbol
	}
	for _, password := range cases {
		if _, err := NewCredential(password, stubHasher{}); !errors.Is(err, ErrWeakPassword) {
			t.Errorf("NewCredential(%q): expected ErrWeakPassword, got %v", password, err)
		}
	}
}

func TestNewCredentialDenyList(t *testing.T) {
	if _, err := NewCredential("Password1!", stubHasher{}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword for deny-listed value, got %v", err)
	}
}

func TestVerifyMalformedHashIsError(t *testing.T) {
	cred := CredentialFromHash("not-a-real-hash")
	if _, err := cred.Verify("Aa1!aaaa", stubHasher{}); err == nil {
		t.Fatal("expected error for malformed stored hash")
	}
}

func TestNewCredentialDoesNotRetainPlaintext(t *testing.T) {
	cred, err := NewCredential("Aa1!aaaa", stubHasher{})
	if err != nil {
		t.Fatalf("NewCredential returned error: %v", err)
	}
	if cred.Hash() == "Aa1!aaaa" {
		t.Fatal("credential stored the plaintext")
	}
}
