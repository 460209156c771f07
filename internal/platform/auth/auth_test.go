package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ogurasousui/staffing-api/internal/core/user"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatalf("hash must differ from the password")
	}
	if err := h.Compare(hash, "s3cret-pass"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}
	if err := h.Compare(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestNewBcryptHasher_FallsBackToDefaultCost(t *testing.T) {
	t.Parallel()

	if h := NewBcryptHasher(99); h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
}

func TestJWTIssuer_IssueAndVerify(t *testing.T) {
	t.Parallel()

	issuer, err := NewJWTIssuer("test-secret", "staffing-api", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTIssuer returned error: %v", err)
	}

	token, err := issuer.Issue(user.Principal{UserID: "u-1", Email: "a@example.com", Roles: []user.Role{user.RoleAdmin}})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if strings.Count(token.Value, ".") != 2 {
		t.Fatalf("expected a compact JWT, got %q", token.Value)
	}

	p, err := issuer.Verify(token.Value)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if p.UserID != "u-1" || p.Email != "a@example.com" || !p.HasRole(user.RoleAdmin) {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestJWTIssuer_RejectsExpired(t *testing.T) {
	t.Parallel()

	issuer, _ := NewJWTIssuer("test-secret", "", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := issuer.Issue(user.Principal{UserID: "u-1"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	issuer.now = time.Now
	if _, err := issuer.Verify(token.Value); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestJWTIssuer_RejectsForeignSignature(t *testing.T) {
	t.Parallel()

	a, _ := NewJWTIssuer("secret-a", "", time.Hour)
	b, _ := NewJWTIssuer("secret-b", "", time.Hour)

	token, _ := a.Issue(user.Principal{UserID: "u-1"})
	if _, err := b.Verify(token.Value); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestJWTIssuer_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	issuer, _ := NewJWTIssuer("test-secret", "", time.Hour)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}
	if _, err := issuer.Verify(unsigned); err == nil {
		t.Fatalf("expected unsigned token to be rejected")
	}
}

func TestNewJWTIssuer_RequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTIssuer("", "", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
