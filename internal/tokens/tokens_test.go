package tokens

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lendinghub/lending-service/internal/config"
	"github.com/lendinghub/lending-service/internal/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestService(t *testing.T, secret string, clock *fakeClock) *Service {
	t.Helper()
	svc, err := NewService(config.JWTConfig{Secret: secret, Issuer: "test", AccessTokenTTL: time.Hour}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestIssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, "test-secret-32-bytes-should-be-long-enough", clock)

	tok, exp, err := svc.Issue("holder-1", models.RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !exp.Equal(clock.t.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", exp)
	}
	id, err := svc.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if id.HolderID != "holder-1" || id.Role != models.RoleUser {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerify_TTLBoundary(t *testing.T) {
	start := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: start}
	svc := newTestService(t, "ttl-secret-32-bytes-xxxxxxxxxxxxxx", clock)

	tok, _, err := svc.Issue("holder-ttl", models.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	clock.t = start.Add(59 * time.Minute)
	if _, err := svc.Verify(tok); err != nil {
		t.Fatalf("expected token to be accepted at t+59m, got %v", err)
	}

	clock.t = start.Add(61 * time.Minute)
	_, err = svc.Verify(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken at t+61m, got %v", err)
	}
}

func TestVerify_WrongSecretFails(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	issuer := newTestService(t, "secret-one-32-bytes-xxxxxxxxxxxxxxxx", clock)
	verifier := newTestService(t, "different-secret-xxxxxxxxxxxxxxxx", clock)

	tok, _, err := issuer.Issue("u3", models.RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := verifier.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	svc := newTestService(t, "x-secret", &fakeClock{t: time.Now()})
	if _, err := svc.Verify("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
	if _, err := svc.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

// Rejected when alg=none (unsigned token)
func TestVerify_AlgNoneRejected(t *testing.T) {
	svc := newTestService(t, "x-secret", &fakeClock{t: time.Now()})
	payload := `{"sub":"u-none","role":"ADMIN","exp":9999999999}`
	seg := base64.RawURLEncoding.EncodeToString
	tok := seg([]byte(`{"alg":"none","typ":"JWT"}`)) + "." + seg([]byte(payload)) + "."
	if _, err := svc.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg=none token to be rejected, got %v", err)
	}
}

// Tampering with the role claim must fail signature verification
func TestVerify_TamperedPayload(t *testing.T) {
	svc := newTestService(t, "tamper-test-secret-32-bytes-xxxxxxx", &fakeClock{t: time.Now()})
	tok, _, err := svc.Issue("user-t", models.RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !strings.Contains(string(payloadBytes), `"USER"`) {
		t.Fatalf("payload has no role claim: %s", payloadBytes)
	}
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payloadBytes), `"USER"`, `"ADMIN"`, 1)))
	if _, err := svc.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature verification to fail for tampered token, got %v", err)
	}
}

func TestVerify_UnknownRoleRejected(t *testing.T) {
	secret := "role-secret-32-bytes-xxxxxxxxxxxxx"
	now := time.Now()
	claims := jwt.MapClaims{"sub": "u1", "role": "ROLE_ROOT", "exp": now.Add(time.Hour).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	svc := newTestService(t, secret, &fakeClock{t: now})
	if _, err := svc.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected unknown role to be rejected, got %v", err)
	}
}

func TestVerify_MissingExpiryRejected(t *testing.T) {
	secret := "exp-secret-32-bytes-xxxxxxxxxxxxxx"
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "role": "USER"}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	svc := newTestService(t, secret, &fakeClock{t: time.Now()})
	if _, err := svc.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token without exp to be rejected, got %v", err)
	}
}

func TestNewService_Validation(t *testing.T) {
	if _, err := NewService(config.JWTConfig{AccessTokenTTL: time.Hour}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := NewService(config.JWTConfig{Secret: "s"}); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestIssue_RejectsInvalidRole(t *testing.T) {
	svc := newTestService(t, "s", &fakeClock{t: time.Now()})
	if _, _, err := svc.Issue("u1", models.Role("SUPER")); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
