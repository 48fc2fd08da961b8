package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func hs256Config(ttl time.Duration) Config {
	return Config{
		TTL:           ttl,
		SigningMethod: MethodHS256,
		Key:           []byte("0123456789abcdef0123456789abcdef"),
	}
}

func TestIssueParseRoundTrip(t *testing.T) {
	m, err := NewManager(hs256Config(time.Hour))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Issue("alice@example.com", "u-1", "customer", "s-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "alice@example.com" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.UID != "u-1" || claims.Role != "customer" || claims.SID != "s-1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseExpiredToken(t *testing.T) {
	m, err := NewManager(hs256Config(time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Issue("alice@example.com", "u-1", "customer", "s-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expired token parsed")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	m, err := NewManager(hs256Config(time.Hour))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Issue("alice@example.com", "u-1", "customer", "s-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := m.Parse(tampered); err == nil {
		t.Fatal("tampered token parsed")
	}
	if _, err := m.Parse("not.a.token"); err == nil {
		t.Fatal("malformed token parsed")
	}
}

func TestParseRejectsForeignKey(t *testing.T) {
	m1, err := NewManager(hs256Config(time.Hour))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := hs256Config(time.Hour)
	cfg.Key = []byte("ffffffffffffffffffffffffffffffff")
	m2, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m1.Issue("alice@example.com", "u-1", "customer", "s-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m2.Parse(token); err == nil {
		t.Fatal("token signed by a different key parsed")
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	m, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		Key:           priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Issue("bob@example.com", "u-2", "manager", "s-2")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Role != "manager" {
		t.Fatalf("role = %q", claims.Role)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{TTL: 0, SigningMethod: MethodHS256, Key: []byte("k")}); err == nil {
		t.Fatal("zero TTL accepted")
	}
	if _, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256}); err == nil {
		t.Fatal("missing hs256 secret accepted")
	}
	if _, err := NewManager(Config{TTL: time.Hour, SigningMethod: "rs256", Key: []byte("k")}); err == nil {
		t.Fatal("unsupported method accepted")
	}
}
