package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("secret-secret-secret-secret-secret")

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newHSManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestCreateAndParseRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newHSManager(t, clock)

	if m.TTL() != DefaultAccessTTL {
		t.Fatalf("expected default ttl %v, got %v", DefaultAccessTTL, m.TTL())
	}

	token, err := m.CreateAccess("alice", "session-token", 0)
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}
	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.Username() != "alice" || claims.SID != "session-token" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if !claims.ExpiresAt.Time.Equal(clock.t.Add(60 * time.Minute)) {
		t.Fatalf("unexpected exp %v", claims.ExpiresAt.Time)
	}
}

func TestParseAccessExpiryUsesInjectedClock(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newHSManager(t, clock)

	token, err := m.CreateAccess("alice", "sid", time.Minute)
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	_, err = m.ParseAccess(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	claims, err := m.ParseForRevocation(token)
	if err != nil {
		t.Fatalf("ParseForRevocation must tolerate expiry: %v", err)
	}
	if claims.SID != "sid" {
		t.Fatalf("unexpected sid %q", claims.SID)
	}
}

func TestParseRejectsTamperedAndForeignTokens(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m := newHSManager(t, clock)

	token, err := m.CreateAccess("alice", "sid", 0)
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"

	other, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("another-secret-another-secret"), Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	foreign, _ := other.CreateAccess("alice", "sid", 0)

	for name, tok := range map[string]string{"tampered": tampered, "foreign": foreign, "garbage": "garbage", "empty": ""} {
		if _, err := m.ParseAccess(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
		if _, err := m.ParseForRevocation(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: revocation parse must check signature, got %v", name, err)
		}
	}
}

func TestParseRequiresSubjectSessionAndExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m := newHSManager(t, clock)
	exp := gjwt.NewNumericDate(clock.t.Add(time.Minute))

	cases := map[string]AccessClaims{
		"missing sub": {SID: "sid", RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: exp}},
		"missing sid": {RegisteredClaims: gjwt.RegisteredClaims{Subject: "alice", ExpiresAt: exp}},
		"missing exp": {SID: "sid", RegisteredClaims: gjwt.RegisteredClaims{Subject: "alice"}},
	}
	for name, claims := range cases {
		signed, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
		if err != nil {
			t.Fatalf("%s: sign: %v", name, err)
		}
		if _, err := m.ParseAccess(signed); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
		if _, err := m.ParseForRevocation(signed); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected revocation parse to fail, got %v", name, err)
		}
	}
}

func TestParseAccessRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := AccessClaims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{Subject: "alice", ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
	if _, err := m.CreateAccess("alice", "sid", 0); err == nil {
		t.Fatal("expected signing without a private key to fail")
	}
}

func TestParseAccessIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "gosession",
		Audience:      "api",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	access, err := m.CreateAccess("alice", "s1", 0)
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseAccess(access); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	sign := func(iss, aud string, exp time.Duration) string {
		c := AccessClaims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    iss,
			Audience:  gjwt.ClaimStrings{aud},
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(exp)),
			IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}
		s, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c).SignedString(priv)
		return s
	}

	if _, err := m.ParseAccess(sign("other", "api", time.Minute)); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}
	if _, err := m.ParseAccess(sign("gosession", "other-api", time.Minute)); err == nil {
		t.Fatal("expected wrong audience to fail")
	}
	if _, err := m.ParseAccess(sign("gosession", "api", -15*time.Second)); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
	if _, err := m.ParseAccess(sign("gosession", "api", -2*time.Minute)); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseAccessUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := AccessClaims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{Subject: "alice", ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString(priv1)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected unknown kid failure")
	}

	good, err := m.CreateAccess("alice", "s1", 0)
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseAccess(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, _ := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k2": pub2}})
	if _, err := m2.ParseAccess(good); err == nil {
		t.Fatal("expected parse failure with mismatched key set")
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := map[string]Config{
		"negative ttl":     {AccessTTL: -time.Minute, PrivateKey: testSecret},
		"missing secret":   {SigningMethod: MethodHS256},
		"leeway too large": {PrivateKey: testSecret, Leeway: time.Hour},
		"unknown method":   {SigningMethod: "rs256", PrivateKey: testSecret},
		"ed25519 no keys":  {SigningMethod: MethodEd25519},
	}
	for name, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
