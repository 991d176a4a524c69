package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

func signedToken(s *HMACStrategy, payload string) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", payload, s.sign(payload))))
}

func TestNewHMACStrategy_DefaultTTL(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	if strategy == nil {
		t.Fatal("expected strategy instance")
	}
	if string(strategy.secret) != "secret" {
		t.Fatalf("unexpected secret: %q", string(strategy.secret))
	}
	if strategy.ttl != 24*time.Hour {
		t.Fatalf("unexpected ttl: %s", strategy.ttl)
	}
}

func TestNewHMACStrategy_CustomTTL(t *testing.T) {
	ttl := 2 * time.Hour
	strategy := NewHMACStrategy("secret", Options{TTL: ttl})
	if strategy.ttl != ttl {
		t.Fatalf("unexpected ttl: %s", strategy.ttl)
	}
}

func TestHMACStrategy_IssueAndParse(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{TTL: time.Minute})
	for _, actor := range []model.Actor{
		{ID: "vendor-1", Role: model.RoleVendor},
		{ID: "supplier-9", Role: model.RoleSupplier},
	} {
		token, err := strategy.IssueToken(actor)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		if token == "" {
			t.Fatal("expected non-empty token")
		}
		got, err := strategy.ParseToken(token)
		if err != nil {
			t.Fatalf("parse token: %v", err)
		}
		if got != actor {
			t.Fatalf("unexpected actor: %+v", got)
		}
	}
}

func TestHMACStrategy_IssueRejectsInvalidActors(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	cases := []model.Actor{
		{ID: "", Role: model.RoleVendor},
		{ID: "a:b", Role: model.RoleVendor},
		{ID: "worker", Role: model.RoleSystem},
		{ID: "x", Role: "admin"},
	}
	for _, actor := range cases {
		if _, err := strategy.IssueToken(actor); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %+v, got %v", actor, err)
		}
	}
}

func TestHMACStrategy_ParseInvalidBase64(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	if _, err := strategy.ParseToken("not-base64"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHMACStrategy_ParseInvalidParts(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	token := base64.StdEncoding.EncodeToString([]byte("only:two"))
	if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHMACStrategy_ParseInvalidSignature(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{TTL: time.Minute})
	token, err := strategy.IssueToken(model.Actor{ID: "v1", Role: model.RoleVendor})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	parts := strings.Split(string(raw), ":")
	if len(parts) != 4 {
		t.Fatalf("unexpected parts count: %d", len(parts))
	}
	parts[3] = "tampered"
	tamperedToken := base64.StdEncoding.EncodeToString([]byte(strings.Join(parts, ":")))
	if _, err := strategy.ParseToken(tamperedToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	other := NewHMACStrategy("other", Options{})
	if _, err := other.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}
}

func TestHMACStrategy_ParseRejectsForgedPayloads(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	future := time.Now().Add(time.Minute).Unix()
	cases := map[string]string{
		"system role":   fmt.Sprintf("system:worker:%d", future),
		"unknown role":  fmt.Sprintf("admin:x:%d", future),
		"empty subject": fmt.Sprintf("vendor::%d", future),
		"bad expiry":    "vendor:v1:not-a-number",
		"expired":       fmt.Sprintf("vendor:v1:%d", time.Now().Add(-time.Minute).Unix()),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := strategy.ParseToken(signedToken(strategy, payload)); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestHMACStrategy_Name(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	if strategy.Name() != "hmac" {
		t.Fatalf("unexpected name: %s", strategy.Name())
	}
}
