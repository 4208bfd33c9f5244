package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNewHMACStrategy_DefaultTTL(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	if string(strategy.secret) != "secret" {
		t.Fatalf("unexpected secret: %q", string(strategy.secret))
	}
	if strategy.ttl != 24*time.Hour {
		t.Fatalf("unexpected ttl: %s", strategy.ttl)
	}
}

func TestHMACStrategy_IssueAndParse(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{TTL: time.Minute})
	token, err := strategy.IssueToken("farmer-42")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	producerID, err := strategy.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if producerID != "farmer-42" {
		t.Fatalf("unexpected producer id: %s", producerID)
	}
}

func TestHMACStrategy_IssueRejectsUnsupportedID(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	for _, id := range []string{"", "a:b"} {
		if _, err := strategy.IssueToken(id); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", id, err)
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

func TestHMACStrategy_ParseTamperedSignature(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{TTL: time.Minute})
	token, err := strategy.IssueToken("F7")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(token)
	parts := strings.Split(string(raw), ":")
	parts[0] = "F8"
	tampered := base64.StdEncoding.EncodeToString([]byte(strings.Join(parts, ":")))
	if _, err := strategy.ParseToken(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHMACStrategy_ParseOtherSecret(t *testing.T) {
	token, _ := NewHMACStrategy("one", Options{}).IssueToken("F1")
	if _, err := NewHMACStrategy("two", Options{}).ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHMACStrategy_ParseInvalidExpiry(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	payload := "F1:not-a-number"
	token := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", payload, strategy.sign(payload))))
	if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHMACStrategy_ParseExpired(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{TTL: time.Hour})
	token, _ := strategy.IssueToken("F1")
	strategy.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHMACStrategy_Name(t *testing.T) {
	if NewHMACStrategy("secret", Options{}).Name() != "hmac" {
		t.Fatal("unexpected name")
	}
}
