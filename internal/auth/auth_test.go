package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rosterlab/rosterlab/internal/auth"
)

var secret = []byte("test-secret")

func TestSessionProvider(t *testing.T) {
	p := auth.NewSessionProvider(string(secret))
	tok, err := auth.IssueSessionToken(secret, "user-42", "Ash", time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken() error = %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/suggest", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	id, err := p.Authenticate(context.Background(), r)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Subject != "user-42" || id.DisplayName != "Ash" || id.Provider != "session" {
		t.Errorf("Authenticate() = %+v, want user-42/Ash/session", id)
	}

	cookieReq := httptest.NewRequest(http.MethodPost, "/api/v1/suggest", nil)
	cookieReq.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: tok})
	if id, err := p.Authenticate(context.Background(), cookieReq); err != nil || id == nil {
		t.Errorf("Authenticate(cookie) = %v, %v; want identity", id, err)
	}
}

func TestSessionProvider_Rejects(t *testing.T) {
	p := auth.NewSessionProvider(string(secret))

	expired, _ := auth.IssueSessionToken(secret, "u", "", -time.Minute)
	forged, _ := auth.IssueSessionToken([]byte("other"), "u", "", time.Hour)
	noSubject, _ := auth.IssueSessionToken(secret, "", "", time.Hour)

	for name, tok := range map[string]string{
		"expired":    expired,
		"forged":     forged,
		"no subject": noSubject,
		"garbage":    "not.a.jwt",
	} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+tok)
		if id, err := p.Authenticate(context.Background(), r); err == nil {
			t.Errorf("%s: Authenticate() = %+v, want error", name, id)
		}
	}

	if id, err := p.Authenticate(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil)); id != nil || err != nil {
		t.Errorf("Authenticate(no token) = %v, %v; want nil, nil", id, err)
	}
}

func TestAPIKeyProvider(t *testing.T) {
	p := auth.NewAPIKeyProvider([]string{" key-1 ", ""})
	if !p.Enabled() {
		t.Fatal("Enabled() = false, want true")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-API-Key", "key-1")
	id, err := p.Authenticate(context.Background(), r)
	if err != nil || id == nil {
		t.Fatalf("Authenticate(valid) = %v, %v", id, err)
	}
	if id.Provider != "apikey" || len(id.Subject) != len("apikey:")+16 {
		t.Errorf("Authenticate() subject = %q", id.Subject)
	}

	r.Header.Set("X-API-Key", "nope")
	if _, err := p.Authenticate(context.Background(), r); err == nil {
		t.Error("Authenticate(invalid) error = nil, want error")
	}

	p.RemoveKey("key-1")
	if p.Enabled() {
		t.Error("Enabled() after RemoveKey = true, want false")
	}
}

func TestProviderChain(t *testing.T) {
	chain := auth.NewProviderChain(
		auth.NewSessionProvider(""), // disabled
		auth.NewAPIKeyProvider([]string{"k"}),
	)
	if got := chain.ListProviders(); len(got) != 2 || got[0] != "session" || got[1] != "apikey" {
		t.Errorf("ListProviders() = %v", got)
	}

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	if id, err := chain.Authenticate(context.Background(), anon); id != nil || err != nil {
		t.Errorf("Authenticate(anonymous) = %v, %v; want nil, nil", id, err)
	}

	keyed := httptest.NewRequest(http.MethodGet, "/", nil)
	keyed.Header.Set("X-API-Key", "k")
	if id, err := chain.Authenticate(context.Background(), keyed); err != nil || id == nil || id.Provider != "apikey" {
		t.Errorf("Authenticate(keyed) = %v, %v; want apikey identity", id, err)
	}
}
