package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenAuthenticator(t *testing.T) {
	authn := NewTokenAuthenticator(map[string]string{"secret": "alice", "other": "bob"})

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"Valid", "Bearer secret", "alice", nil},
		{"SecondToken", "Bearer other", "bob", nil},
		{"Missing", "", "", errMissingAuth},
		{"WrongScheme", "Basic secret", "", errInvalidScheme},
		{"WrongToken", "Bearer wrong", "", errInvalidToken},
		{"Prefix", "Bearer secre", "", errInvalidToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			got, err := authn.Authenticate(req)
			if err != tc.wantErr {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("caller = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHeaderAuthenticator_TrimsCaller(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(CallerHeader, "  alice ")
	got, err := HeaderAuthenticator{}.Authenticate(req)
	if err != nil || got != "alice" {
		t.Fatalf("got %q, %v", got, err)
	}

	req.Header.Set(CallerHeader, "   ")
	if _, err := (HeaderAuthenticator{}).Authenticate(req); err != errMissingCaller {
		t.Fatalf("err = %v, want %v", err, errMissingCaller)
	}
}

func TestNewAuthenticator(t *testing.T) {
	if _, ok := NewAuthenticator(nil).(HeaderAuthenticator); !ok {
		t.Fatal("expected HeaderAuthenticator without tokens")
	}
	if _, ok := NewAuthenticator(map[string]string{"t": "a"}).(*TokenAuthenticator); !ok {
		t.Fatal("expected TokenAuthenticator with tokens")
	}
}

func TestAuthMiddleware_SetsCaller(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = callerFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := AuthMiddleware(NewTokenAuthenticator(map[string]string{"secret": "alice"}), next)

	req := httptest.NewRequest("GET", "/v1/forms", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if seen != "alice" {
		t.Fatalf("caller = %q", seen)
	}

	seen = ""
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/forms", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if seen != "" {
		t.Fatal("next handler ran without a caller")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
}
