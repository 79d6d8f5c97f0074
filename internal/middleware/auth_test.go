package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func echoIdentity(t *testing.T, wantID uuid.UUID, wantRole string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetUserID(r.Context()); got != wantID {
			t.Errorf("Expected user ID %s in context, got %s", wantID, got)
		}
		if got := GetUserRole(r.Context()); got != wantRole {
			t.Errorf("Expected role %q in context, got %q", wantRole, got)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	userID := uuid.New()

	token, err := auth.GenerateAccessToken(userID, "ana@example.com", "student")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	auth.Middleware(echoIdentity(t, userID, "student")).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	auth := NewJWTAuth("test-secret")

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()

	auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run without a token")
	})).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestJWTMiddleware_MalformedHeader(t *testing.T) {
	auth := NewJWTAuth("test-secret")

	for _, header := range []string{"Bearer", "Basic abc123", "just-a-token"} {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()

		auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("Handler should not run for header %q", header)
		})).ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Header %q: expected 401, got %d", header, w.Code)
		}
	}
}

func TestJWTMiddleware_WrongSecret(t *testing.T) {
	issuer := NewJWTAuth("secret-one")
	verifier := NewJWTAuth("secret-two")

	token, err := issuer.GenerateAccessToken(uuid.New(), "ana@example.com", "student")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	verifier.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run with a token signed by another secret")
	})).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func requestWithRole(role string) *http.Request {
	req := httptest.NewRequest("GET", "/gated", nil)
	ctx := context.WithValue(req.Context(), UserIDKey, uuid.New())
	if role != "" {
		ctx = context.WithValue(ctx, UserRoleKey, role)
	}
	return req.WithContext(ctx)
}

func TestRequireRole(t *testing.T) {
	gate := RequireRole("student")

	tests := []struct {
		name     string
		role     string
		expected int
	}{
		{"allowed role", "student", http.StatusOK},
		{"disallowed role", "advisor", http.StatusForbidden},
		{"no role", "", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(w, requestWithRole(tc.role))

			if w.Code != tc.expected {
				t.Errorf("Role %q: expected %d, got %d", tc.role, tc.expected, w.Code)
			}
		})
	}
}

func TestRequireRole_MultipleRoles(t *testing.T) {
	gate := RequireRole("lecturer", "admin")

	for role, want := range map[string]int{
		"lecturer": http.StatusOK,
		"admin":    http.StatusOK,
		"student":  http.StatusForbidden,
	} {
		w := httptest.NewRecorder()
		gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(w, requestWithRole(role))

		if w.Code != want {
			t.Errorf("Role %q: expected %d, got %d", role, want, w.Code)
		}
	}
}

func TestRequireRole_ForbiddenBody(t *testing.T) {
	gate := RequireRole("admin")

	w := httptest.NewRecorder()
	gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(w, requestWithRole("student"))

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if resp.Error.Code != "FORBIDDEN" {
		t.Errorf("Expected FORBIDDEN, got %q", resp.Error.Code)
	}
}
