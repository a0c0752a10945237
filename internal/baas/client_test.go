package baas

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeBackend records the last request and answers with a canned handler.
type fakeBackend struct {
	t       *testing.T
	srv     *httptest.Server
	last    *http.Request
	body    []byte
	handler http.HandlerFunc
}

func newFake(t *testing.T, h http.HandlerFunc) (*fakeBackend, *Client) {
	t.Helper()
	f := &fakeBackend{t: t, handler: h}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.last = r
		f.body, _ = io.ReadAll(r.Body)
		f.handler(w, r)
	}))
	t.Cleanup(f.srv.Close)

	c, err := New(f.srv.URL, "anon-key", WithServiceKey("service-key"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f, c
}

func writeJSON(w http.ResponseWriter, status int, v string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, v)
}

func TestNewRejectsMissingConfig(t *testing.T) {
	if _, err := New("", "key"); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := New("https://example.supabase.co", ""); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := New("ftp://example.com", "key"); err == nil {
		t.Error("expected error for non-http scheme")
	}
}

func TestSelect(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `[{"id":1,"title":"Bike"}]`)
	})

	var raw json.RawMessage
	err := c.Select(context.Background(), "listings", "*,profiles(*)", SelectOptions{Order: "created_at.desc"}, &raw)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !strings.Contains(string(raw), "Bike") {
		t.Errorf("raw = %s", raw)
	}
	if f.last.URL.Path != "/rest/v1/listings" {
		t.Errorf("path = %q", f.last.URL.Path)
	}
	if got := f.last.URL.Query().Get("select"); got != "*,profiles(*)" {
		t.Errorf("select = %q", got)
	}
	if got := f.last.URL.Query().Get("order"); got != "created_at.desc" {
		t.Errorf("order = %q", got)
	}
	if got := f.last.Header.Get("apikey"); got != "anon-key" {
		t.Errorf("apikey = %q", got)
	}
	if got := f.last.Header.Get("Authorization"); got != "Bearer anon-key" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestSelectOne(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "eq.7" {
			writeJSON(w, 200, `[{"id":7,"title":"Lamp"}]`)
			return
		}
		writeJSON(w, 200, `[]`)
	})

	var row struct {
		Title string `json:"title"`
	}
	if err := c.SelectOne(context.Background(), "listings", "*", "7", &row); err != nil {
		t.Fatalf("SelectOne: %v", err)
	}
	if row.Title != "Lamp" {
		t.Errorf("Title = %q", row.Title)
	}
	if got := f.last.URL.Query().Get("limit"); got != "1" {
		t.Errorf("limit = %q", got)
	}

	err := c.SelectOne(context.Background(), "listings", "*", "8", &row)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertUsesUserToken(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 201, `[{"id":"abc"}]`)
	})

	var out struct {
		ID string `json:"id"`
	}
	err := c.Insert(context.Background(), "user-token", "listings", map[string]any{"title": "Desk"}, &out)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if out.ID != "abc" {
		t.Errorf("ID = %q", out.ID)
	}
	if got := f.last.Header.Get("Authorization"); got != "Bearer user-token" {
		t.Errorf("Authorization = %q", got)
	}
	if got := f.last.Header.Get("Prefer"); got != "return=representation" {
		t.Errorf("Prefer = %q", got)
	}
	if !strings.Contains(string(f.body), `"title":"Desk"`) {
		t.Errorf("body = %s", f.body)
	}
}

func TestErrorParsing(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		code     string
		message  string
	}{
		{"postgrest", 409, `{"code":"23505","message":"duplicate key"}`, ErrDuplicate, "23505", "duplicate key"},
		{"storage duplicate", 400, `{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`, ErrDuplicate, "409", "The resource already exists"},
		{"gotrue", 401, `{"code":401,"error_code":"bad_jwt","msg":"invalid JWT"}`, ErrUnauthorized, "401", "invalid JWT"},
		{"not found", 404, `not here`, ErrNotFound, "", "not here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(tt.status, []byte(tt.body))
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if apiErr.Code != tt.code {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.code)
			}
			if apiErr.Message != tt.message {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.message)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
		})
	}
}

func TestStorageUpload(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"Key":"product-images/listings/a.jpg"}`)
	})

	s := c.Storage("product-images")
	if err := s.Upload(context.Background(), "tok", "/listings/a.jpg", []byte("jpeg"), "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if f.last.Method != http.MethodPost {
		t.Errorf("method = %s", f.last.Method)
	}
	if f.last.URL.Path != "/storage/v1/object/product-images/listings/a.jpg" {
		t.Errorf("path = %q", f.last.URL.Path)
	}
	if got := f.last.Header.Get("x-upsert"); got != "false" {
		t.Errorf("x-upsert = %q", got)
	}
	if got := f.last.Header.Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Content-Type = %q", got)
	}
	if string(f.body) != "jpeg" {
		t.Errorf("body = %q", f.body)
	}
}

func TestStorageUploadDuplicate(t *testing.T) {
	_, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, `{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`)
	})

	err := c.Storage("b").Upload(context.Background(), "", "k.jpg", []byte("x"), "image/jpeg")
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestStoragePublicURL(t *testing.T) {
	c, err := New("https://proj.example.co/", "anon")
	if err != nil {
		t.Fatal(err)
	}
	got := c.Storage("product-images").PublicURL("listings/a b.jpg")
	want := "https://proj.example.co/storage/v1/object/public/product-images/listings/a%20b.jpg"
	if got != want {
		t.Errorf("PublicURL = %q, want %q", got, want)
	}
}

func TestStorageRemove(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `[]`)
	})

	if err := c.Storage("b").Remove(context.Background(), "tok"); err != nil {
		t.Fatalf("Remove with no keys: %v", err)
	}
	if f.last != nil {
		t.Fatal("Remove with no keys should not call the backend")
	}

	if err := c.Storage("b").Remove(context.Background(), "tok", "/x.jpg", "y.jpg"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if f.last.Method != http.MethodDelete || f.last.URL.Path != "/storage/v1/object/b" {
		t.Errorf("request = %s %s", f.last.Method, f.last.URL.Path)
	}
	if string(f.body) != `{"prefixes":["x.jpg","y.jpg"]}` {
		t.Errorf("body = %s", f.body)
	}
}

func TestSignInWithPassword(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "password" {
			writeJSON(w, 400, `{"error":"unsupported_grant_type"}`)
			return
		}
		writeJSON(w, 200, `{
			"access_token":"jwt","expires_in":3600,"expires_at":1700000000,
			"user":{"id":"u1","email":"ana@example.com","created_at":"2024-01-02T03:04:05Z","user_metadata":{"full_name":"Ana"}}
		}`)
	})

	s, err := c.SignInWithPassword(context.Background(), "ana@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if s.AccessToken != "jwt" || s.User.ID != "u1" || s.User.Name != "Ana" {
		t.Errorf("session = %+v", s)
	}
	if s.ExpiresAt.Unix() != 1700000000 {
		t.Errorf("ExpiresAt = %v", s.ExpiresAt)
	}
	if f.last.URL.Path != "/auth/v1/token" {
		t.Errorf("path = %q", f.last.URL.Path)
	}
}

func TestSignInBadCredentials(t *testing.T) {
	_, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
	})

	_, err := c.SignInWithPassword(context.Background(), "ana@example.com", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSignUpWithoutSession(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"id":"u2","email":"bo@example.com","user_metadata":{"full_name":"Bo"}}`)
	})

	s, err := c.SignUp(context.Background(), "bo@example.com", "password1", "Bo")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if s.AccessToken != "" {
		t.Errorf("AccessToken = %q, want empty", s.AccessToken)
	}
	if s.User.ID != "u2" || s.User.Name != "Bo" {
		t.Errorf("user = %+v", s.User)
	}
	if !strings.Contains(string(f.body), `"full_name":"Bo"`) {
		t.Errorf("body = %s", f.body)
	}
}

func TestGetUserAndSignOut(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			writeJSON(w, 401, `{"msg":"invalid JWT"}`)
			return
		}
		if r.URL.Path == "/auth/v1/logout" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, 200, `{"id":"u1","email":"ana@example.com","phone":"+38640111222"}`)
	})

	u, err := c.GetUser(context.Background(), "good")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Phone != "+38640111222" {
		t.Errorf("Phone = %q", u.Phone)
	}

	if _, err := c.GetUser(context.Background(), "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	if err := c.SignOut(context.Background(), "good"); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if f.last.Method != http.MethodPost {
		t.Errorf("method = %s", f.last.Method)
	}
}

func TestResetPasswordForEmail(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{}`)
	})

	err := c.ResetPasswordForEmail(context.Background(), "ana@example.com", "https://shop.example/reset")
	if err != nil {
		t.Fatalf("ResetPasswordForEmail: %v", err)
	}
	if f.last.URL.Path != "/auth/v1/recover" {
		t.Errorf("path = %q", f.last.URL.Path)
	}
	if got := f.last.URL.Query().Get("redirect_to"); got != "https://shop.example/reset" {
		t.Errorf("redirect_to = %q", got)
	}
	if string(f.body) != `{"email":"ana@example.com"}` {
		t.Errorf("body = %s", f.body)
	}
}

func TestAdminFindUserByEmail(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"users":[{"id":"u1","email":"Ana@Example.com"},{"id":"u2","email":"bo@example.com"}]}`)
	})

	u, err := c.AdminFindUserByEmail(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("AdminFindUserByEmail: %v", err)
	}
	if u == nil || u.ID != "u1" {
		t.Fatalf("user = %+v", u)
	}
	if got := f.last.Header.Get("apikey"); got != "service-key" {
		t.Errorf("apikey = %q", got)
	}

	u, err = c.AdminFindUserByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("AdminFindUserByEmail: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}
}

func TestAdminRequiresServiceKey(t *testing.T) {
	c, err := New("https://proj.example.co", "anon")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.AdminFindUserByEmail(context.Background(), "a@b.co"); !errors.Is(err, ErrServiceKeyRequired) {
		t.Errorf("expected ErrServiceKeyRequired, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `[{"id":"l1"}]`)
	})

	n, err := c.Update(context.Background(), "tok", "listings", []Filter{Eq("id", "l1")}, map[string]bool{"is_sold": true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 1 {
		t.Errorf("n = %d", n)
	}
	if f.last.Method != http.MethodPatch {
		t.Errorf("method = %s", f.last.Method)
	}
	if got := f.last.URL.Query().Get("id"); got != "eq.l1" {
		t.Errorf("id filter = %q", got)
	}
	if string(f.body) != `{"is_sold":true}` {
		t.Errorf("body = %s", f.body)
	}
}
