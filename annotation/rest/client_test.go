package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHTTPClient_get(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/api/users/1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if v := r.URL.RawQuery; v != "tag=a&tag=b&verbose=true" {
			t.Errorf("unexpected query: %s", v)
		}
		if v := r.Header.Get("Authorization"); v != "Basic dG9rZW4=" {
			t.Errorf("unexpected authorization: %s", v)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":"1"}}`))
	}))
	defer ts.Close()

	header := make(http.Header)
	header.Set("Authorization", "Basic dG9rZW4=")

	resp, err := NewHTTPClient().Do(context.Background(), &Request{
		Method:  "get",
		URL:     "/users/1",
		BaseURL: ts.URL + "/api/",
		Header:  header,
		Query: map[string]interface{}{
			"verbose": true,
			"tag":     []interface{}{"a", "b"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]interface{}{
		"user": map[string]interface{}{"id": "1"},
	}
	if diff := cmp.Diff(want, resp.Body); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPClient_post(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if v := r.Header.Get("Content-Type"); v != "application/json" {
			t.Errorf("unexpected content type: %s", v)
		}
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(b, &body); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(map[string]interface{}{"name": "foo"}, body); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		_, _ = w.Write([]byte(`created`))
	}))
	defer ts.Close()

	resp, err := NewHTTPClient().Do(context.Background(), &Request{
		Method: "post",
		URL:    ts.URL + "/users",
		Body:   map[string]interface{}{"name": "foo"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Body != "created" {
		t.Errorf("unexpected body: %v", resp.Body)
	}
}

func TestHTTPClient_statusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := NewHTTPClient().Do(context.Background(), &Request{
		Method: "get",
		URL:    ts.URL,
	})

	var sErr *StatusError
	if !errors.As(err, &sErr) {
		t.Fatalf("unexpected error: %v", err)
	}
	if sErr.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected status: %d", sErr.StatusCode)
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base string
		ref  string
		want string
	}{
		{"", "http://foo.com", "http://foo.com"},
		{"http://foo.com/api", "/users", "http://foo.com/api/users"},
		{"http://foo.com/api/", "users", "http://foo.com/api/users"},
		{"http://foo.com/api", "http://bar.com/users", "http://bar.com/users"},
		{"http://foo.com/api", "", "http://foo.com/api"},
	}
	for _, tt := range tests {
		u, err := ResolveURL(tt.base, tt.ref)
		if err != nil {
			t.Fatal(err)
		}
		if u.String() != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %s, want %s", tt.base, tt.ref, u.String(), tt.want)
		}
	}
}
