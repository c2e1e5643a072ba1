package ipresolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveReturnsTrimmedAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("203.0.113.7\n"))
	}))
	defer srv.Close()

	addr, err := New(srv.URL).Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if addr != "203.0.113.7" {
		t.Fatalf("addr = %q", addr)
	}
}

func TestResolveRejectsNonAddressBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>blocked</html>"))
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Resolve(context.Background()); err == nil {
		t.Fatal("expected error for non-address body")
	}
}

func TestResolveRejectsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Resolve(context.Background()); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestResolveHonoursContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(srv.URL).Resolve(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
