package sheet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchRange_ReturnsGrid(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"Sheet1!A1:C2","values":[["a","b","c"],["1","2","3"]]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "secret")
	rows, err := c.FetchRange(context.Background(), "src-1", "Sheet1!A1:C2")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if gotPath != "/v1/sources/src-1/values/Sheet1!A1:C2" {
		t.Fatalf("path=%q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth=%q", gotAuth)
	}
	if len(rows) != 2 || rows[1][2] != "3" {
		t.Fatalf("rows=%v", rows)
	}
}

func TestFetchRange_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such range", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "")
	_, err := c.FetchRange(context.Background(), "src-1", "Missing!A1:B2")
	if !errors.Is(err, ErrRangeNotFound) {
		t.Fatalf("err=%v want ErrRangeNotFound", err)
	}
}

func TestFetchRange_AuthRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		c := NewClient(srv.Client(), srv.URL, "stale")
		_, err := c.FetchRange(context.Background(), "src-1", "A1:B2")
		srv.Close()
		if !errors.Is(err, ErrSourceUnavailable) {
			t.Fatalf("status %d: err=%v want ErrSourceUnavailable", status, err)
		}
	}
}

func TestFetchRange_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // dial fails

	c := NewClient(http.DefaultClient, srv.URL, "")
	_, err := c.FetchRange(context.Background(), "src-1", "A1:B2")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err=%v want ErrSourceUnavailable", err)
	}
}

func TestFetchRange_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "")
	_, err := c.FetchRange(context.Background(), "src-1", "A1:B2")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err=%v want ErrSourceUnavailable", err)
	}
}

func TestFetchRange_EmptySourceID(t *testing.T) {
	c := NewClient(http.DefaultClient, "http://unused", "")
	_, err := c.FetchRange(context.Background(), "", "A1:B2")
	if !errors.Is(err, ErrRangeNotFound) {
		t.Fatalf("err=%v want ErrRangeNotFound", err)
	}
}
