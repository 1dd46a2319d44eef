package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avbdr/partyline/internal/core"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.Client(), func() string { return "tok-1" }, 2*time.Second)
}

func TestDoAttachesAuth(t *testing.T) {
	var gotAuth, gotExtra string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotExtra = r.Header.Get("X-PSN-RTC-TITLE-ID")
		w.Write([]byte(`{"ok":true}`))
	})

	hdr := http.Header{}
	hdr.Set("X-PSN-RTC-TITLE-ID", "METROPOL_IOS")
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.Do(context.Background(), http.MethodPost, "/x", hdr, map[string]int{"a": 1}, &out); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "bearer tok-1" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotExtra != "METROPOL_IOS" {
		t.Fatalf("title header = %q", gotExtra)
	}
	if !out.OK {
		t.Fatal("body not decoded")
	}
}

func TestDoErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusConflict, func(err error) bool {
			var e *core.ConflictError
			return errors.As(err, &e)
		}},
		{http.StatusPreconditionFailed, func(err error) bool {
			var e *core.ConflictError
			return errors.As(err, &e)
		}},
		{http.StatusBadRequest, func(err error) bool {
			var e *core.BackendError
			return errors.As(err, &e) && e.Status == http.StatusBadRequest
		}},
		{http.StatusInternalServerError, func(err error) bool {
			var e *core.BackendError
			return errors.As(err, &e)
		}},
	}
	for _, c := range cases {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		})
		err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
		if !c.check(err) {
			t.Fatalf("status %d: err = %v", c.status, err)
		}
	}
}

func TestDoTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, srv.Client(), func() string { return "t" }, 50*time.Millisecond)
	err := c.Do(context.Background(), http.MethodPost, "/slow", nil, nil, nil)
	var toErr *core.TimeoutError
	if !errors.As(err, &toErr) {
		t.Fatalf("err = %v, want TimeoutError", err)
	}
}

func TestDoConnectionRefused(t *testing.T) {
	c := New("http://127.0.0.1:1", http.DefaultClient, func() string { return "t" }, time.Second)
	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	var trErr *core.TransportError
	if !errors.As(err, &trErr) {
		t.Fatalf("err = %v, want TransportError", err)
	}
}
