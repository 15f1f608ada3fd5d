package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type item struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, nil, opts...)
}

func TestDo_SuccessDecodes(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		if ct := r.Header.Get("Content-Type"); ct != "" {
			t.Errorf("Content-Type = %q, want empty for bodyless request", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"title":"Phone"}`))
	})

	got, err := Call[item](context.Background(), c, Request{
		Path:  "/products/7",
		Query: url.Values{"select": {"id,title"}},
	}, Options{Token: "tok"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if diff := cmp.Diff(item{ID: 7, Title: "Phone"}, got); diff != "" {
		t.Errorf("decoded item mismatch (-want +got):\n%s", diff)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok")
	}
	if gotPath != "/products/7" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "select=id%2Ctitle" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestDo_NoTokenNoAuthHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("Authorization header sent without a token")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.Do(context.Background(), Request{Path: "/x"}, Options{}, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestDo_JSONBody(t *testing.T) {
	var gotCT, gotMethod string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		gotMethod = r.Method
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"id":195,"title":"Widget"}`))
	})

	got, err := Call[item](context.Background(), c, Request{
		Method: http.MethodPost,
		Path:   "/products/add",
		Body:   map[string]any{"title": "Widget"},
	}, Options{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.ID != 195 {
		t.Errorf("ID = %d, want 195", got.ID)
	}
	if gotCT != "application/json" {
		t.Errorf("Content-Type = %q", gotCT)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q", gotMethod)
	}
	if gotBody["title"] != "Widget" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestDo_EmptySuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	out := item{ID: 1}
	if err := c.Do(context.Background(), Request{Path: "/x"}, Options{}, &out); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if out.ID != 1 {
		t.Errorf("out modified on empty body: %+v", out)
	}
}

func TestDo_ErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"json message", 404, `{"message":"Product with id '999' not found"}`, "Product with id '999' not found"},
		{"json error", 400, `{"error":"bad input"}`, "bad input"},
		{"message wins over error", 400, `{"message":"first","error":"second"}`, "first"},
		{"empty message falls to error", 400, `{"message":"","error":"second"}`, "second"},
		{"plain text", 500, "oops", "oops"},
		{"empty body", 500, "", "HTTP 500"},
		{"whitespace body", 502, "  \n", "HTTP 502"},
		{"json without fields", 500, `{"code":1}`, "HTTP 500"},
		{"json array", 500, `[1,2]`, "HTTP 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			err := c.Do(context.Background(), Request{Path: "/products/999"}, Options{}, nil)
			var he *HTTPError
			if !errors.As(err, &he) {
				t.Fatalf("err = %v, want *HTTPError", err)
			}
			if he.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", he.StatusCode, tt.status)
			}
			if err.Error() != tt.want {
				t.Errorf("message = %q, want %q", err.Error(), tt.want)
			}
			if UserMessage(err) != tt.want {
				t.Errorf("UserMessage = %q, want %q", UserMessage(err), tt.want)
			}
		})
	}
}

func TestDo_UnauthorizedCallsHookOnce(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Token Expired!"}`))
	})

	var calls atomic.Int32
	err := c.Do(context.Background(), Request{Path: "/products"}, Options{
		Token:          "stale",
		OnUnauthorized: func() { calls.Add(1) },
	}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("OnUnauthorized called %d times, want 1", n)
	}
	if !IsUnauthorized(err) {
		t.Errorf("IsUnauthorized(%v) = false", err)
	}
	if err.Error() == "" {
		t.Error("401 error message is empty")
	}
}

func TestDo_NonUnauthorizedSkipsHook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	called := false
	err := c.Do(context.Background(), Request{Path: "/x"}, Options{OnUnauthorized: func() { called = true }}, nil)
	if StatusCode(err) != http.StatusForbidden {
		t.Fatalf("StatusCode = %d", StatusCode(err))
	}
	if called {
		t.Error("OnUnauthorized called for 403")
	}
}

func TestDo_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := New(Config{BaseURL: base, Timeout: time.Second}, nil)
	err := c.Do(context.Background(), Request{Path: "/products"}, Options{}, nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if got := UserMessage(err); got != GenericFailure {
		t.Errorf("UserMessage = %q, want %q", got, GenericFailure)
	}
}

func TestDo_Canceled(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Do(ctx, Request{Path: "/slow"}, Options{}, nil)
	}()
	cancel()

	err := <-done
	if !IsCanceled(err) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := UserMessage(err); got != "" {
		t.Errorf("UserMessage = %q, want empty", got)
	}
}

func TestDo_DecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	_, err := Call[item](context.Background(), c, Request{Path: "/x"}, Options{})
	if err == nil {
		t.Fatal("expected decode error")
	}
	if got := UserMessage(err); got != GenericFailure {
		t.Errorf("UserMessage = %q", got)
	}
}

func TestDo_LoadingCounter(t *testing.T) {
	var l Loading
	entered := make(chan struct{})
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			close(entered)
			<-release
		}
		w.WriteHeader(http.StatusNoContent)
	}, WithLoading(&l))

	done := make(chan error, 1)
	go func() {
		done <- c.Do(context.Background(), Request{Path: "/slow"}, Options{}, nil)
	}()
	<-entered
	if !l.IsLoading() {
		t.Error("IsLoading = false during request")
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Do: %v", err)
	}
	if l.IsLoading() {
		t.Errorf("IsLoading = true after request, count %d", l.Count())
	}

	if err := c.Do(context.Background(), Request{Path: "/quiet", Quiet: true}, Options{}, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if l.Count() != 0 {
		t.Errorf("quiet request changed count to %d", l.Count())
	}
}

func TestLoading_NeverNegative(t *testing.T) {
	var l Loading
	l.Stop()
	l.Stop()
	if l.Count() != 0 {
		t.Errorf("Count = %d, want 0", l.Count())
	}
	l.Start()
	l.Start()
	l.Stop()
	if l.Count() != 1 || !l.IsLoading() {
		t.Errorf("Count = %d, want 1", l.Count())
	}
}

func TestRequestTarget(t *testing.T) {
	tests := []struct {
		req  Request
		want string
	}{
		{Request{Path: "/products"}, "http://api/products"},
		{Request{Path: "/products", Query: url.Values{"limit": {"10"}}}, "http://api/products?limit=10"},
		{Request{Path: "/products/search?q=a", Query: url.Values{"skip": {"5"}}}, "http://api/products/search?q=a&skip=5"},
	}
	for _, tt := range tests {
		if got := tt.req.target("http://api"); got != tt.want {
			t.Errorf("target(%+v) = %q, want %q", tt.req, got, tt.want)
		}
	}
}
