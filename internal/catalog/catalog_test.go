package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/querystate"
	"github.com/me/shopadmin/internal/session"
	"github.com/me/shopadmin/pkg/model"
)

func newGateway(t *testing.T, h http.Handler) *gateway.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return gateway.New(gateway.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)
}

func openSession(t *testing.T, token string) *session.Store {
	t.Helper()
	ctx := context.Background()
	s, err := session.Open(ctx, session.NewMemoryStorage(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if token != "" {
		if err := s.SetToken(ctx, token); err != nil {
			t.Fatalf("SetToken: %v", err)
		}
	}
	return s
}

func TestListParams_Request(t *testing.T) {
	tests := []struct {
		name      string
		params    ListParams
		wantPath  string
		wantQuery string
	}{
		{
			name:      "collection",
			params:    ListParams{Limit: 10},
			wantPath:  "/products",
			wantQuery: "limit=10&skip=0",
		},
		{
			name:      "sorted",
			params:    ListParams{Limit: 10, Skip: 20, SortBy: "price", Order: "desc"},
			wantPath:  "/products",
			wantQuery: "limit=10&order=desc&skip=20&sortBy=price",
		},
		{
			name:      "search",
			params:    ListParams{Q: "phone", Limit: 5, Category: "smartphones"},
			wantPath:  "/products/search",
			wantQuery: "category=smartphones&limit=5&q=phone&skip=0",
		},
		{
			name:      "category only",
			params:    ListParams{Category: "home decoration", Limit: 10, Brand: "Ikea", PriceMax: "50"},
			wantPath:  "/products/category/home%20decoration",
			wantQuery: "brand=Ikea&limit=10&priceMax=50&skip=0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.params.request()
			if req.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", req.Path, tt.wantPath)
			}
			if got := req.Query.Encode(); got != tt.wantQuery {
				t.Errorf("Query = %q, want %q", got, tt.wantQuery)
			}
		})
	}
}

func TestParamsFromQuery(t *testing.T) {
	q := querystate.ReadListQuery(querystate.Parse("q=+tv+&take=25&skip=50&sortBy=title&order=desc&brand=LG"))
	got := ParamsFromQuery(q)
	want := ListParams{Q: "tv", SortBy: "title", Order: "desc", Limit: 25, Skip: 50, Brand: "LG"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParamsFromQuery mismatch (-want +got):\n%s", diff)
	}
}

func TestList_SendsTokenAndDecodes(t *testing.T) {
	var gotAuth string
	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(model.ProductsPage{
			Products: []model.Product{{ID: 1, Title: "Essence Mascara", Price: 9.99}},
			Total:    194,
			Limit:    1,
		})
	}))
	c := New(gw, openSession(t, "tok"), nil, nil)

	page, err := c.List(context.Background(), ListParams{Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if page.Total != 194 || len(page.Products) != 1 || page.Products[0].Title != "Essence Mascara" {
		t.Errorf("page = %+v", page)
	}
}

func TestUnauthorized_LogsOutAndNotifies(t *testing.T) {
	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Token Expired!"}`))
	}))
	sess := openSession(t, "stale")
	expired := 0
	c := New(gw, sess, func() { expired++ }, nil)

	_, err := c.Get(context.Background(), 1)
	if !gateway.IsUnauthorized(err) {
		t.Fatalf("err = %v, want 401", err)
	}
	if err.Error() != "Token Expired!" {
		t.Errorf("message = %q", err.Error())
	}
	if sess.IsAuthenticated() {
		t.Error("session still authenticated after 401")
	}
	if expired != 1 {
		t.Errorf("onExpired called %d times, want 1", expired)
	}
}

func TestMutations(t *testing.T) {
	type call struct {
		Method string
		Path   string
		Body   map[string]any
	}
	var calls []call
	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{Method: r.Method, Path: r.URL.Path}
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&c.Body)
		}
		calls = append(calls, c)
		switch r.Method {
		case http.MethodPost:
			w.Write([]byte(`{"id":195,"title":"Lamp","price":12,"stock":3,"category":"lighting"}`))
		case http.MethodPut:
			w.Write([]byte(`{"id":5,"title":"Lamp v2","price":15,"stock":3,"category":"lighting"}`))
		case http.MethodDelete:
			w.Write([]byte(`{"id":5,"isDeleted":true}`))
		}
	}))
	c := New(gw, openSession(t, "tok"), nil, nil)
	ctx := context.Background()
	in := model.ProductInput{Title: "Lamp", Price: 12, Stock: 3, Category: "lighting"}

	created, err := c.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != 195 {
		t.Errorf("created.ID = %d", created.ID)
	}
	updated, err := c.Update(ctx, 5, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Lamp v2" {
		t.Errorf("updated.Title = %q", updated.Title)
	}
	res, err := c.Delete(ctx, 5)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !res.IsDeleted {
		t.Error("IsDeleted = false")
	}

	want := []call{
		{Method: "POST", Path: "/products/add", Body: map[string]any{"title": "Lamp", "price": 12.0, "stock": 3.0, "category": "lighting"}},
		{Method: "PUT", Path: "/products/5", Body: map[string]any{"title": "Lamp", "price": 12.0, "stock": 3.0, "category": "lighting"}},
		{Method: "DELETE", Path: "/products/5"},
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr string
	}{
		{"accessToken", 200, `{"accessToken":"a1","username":"emilys"}`, "a1", ""},
		{"token", 200, `{"token":"t1"}`, "t1", ""},
		{"no token", 200, `{"username":"emilys"}`, "", "login response carried no token"},
		{"bad credentials", 400, `{"message":"Invalid credentials"}`, "", "Invalid credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/user/login" || r.Method != http.MethodPost {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				if r.Header.Get("Authorization") != "" {
					t.Error("login sent Authorization header")
				}
				var req model.LoginRequest
				json.NewDecoder(r.Body).Decode(&req)
				if req.Username != "emilys" || req.Password != "pw" {
					t.Errorf("login body = %+v", req)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			got, err := Login(context.Background(), gw, "emilys", "pw")
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCategories(t *testing.T) {
	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/category-list" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`["beauty","laptops"]`))
	}))
	got, err := New(gw, StaticToken("tok"), nil, nil).Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if diff := cmp.Diff([]string{"beauty", "laptops"}, got); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}
