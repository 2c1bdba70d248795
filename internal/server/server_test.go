package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"shelfmark/internal/catalog"
	"shelfmark/internal/ratelimit"
	"shelfmark/internal/usertoken"
	"shelfmark/pkg/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tokens, err := usertoken.NewManager(usertoken.Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	svc := catalog.NewService(store.NewMemoryStore(), nil, nil)
	srv := New(Config{Service: svc, Tokens: tokens})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func registerVia(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]string{
		"email":    email,
		"password": "a long password",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &out)
	if out.Token == "" {
		t.Fatal("register returned no token")
	}
	return out.Token
}

func seedCatalog(t *testing.T, ts *httptest.Server, token string) (authorID, bookID string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/authors", token, map[string]string{"name": "Author"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create author: status %d", resp.StatusCode)
	}
	var author struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &author)

	resp = doJSON(t, http.MethodPost, ts.URL+"/books", token, map[string]any{
		"title":           "Test Driven Development",
		"isbn":            "978-0-321-14653-3",
		"price":           42.0,
		"authorId":        author.ID,
		"publicationDate": "2002-11-08T00:00:00Z",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create book: status %d", resp.StatusCode)
	}
	var book struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &book)
	return author.ID, book.ID
}

func TestReadsArePublicWritesAreNot(t *testing.T) {
	ts := newTestServer(t)
	token := registerVia(t, ts, "alice@example.com")
	seedCatalog(t, ts, token)

	resp, err := http.Get(ts.URL + "/books")
	if err != nil {
		t.Fatalf("anonymous list: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous list: status %d, want 200", resp.StatusCode)
	}
	var page struct {
		Items      []json.RawMessage `json:"items"`
		TotalCount int64             `json:"totalCount"`
	}
	decodeBody(t, resp, &page)
	if page.TotalCount != 1 || len(page.Items) != 1 {
		t.Errorf("list: total=%d items=%d, want 1/1", page.TotalCount, len(page.Items))
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/books", "", map[string]string{"title": "x"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous create: status %d, want 401", resp.StatusCode)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, http.MethodGet, ts.URL+"/books", "not-a-jwt", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "AUTH_INVALID_TOKEN" {
		t.Errorf("code = %q, want AUTH_INVALID_TOKEN", body.Code)
	}
}

func TestReviewOwnershipOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	alice := registerVia(t, ts, "alice@example.com")
	bob := registerVia(t, ts, "bob@example.com")
	_, bookID := seedCatalog(t, ts, alice)

	resp := doJSON(t, http.MethodPost, ts.URL+"/books/"+bookID+"/reviews", alice, map[string]any{"rating": 4})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create review: status %d", resp.StatusCode)
	}
	var review struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &review)

	resp = doJSON(t, http.MethodPut, ts.URL+"/reviews/"+review.ID, bob, map[string]any{"rating": 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner update: status %d, want 403", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, ts.URL+"/reviews/"+review.ID, "", map[string]any{"rating": 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous update: status %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, ts.URL+"/reviews/"+review.ID, alice, map[string]any{"rating": 5})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner update: status %d, want 200", resp.StatusCode)
	}
}

func TestDuplicateReviewConflictsOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	alice := registerVia(t, ts, "alice@example.com")
	_, bookID := seedCatalog(t, ts, alice)

	resp := doJSON(t, http.MethodPost, ts.URL+"/books/"+bookID+"/reviews", alice, map[string]any{"rating": 4})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first review: status %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodPost, ts.URL+"/books/"+bookID+"/reviews", alice, map[string]any{"rating": 2})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate review: status %d, want 409", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "CATALOG_CONFLICT" {
		t.Errorf("code = %q, want CATALOG_CONFLICT", body.Code)
	}
}

func TestQueryValidationOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	for _, q := range []string{"status=sold_out", "ordering=-isbn", "page=zero", "page_size=-1"} {
		resp, err := http.Get(ts.URL + "/books?" + q)
		if err != nil {
			t.Fatalf("GET ?%s: %v", q, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("?%s: status %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestBestsellersRoute(t *testing.T) {
	ts := newTestServer(t)
	token := registerVia(t, ts, "alice@example.com")
	_, bookID := seedCatalog(t, ts, token)
	resp := doJSON(t, http.MethodPost, ts.URL+"/books/"+bookID+"/reviews", token, map[string]any{"rating": 5})
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/books/bestsellers")
	if err != nil {
		t.Fatalf("bestsellers: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bestsellers: status %d", resp.StatusCode)
	}
	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &body)
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestWebhookEndpointRoutes(t *testing.T) {
	ts := newTestServer(t)
	token := registerVia(t, ts, "alice@example.com")

	resp := doJSON(t, http.MethodPost, ts.URL+"/webhooks", token, map[string]any{
		"url":    "https://hooks.example.com/catalog",
		"events": []string{"review.created"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create endpoint: status %d", resp.StatusCode)
	}
	var created struct {
		ID     string `json:"id"`
		Secret string `json:"secret"`
	}
	decodeBody(t, resp, &created)
	if created.Secret == "" {
		t.Error("creation response should include the secret")
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/webhooks/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get endpoint: status %d", resp.StatusCode)
	}
	var fetched map[string]any
	decodeBody(t, resp, &fetched)
	if _, leaked := fetched["secret"]; leaked {
		t.Error("get response leaks the secret")
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/webhooks/"+created.ID+"/deliveries", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deliveries: status %d", resp.StatusCode)
	}
	var deliveries struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &deliveries)
	if deliveries.Count != 0 {
		t.Errorf("deliveries count = %d, want 0", deliveries.Count)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/webhooks", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous list: status %d, want 401", resp.StatusCode)
	}
}

func TestLoginRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "shelfmark:ratelimit:test", 1, time.Minute)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	tokens, err := usertoken.NewManager(usertoken.Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	svc := catalog.NewService(store.NewMemoryStore(), nil, nil)
	srv := New(Config{Service: svc, Tokens: tokens, Limiter: limiter})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := []byte(`{"email":"u@example.com","password":"whatever"}`)
	resp, err := http.Post(ts.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		t.Fatal("first request already rate limited")
	}

	resp, err = http.Post(ts.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want 429", resp.StatusCode)
	}
}

func TestPaginationParamsFlowThrough(t *testing.T) {
	ts := newTestServer(t)
	token := registerVia(t, ts, "alice@example.com")
	authorID, _ := seedCatalog(t, ts, token)
	for i := 0; i < 2; i++ {
		resp := doJSON(t, http.MethodPost, ts.URL+"/books", token, map[string]any{
			"title":    fmt.Sprintf("Extra %d", i),
			"isbn":     fmt.Sprintf("extra-%d", i),
			"price":    10.0,
			"authorId": authorID,
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create extra book %d: status %d", i, resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/books?page=2&page_size=2")
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	var page struct {
		Items       []json.RawMessage `json:"items"`
		TotalCount  int64             `json:"totalCount"`
		HasNext     bool              `json:"hasNext"`
		HasPrevious bool              `json:"hasPrevious"`
	}
	decodeBody(t, resp, &page)
	if page.TotalCount != 3 || len(page.Items) != 1 || page.HasNext || !page.HasPrevious {
		t.Errorf("page 2: total=%d items=%d hasNext=%v hasPrevious=%v", page.TotalCount, len(page.Items), page.HasNext, page.HasPrevious)
	}
}
