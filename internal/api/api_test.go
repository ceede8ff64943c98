package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/testutil"
)

func postSource(title, created string, extra ...string) string {
	s := "---\ntitle: " + title + "\ncreatedAt: \"" + created + "\"\n"
	for _, e := range extra {
		s += e + "\n"
	}
	return s + "---\n\n# " + title + "\n\nBody of " + title + ".\n"
}

type env struct {
	root   string
	svc    *content.Service
	db     *index.DB
	router http.Handler
}

// testEnv sets up a temp content dir, index, service and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) *env {
	t.Helper()
	return testEnvWithSSE(t, authToken, nil)
}

func testEnvWithSSE(t *testing.T, authToken string, sseHandler http.Handler) *env {
	t.Helper()

	svc, store := testutil.TestContent(t)
	db := testutil.TestDB(t)
	h := NewHandler(svc, svc.Compiler(), db)
	router := NewRouter(h, authToken != "", authToken, sseHandler, store.Root())
	return &env{root: store.Root(), svc: svc, db: db, router: router}
}

func (e *env) write(t *testing.T, rel, body string) {
	t.Helper()
	testutil.WriteFile(t, e.root, rel, body)
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestListPosts(t *testing.T) {
	e := testEnv(t, "")
	e.write(t, "older.md", postSource("Older", "2021-01-01"))
	e.write(t, "newer/index.md", postSource("Newer", "2023-01-01"))
	e.write(t, "wip.md", postSource("WIP", "2024-01-01", "draft: true"))

	w := e.do(httptest.NewRequest(http.MethodGet, "/posts", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Posts []map[string]any `json:"posts"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Posts) != 2 {
		t.Fatalf("total = %d, posts = %d, want 2", resp.Total, len(resp.Posts))
	}
	if resp.Posts[0]["slug"] != "newer" || resp.Posts[1]["slug"] != "older" {
		t.Errorf("order = %v, %v", resp.Posts[0]["slug"], resp.Posts[1]["slug"])
	}
	if _, ok := resp.Posts[0]["contentHtml"]; ok {
		t.Error("listing should not carry content")
	}

	w = e.do(httptest.NewRequest(http.MethodGet, "/posts?drafts=true", nil))
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 3 || resp.Posts[0]["slug"] != "wip" {
		t.Errorf("with drafts: total = %d, first = %v", resp.Total, resp.Posts[0]["slug"])
	}
}

func TestListPosts_Empty(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(httptest.NewRequest(http.MethodGet, "/posts", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"posts":[]`) {
		t.Errorf("body = %s, want empty array", w.Body.String())
	}
}

func TestListPosts_InvalidFrontmatter(t *testing.T) {
	e := testEnv(t, "")
	e.write(t, "ok.md", postSource("Ok", "2021-01-01"))
	e.write(t, "bad.md", "---\ncreatedAt: \"2021-01-01\"\n---\n")

	w := e.do(httptest.NewRequest(http.MethodGet, "/posts", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestGetPost(t *testing.T) {
	e := testEnv(t, "")
	e.write(t, "hello.md", postSource("Hello", "2022-05-01"))

	w := e.do(httptest.NewRequest(http.MethodGet, "/posts/hello", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var post map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &post); err != nil {
		t.Fatal(err)
	}
	if post["title"] != "Hello" {
		t.Errorf("title = %v", post["title"])
	}
	if html, _ := post["contentHtml"].(string); !strings.Contains(html, `<h1 id="md-hello">Hello</h1>`) {
		t.Errorf("contentHtml = %q", html)
	}

	etag := w.Header().Get("ETag")
	if etag == "" || etag != `"`+post["checksum"].(string)+`"` {
		t.Fatalf("ETag = %q, checksum = %v", etag, post["checksum"])
	}

	req := httptest.NewRequest(http.MethodGet, "/posts/hello", nil)
	req.Header.Set("If-None-Match", etag)
	if w := e.do(req); w.Code != http.StatusNotModified {
		t.Errorf("conditional get = %d, want 304", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/posts/hello", nil)
	req.Header.Set("If-None-Match", `"stale"`)
	if w := e.do(req); w.Code != http.StatusOK {
		t.Errorf("stale etag = %d, want 200", w.Code)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(httptest.NewRequest(http.MethodGet, "/posts/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing post = %d, want 404", w.Code)
	}
}

func TestCompile(t *testing.T) {
	e := testEnv(t, "")

	body, _ := json.Marshal(CompileRequest{Content: postSource("Adhoc", "2022-01-01")})
	w := e.do(httptest.NewRequest(http.MethodPost, "/compile", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res pipeline.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.HTML, "<p>Body of Adhoc.</p>") {
		t.Errorf("html = %q", res.HTML)
	}
	if res.Frontmatter["title"] != "Adhoc" {
		t.Errorf("frontmatter = %v", res.Frontmatter)
	}
	if res.ReadingTime == nil || res.ReadingTime.Words == 0 {
		t.Errorf("readingTime = %+v", res.ReadingTime)
	}
	if !strings.Contains(w.Body.String(), "<p>Body of Adhoc.</p>") {
		t.Error("markup should not be escaped in the response")
	}
}

func TestCompile_InvalidFrontmatter(t *testing.T) {
	e := testEnv(t, "")

	body, _ := json.Marshal(CompileRequest{Key: "missing-title", Content: "---\ncreatedAt: \"2021-01-01\"\n---\nhi\n"})
	w := e.do(httptest.NewRequest(http.MethodPost, "/compile", bytes.NewReader(body)))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp FrontmatterErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	want := `Invalid frontmatter in missing-title. Received: {"createdAt":"2021-01-01"}`
	if resp.Error != want {
		t.Errorf("error = %q, want %q", resp.Error, want)
	}
	if resp.Slug != "missing-title" || resp.Received["createdAt"] != "2021-01-01" {
		t.Errorf("resp = %+v", resp)
	}
	if _, ok := resp.Fields["title"]; !ok {
		t.Errorf("fields = %v, want title", resp.Fields)
	}
}

func TestCompile_BadBody(t *testing.T) {
	e := testEnv(t, "")
	cases := []string{`{not json`, `{"content":"   "}`, `{}`}
	for _, body := range cases {
		w := e.do(httptest.NewRequest(http.MethodPost, "/compile", strings.NewReader(body)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestSearchEndpoint(t *testing.T) {
	e := testEnv(t, "")
	e.write(t, "needle.md", postSource("Needle", "2022-01-01"))
	e.write(t, "hay.md", postSource("Hay", "2022-01-02"))
	if err := index.Sync(context.Background(), e.db, e.svc, quiet(), nil); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	w := e.do(httptest.NewRequest(http.MethodGet, "/search?q=Needle&limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Slug != "needle" {
		t.Errorf("results = %+v", resp.Results)
	}

	w = e.do(httptest.NewRequest(http.MethodGet, "/search?q=zzzz", nil))
	if !strings.Contains(w.Body.String(), `"results":[]`) {
		t.Errorf("no-hit body = %s", w.Body.String())
	}
}

func TestSearchMissingQuery(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(httptest.NewRequest(http.MethodGet, "/search", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestSearchDisabled(t *testing.T) {
	compiler := pipeline.New()
	store, _ := storage.NewFS(t.TempDir())
	h := NewHandler(content.NewService(store, compiler), compiler, nil)
	router := NewRouter(h, false, "", nil, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?q=x", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestAssets(t *testing.T) {
	e := testEnv(t, "")
	e.write(t, "trip/index.md", postSource("Trip", "2022-01-01"))
	e.write(t, "trip/img/map.svg", "<svg/>")
	e.write(t, "trip/.secret", "x")
	e.write(t, "other/index.md", postSource("Other", "2022-01-01"))
	e.write(t, "other/photo.png", "png")

	w := e.do(httptest.NewRequest(http.MethodGet, "/posts/trip/assets/img/map.svg", nil))
	if w.Code != http.StatusOK || w.Body.String() != "<svg/>" {
		t.Errorf("asset = %d %q", w.Code, w.Body.String())
	}

	cases := map[string]int{
		"/posts/trip/assets/index.md":           http.StatusBadRequest,
		"/posts/trip/assets/.secret":            http.StatusBadRequest,
		"/posts/trip/assets/../other/photo.png": http.StatusBadRequest,
		"/posts/trip/assets/missing.png":        http.StatusNotFound,
		"/posts/trip/assets/img":                http.StatusNotFound,
	}
	for path, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = path
		if w := e.do(req); w.Code != want {
			t.Errorf("%s = %d, want %d", path, w.Code, want)
		}
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	if w := e.do(req); w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	e := testEnv(t, "secret123")
	if w := e.do(httptest.NewRequest(http.MethodGet, "/posts", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	e := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	if w := e.do(req); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.Header.Set("Authorization", "secret123")
	if w := e.do(req); w.Code != http.StatusUnauthorized {
		t.Errorf("missing scheme = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	e := testEnv(t, "")
	if w := e.do(httptest.NewRequest(http.MethodGet, "/posts", nil)); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// sseStub writes headers and blocks until the request is done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	e := testEnvWithSSE(t, "secret", sseStub)
	if w := e.do(httptest.NewRequest(http.MethodGet, "/events", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	e := testEnvWithSSE(t, "", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	if w := e.do(req); w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	e := testEnvWithSSE(t, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	if w := e.do(req); w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestEtagMatches(t *testing.T) {
	cases := []struct {
		header string
		want   bool
	}{
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"x", "abc"`, true},
		{`*`, true},
		{`"abcd"`, false},
	}
	for _, tc := range cases {
		if got := etagMatches(tc.header, `"abc"`); got != tc.want {
			t.Errorf("etagMatches(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestSSEEvents_QueryToken(t *testing.T) {
	e := testEnvWithSSE(t, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	req.Header.Set("Accept", "text/event-stream")
	if w := e.do(req); w.Code == http.StatusUnauthorized {
		t.Error("event stream with query token should not 401")
	}

	// Only event streams may use the query parameter.
	w := e.do(httptest.NewRequest(http.MethodGet, "/posts?access_token=tok", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token on /posts = %d, want 401", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("401 should carry WWW-Authenticate")
	}
}
