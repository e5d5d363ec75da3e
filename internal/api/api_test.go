package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/starford/quire/internal/post"
	"github.com/starford/quire/internal/postservice"
	"github.com/starford/quire/internal/testutil"
)

type testEnv struct {
	content *testutil.Content
	svc     *postservice.Service
	router  http.Handler
	events  *fakeEvents
}

type fakeEvents struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeEvents) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("stream"))
}

func (f *fakeEvents) PublishPostEvent(kind, id, locale string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, kind+":"+id+":"+locale)
}

func (f *fakeEvents) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestEnv seeds three posts (one with an English variant and a
// thumbnail) and builds the router. A non-empty token enables auth.
func newTestEnv(t *testing.T, token string, withIndex bool) *testEnv {
	t.Helper()
	c := testutil.TestContent(t)
	c.WritePost(t, "alpha", testutil.Markdown("알파", "첫 글", "2024-01-01", "# Alpha\n\n알파 본문 keyword", "go"))
	c.WriteVariant(t, "alpha", "en", testutil.Markdown("Alpha", "first", "2024-01-01", "# Alpha\n\nenglish body keyword", "go"))
	c.WritePost(t, "bravo", testutil.Markdown("브라보", "둘째 글", "2024-02-01", "bravo body", "go", "web"))
	c.WritePost(t, "charlie", testutil.Markdown("찰리", "셋째 글", "2024-03-01", "charlie body"))
	c.WriteImage(t, "alpha", "thumbnail.png")

	load := func() (*post.Repository, error) {
		return post.Load(c.Posts, c.Images,
			post.WithLocales("ko", "en"),
			post.WithLogger(quietLogger()))
	}
	opts := []postservice.Option{postservice.WithLogger(quietLogger())}
	if withIndex {
		opts = append(opts, postservice.WithIndex(testutil.TestDB(t)))
	}
	svc, err := postservice.New(load, opts...)
	if err != nil {
		t.Fatalf("postservice.New: %v", err)
	}

	events := &fakeEvents{}
	router := NewRouter(svc, RouterConfig{
		AuthEnabled:  token != "",
		Token:        token,
		Events:       events,
		Images:       c.Images,
		ImagesPrefix: post.DefaultImagesURLPrefix,
	})
	return &testEnv{content: c, svc: svc, router: router, events: events}
}

func (e *testEnv) do(t *testing.T, method, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestListPosts(t *testing.T) {
	env := newTestEnv(t, "", false)

	w := env.do(t, http.MethodGet, "/posts?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[PostListResponse](t, w)
	if len(resp.Posts) != 2 || resp.Posts[0].ID != "charlie" || resp.Posts[1].ID != "bravo" {
		t.Fatalf("posts = %+v", resp.Posts)
	}
	if !resp.HasNext || resp.NextOffset != 2 {
		t.Errorf("hasNext=%v nextOffset=%d", resp.HasNext, resp.NextOffset)
	}
	if resp.Posts[0].URL != "/charlie" {
		t.Errorf("url = %q", resp.Posts[0].URL)
	}

	resp = decode[PostListResponse](t, env.do(t, http.MethodGet, "/posts?limit=2&offset=2"))
	if len(resp.Posts) != 1 || resp.Posts[0].ID != "alpha" || resp.HasNext {
		t.Errorf("page 2 = %+v", resp)
	}
	if resp.Posts[0].ThumbnailURL == nil || *resp.Posts[0].ThumbnailURL != "/images/posts/alpha/thumbnail.png" {
		t.Errorf("thumbnail = %v", resp.Posts[0].ThumbnailURL)
	}
}

func TestListPosts_EmptyPageIsArray(t *testing.T) {
	env := newTestEnv(t, "", false)
	w := env.do(t, http.MethodGet, "/posts?offset=50")
	if !strings.Contains(w.Body.String(), `"posts":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestListPosts_InvalidParamsUseDefaults(t *testing.T) {
	env := newTestEnv(t, "", false)
	resp := decode[PostListResponse](t, env.do(t, http.MethodGet, "/posts?limit=abc&offset=-4"))
	if len(resp.Posts) != 3 || resp.HasNext {
		t.Errorf("resp = %+v", resp)
	}
}

func TestListPosts_Tag(t *testing.T) {
	env := newTestEnv(t, "", false)
	resp := decode[PostListResponse](t, env.do(t, http.MethodGet, "/posts?tag=web"))
	if len(resp.Posts) != 1 || resp.Posts[0].ID != "bravo" {
		t.Errorf("posts = %+v", resp.Posts)
	}
}

func TestListPosts_Locale(t *testing.T) {
	env := newTestEnv(t, "", false)
	resp := decode[PostListResponse](t, env.do(t, http.MethodGet, "/posts?locale=en"))
	if len(resp.Posts) != 3 {
		t.Fatalf("posts = %+v", resp.Posts)
	}
	for _, p := range resp.Posts {
		switch p.ID {
		case "alpha":
			if p.Title != "Alpha" || p.Locale != "en" || p.URL != "/en/alpha" {
				t.Errorf("alpha = %+v", p)
			}
		default:
			// No variant: served in the default locale at the default path.
			if p.Locale != "ko" || p.URL != "/"+p.ID {
				t.Errorf("%s = %+v", p.ID, p)
			}
		}
	}

	// Unknown locales fall back to the default.
	resp = decode[PostListResponse](t, env.do(t, http.MethodGet, "/posts?locale=fr"))
	if resp.Posts[2].Title != "알파" {
		t.Errorf("fallback title = %q", resp.Posts[2].Title)
	}
}

func TestListPosts_AcceptLanguage(t *testing.T) {
	env := newTestEnv(t, "", false)

	resp := decode[PostListResponse](t, env.do(t, http.MethodGet, "/posts", "Accept-Language", "en-US,en;q=0.8"))
	if resp.Posts[2].Title != "Alpha" {
		t.Errorf("negotiated title = %q, want Alpha", resp.Posts[2].Title)
	}

	// An explicit query parameter wins over the header.
	resp = decode[PostListResponse](t, env.do(t, http.MethodGet, "/posts?locale=ko", "Accept-Language", "en"))
	if resp.Posts[2].Title != "알파" {
		t.Errorf("query title = %q, want 알파", resp.Posts[2].Title)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{-1: DefaultLimit, 0: DefaultLimit, 5: 5, MaxLimit: MaxLimit, 1000: MaxLimit}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestGetPost(t *testing.T) {
	env := newTestEnv(t, "", false)

	w := env.do(t, http.MethodGet, "/posts/alpha?locale=en")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	p := decode[PostDetailDTO](t, w)
	if p.Title != "Alpha" || p.URL != "/en/alpha" {
		t.Errorf("post = %+v", p)
	}
	if !strings.Contains(p.HTML, "<h1") || !strings.Contains(p.HTML, "english body keyword") {
		t.Errorf("html = %q", p.HTML)
	}
	if strings.Contains(w.Body.String(), "checksum") {
		t.Error("checksum must not be exposed")
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	w = env.do(t, http.MethodGet, "/posts/alpha?locale=en", "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional get = %d, want 304", w.Code)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	env := newTestEnv(t, "", false)
	w := env.do(t, http.MethodGet, "/posts/missing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if decode[errResponse](t, w).Error != "not found" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestListTags(t *testing.T) {
	env := newTestEnv(t, "", false)
	resp := decode[TagListResponse](t, env.do(t, http.MethodGet, "/tags"))
	if len(resp.Tags) != 2 || resp.Tags[0].Name != "go" || resp.Tags[0].NumberOfPosts != 2 {
		t.Errorf("tags = %+v", resp.Tags)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, "", true)

	w := env.do(t, http.MethodGet, "/search?q=keyword&locale=en")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[SearchResponse](t, w)
	if len(resp.Results) != 1 || resp.Results[0].ID != "alpha" || resp.Results[0].URL != "/en/alpha" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	env := newTestEnv(t, "", true)
	if w := env.do(t, http.MethodGet, "/search"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchWithoutIndex(t *testing.T) {
	env := newTestEnv(t, "", false)
	if w := env.do(t, http.MethodGet, "/search?q=x"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestReload_PublishesChanges(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.content.WritePost(t, "delta", testutil.Markdown("델타", "넷째 글", "2024-04-01", "delta body"))

	w := env.do(t, http.MethodPost, "/admin/reload")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[ReloadResponse](t, w)
	// delta is new in the default locale and appears as a fallback in en,
	// which is not a variant of its own.
	if len(resp.Changes) != 1 || resp.Changes[0].ID != "delta" || resp.Changes[0].Kind != postservice.Created {
		t.Errorf("changes = %+v", resp.Changes)
	}
	if got := env.events.list(); len(got) != 1 || got[0] != "created:delta:ko" {
		t.Errorf("events = %v", got)
	}

	list := decode[PostListResponse](t, env.do(t, http.MethodGet, "/posts"))
	if len(list.Posts) != 4 || list.Posts[0].ID != "delta" {
		t.Errorf("posts after reload = %+v", list.Posts)
	}
}

func TestReload_NoChangesIsEmptyArray(t *testing.T) {
	env := newTestEnv(t, "", false)
	w := env.do(t, http.MethodPost, "/admin/reload")
	if !strings.Contains(w.Body.String(), `"changes":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestReload_FailureKeepsServing(t *testing.T) {
	env := newTestEnv(t, "", false)
	testutil.WriteFile(t, env.content.PostsDir+"/broken/index.md", "no front matter here")

	if w := env.do(t, http.MethodPost, "/admin/reload"); w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/posts/alpha"); w.Code != http.StatusOK {
		t.Errorf("get after failed reload = %d", w.Code)
	}
}

func TestRequireBearer_ValidToken(t *testing.T) {
	env := newTestEnv(t, "secret123", false)
	w := env.do(t, http.MethodPost, "/admin/reload", "Authorization", "Bearer secret123")
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestRequireBearer_MissingToken(t *testing.T) {
	env := newTestEnv(t, "secret123", false)
	w := env.do(t, http.MethodPost, "/admin/reload")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate")
	}
	if decode[errResponse](t, w).Error != "unauthorized" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRequireBearer_WrongToken(t *testing.T) {
	env := newTestEnv(t, "secret123", false)
	w := env.do(t, http.MethodPost, "/admin/reload", "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestRequireBearer_ReadsArePublic(t *testing.T) {
	env := newTestEnv(t, "secret123", false)
	for _, target := range []string{"/posts", "/posts/alpha", "/tags", "/events"} {
		if w := env.do(t, http.MethodGet, target); w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", target, w.Code)
		}
	}
}

func TestServeImage(t *testing.T) {
	env := newTestEnv(t, "", false)

	w := env.do(t, http.MethodGet, "/images/posts/alpha/thumbnail.png")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "fake-image-thumbnail.png" {
		t.Errorf("body = %q", w.Body.String())
	}
	if w.Header().Get("Cache-Control") == "" {
		t.Error("missing Cache-Control")
	}
}

func TestServeImage_NotFound(t *testing.T) {
	env := newTestEnv(t, "", false)
	for _, target := range []string{"/images/posts/alpha/nope.png", "/images/posts/ghost/thumbnail.png"} {
		if w := env.do(t, http.MethodGet, target); w.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, w.Code)
		}
	}
}

func TestServeImage_TraversalBlocked(t *testing.T) {
	env := newTestEnv(t, "", false)
	for _, target := range []string{
		"/images/posts/alpha/..%2F..%2Fposts%2Falpha%2Findex.md",
		"/images/posts/..%2Fposts/index.md",
	} {
		w := env.do(t, http.MethodGet, target)
		if w.Code == http.StatusOK {
			t.Errorf("GET %s = 200, traversal not blocked", target)
		}
	}
}

func TestPlainName(t *testing.T) {
	for _, ok := range []string{"a.png", "thumbnail.jpeg", "post-1"} {
		if !plainName(ok) {
			t.Errorf("plainName(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "../x"} {
		if plainName(bad) {
			t.Errorf("plainName(%q) = true", bad)
		}
	}
}

func TestRequireBearer_EmptyTokenRejects(t *testing.T) {
	h := RequireBearer("")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("empty token = %d, want 401", w.Code)
	}
}
