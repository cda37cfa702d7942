package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/issueblog/internal/content"
	"github.com/starford/issueblog/internal/posts"
	"github.com/starford/issueblog/internal/postservice"
	"github.com/starford/issueblog/internal/publish"
	"github.com/starford/issueblog/internal/scaffold"
	"github.com/starford/issueblog/internal/testutil"
)

// testEnv sets up a temp posts tree, a fake tracker, the service and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (http.Handler, string, *testutil.FakeTracker) {
	t.Helper()
	root, store := testutil.TestTree(t)
	logger := testutil.Logger()
	ft := testutil.NewFakeTracker()
	tr := content.NewTransformer("", "octo/blog", "main", "posts")
	pub := publish.New(ft, posts.NewLoader(store, "", logger), tr, publish.TOCOptions{}, logger)
	svc := postservice.NewService(store, pub, scaffold.New(store, "", "", logger), tr, "")
	return NewRouter(svc, authToken != "", authToken, nil), root, ft
}

func do(t *testing.T, router http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSyncEndpoint(t *testing.T) {
	router, root, ft := testEnv(t, "")
	testutil.WritePost(t, root, testutil.PostSpec{Slug: "a", ID: "abc123", Title: "A", Date: "2024-01-01", Body: "a"})

	w := do(t, router, http.MethodPost, "/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sync status = %d, body = %s", w.Code, w.Body.String())
	}
	var report publish.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Posts != 1 || len(report.Created) != 1 || !report.TOCUpdated {
		t.Errorf("report = %+v", report)
	}
	if ft.Issue(1) == nil {
		t.Error("table of contents not created")
	}
}

func TestSyncEndpoint_TrackerFailure(t *testing.T) {
	router, root, ft := testEnv(t, "")
	ft.FailOn = "list_labels"
	testutil.WritePost(t, root, testutil.PostSpec{Slug: "a", ID: "abc123", Title: "A", Date: "2024-01-01"})

	w := do(t, router, http.MethodPost, "/sync", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestListAndGetPosts(t *testing.T) {
	router, root, _ := testEnv(t, "")
	testutil.WritePost(t, root, testutil.PostSpec{Slug: "a", ID: "abc123", Title: "A", Date: "2024-01-01"})
	testutil.WritePost(t, root, testutil.PostSpec{Slug: "b", Title: "B", Date: "2024-01-01"})

	w := do(t, router, http.MethodGet, "/posts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list postservice.PostList
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Posts) != 1 || len(list.Skipped) != 1 || list.Skipped[0].Slug != "b" {
		t.Errorf("list = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/posts/abc123", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}

	w = do(t, router, http.MethodGet, "/posts/zzz999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing post = %d, want 404", w.Code)
	}
}

func TestCreatePost(t *testing.T) {
	router, root, _ := testEnv(t, "")

	body, _ := json.Marshal(map[string]string{"title": "New one", "label": "go"})
	w := do(t, router, http.MethodPost, "/posts", bytes.NewReader(body))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created scaffold.Created
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(created.IndexPath))); err != nil {
		t.Errorf("index not written: %v", err)
	}

	w = do(t, router, http.MethodPost, "/posts", bytes.NewReader(body))
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodPost, "/posts", bytes.NewReader([]byte(`{"title":""}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty title = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPost, "/posts", bytes.NewReader([]byte(`not json`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", w.Code)
	}
}

func uploadFile(t *testing.T, router http.Handler, slug, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/posts/"+slug+"/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAsset(t *testing.T) {
	router, root, _ := testEnv(t, "")
	testutil.WritePost(t, root, testutil.PostSpec{Slug: "a", ID: "abc123", Title: "A", Date: "2024-01-01"})

	w := uploadFile(t, router, "a", "pic.png", []byte("png-data"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var asset postservice.Asset
	_ = json.Unmarshal(w.Body.Bytes(), &asset)
	if asset.Path != "assets/pic.png" {
		t.Errorf("asset = %+v", asset)
	}
	data, err := os.ReadFile(filepath.Join(root, "a", "assets", "pic.png"))
	if err != nil || string(data) != "png-data" {
		t.Errorf("stored = %q, %v", data, err)
	}

	if w := uploadFile(t, router, "a", "pic.png", []byte("again")); w.Code != http.StatusConflict {
		t.Errorf("duplicate upload = %d, want 409", w.Code)
	}
	if w := uploadFile(t, router, "missing", "pic.png", []byte("x")); w.Code != http.StatusNotFound {
		t.Errorf("upload to missing post = %d, want 404", w.Code)
	}
}

func TestUploadAsset_MissingFileField(t *testing.T) {
	router, root, _ := testEnv(t, "")
	testutil.WritePost(t, root, testutil.PostSpec{Slug: "a", ID: "abc123", Title: "A", Date: "2024-01-01"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/posts/a/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	router, _, _ := testEnv(t, "secret")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"valid token", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router, _, _ := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/posts", nil); w.Code != http.StatusOK {
		t.Errorf("disabled auth = %d, want 200", w.Code)
	}
}

func TestEventsRoute(t *testing.T) {
	_, store := testutil.TestTree(t)
	logger := testutil.Logger()
	tr := content.NewTransformer("", "octo/blog", "main", "posts")
	pub := publish.New(testutil.NewFakeTracker(), posts.NewLoader(store, "", logger), tr, publish.TOCOptions{}, logger)
	svc := postservice.NewService(store, pub, scaffold.New(store, "", "", logger), tr, "")
	events := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router := NewRouter(svc, true, "secret", events)
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d", w.Code)
	}

	if w := do(t, NewRouter(svc, false, "", nil), http.MethodGet, "/events", nil); w.Code != http.StatusNotFound {
		t.Errorf("events without a broker = %d, want 404", w.Code)
	}
}
