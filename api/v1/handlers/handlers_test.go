package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/calebwren/inkwell/backend/api/v1/database"
	"github.com/calebwren/inkwell/backend/api/v1/middleware"
	"github.com/calebwren/inkwell/backend/api/v1/models"
	"github.com/calebwren/inkwell/backend/api/v1/uploads"
)

// stubUserStore mimics the credential store, including the lowercase
// normalization and sentinel errors the real one produces.
type stubUserStore struct {
	mu    sync.Mutex
	users []*models.User
}

func (s *stubUserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.ToLower(strings.TrimSpace(user.Username))
	for _, u := range s.users {
		if u.Username == name {
			return database.ErrUsernameExists
		}
	}

	user.ID = uuid.New()
	user.Username = name
	user.CreatedAt = time.Now()

	cp := *user
	s.users = append(s.users, &cp)
	return nil
}

func (s *stubUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.ToLower(strings.TrimSpace(username))
	for _, u := range s.users {
		if u.Username == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrUserNotFound
}

func (s *stubUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			cp.PasswordHash = ""
			return &cp, nil
		}
	}
	return nil, database.ErrUserNotFound
}

type stubFileStore struct {
	mu    sync.Mutex
	saved []string
}

func (s *stubFileStore) Save(src io.Reader, originalName string) (string, error) {
	if _, err := io.Copy(io.Discard, src); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, originalName)
	return uploads.ResolvePath(uploads.WebPrefix+"stored", originalName), nil
}

// stubPostStore assigns strictly increasing creation times so ordering
// assertions are deterministic.
type stubPostStore struct {
	mu    sync.Mutex
	seq   int64
	posts []models.Post
}

func (s *stubPostStore) Create(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	post.ID = uuid.New()
	post.CreatedAt = time.Unix(s.seq, 0)
	s.posts = append(s.posts, *post)
	return nil
}

func (s *stubPostStore) List(ctx context.Context) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]models.Post, len(s.posts))
	copy(cp, s.posts)
	sort.Slice(cp, func(i, j int) bool { return cp[i].CreatedAt.After(cp[j].CreatedAt) })
	if len(cp) > 20 {
		cp = cp[:20]
	}
	return cp, nil
}

func (s *stubPostStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.posts {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, database.ErrPostNotFound
}

func (s *stubPostStore) Update(ctx context.Context, id, editorID uuid.UUID, upd models.PostUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.posts {
		if s.posts[i].ID != id {
			continue
		}
		if s.posts[i].Author.ID != editorID {
			return database.ErrNotAuthor
		}
		if upd.Title != nil {
			s.posts[i].Title = *upd.Title
		}
		if upd.Summary != nil {
			s.posts[i].Summary = *upd.Summary
		}
		if upd.Content != nil {
			s.posts[i].Content = *upd.Content
		}
		if upd.Cover != nil {
			s.posts[i].Cover = *upd.Cover
		}
		return nil
	}
	return database.ErrPostNotFound
}

// testServer wires the handlers into a router the same way main does.
type testServer struct {
	router  chi.Router
	users   *stubUserStore
	posts   *stubPostStore
	files   *stubFileStore
	session *middleware.SessionAuth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		users:   &stubUserStore{},
		posts:   &stubPostStore{},
		files:   &stubFileStore{},
		session: middleware.NewSessionAuth("test-secret", time.Hour),
	}

	authHandler := &AuthHandler{Users: ts.users, Files: ts.files, Auth: ts.session}
	postHandler := &PostHandler{Posts: ts.posts, Files: ts.files}
	authorHandler := &AuthorHandler{Users: ts.users}

	r := chi.NewRouter()
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)
	r.With(ts.session.OptionalAuth).Get("/profile", authHandler.Profile)
	r.With(ts.session.RequireAuth).Post("/newpost", postHandler.CreatePost)
	r.Get("/post", postHandler.ListPosts)
	r.Get("/post/{id}", postHandler.GetPost)
	r.With(ts.session.RequireAuth).Put("/post/{id}", postHandler.UpdatePost)
	r.Get("/author/{id}", authorHandler.GetAuthor)

	ts.router = r
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// multipartBody builds a multipart form with the given fields plus an
// optional file part.
func multipartBody(t *testing.T, fields map[string]string, fileName string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func (ts *testServer) register(t *testing.T, username, password string) {
	t.Helper()

	body, contentType := multipartBody(t, map[string]string{
		"username": username,
		"password": password,
		"content":  "a bio for " + username,
	}, "")
	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set("Content-Type", contentType)

	rec := ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code, "register %s: %s", username, rec.Body.String())
}

// login returns the session cookie issued for the user.
func (ts *testServer) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()

	body, err := json.Marshal(models.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code, "login %s: %s", username, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("login did not set a session cookie")
	return nil
}
