package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moastrends/newsroom/auth"
	"github.com/moastrends/newsroom/media"
	"github.com/moastrends/newsroom/model"
	"github.com/moastrends/newsroom/server/middlewares"
	"github.com/moastrends/newsroom/store"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *store.FakeStore
	auth   *auth.Service
	media  *media.FakeStore
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewFakeStore()
	svc := auth.NewService(st, auth.NewMemoryTokenStore())
	m := media.NewFakeStore()

	router := gin.New()
	router.Use(middlewares.Session(svc, st))
	NewHandler(st, svc, m).Register(router)

	return &fixture{store: st, auth: svc, media: m, router: router}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) signUpAndIn(t *testing.T, email string, admin bool) string {
	t.Helper()
	ctx := context.Background()
	user, err := f.auth.SignUp(ctx, email, "hunter22", "Test User")
	require.NoError(t, err)
	if admin {
		u := f.store.Users[user.Id]
		u.Role = model.RoleAdmin
		f.store.Users[user.Id] = u
	}

	var token string
	if admin {
		token, err = f.auth.SignInAdmin(ctx, email, "hunter22")
	} else {
		token, err = f.auth.SignIn(ctx, email, "hunter22")
	}
	require.NoError(t, err)
	return token
}

func jsonReq(method, target string, payload interface{}) *http.Request {
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withToken(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestListNewsFiltersByCategory(t *testing.T) {
	f := newFixture(t)
	base := time.Now()
	f.store.Articles["1"] = model.Article{Id: "1", Title: "match day", Category: model.CategorySport, CreatedAt: base.Add(-time.Hour)}
	f.store.Articles["2"] = model.Article{Id: "2", Title: "stand up", Category: model.CategoryComedy, CreatedAt: base}

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/news?category=Trending", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		News []model.Article `json:"news"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.News, 1)
	require.Equal(t, "2", body.News[0].Id)
}

func TestGetNewsNotFound(t *testing.T) {
	f := newFixture(t)
	w := f.do(httptest.NewRequest(http.MethodGet, "/api/news/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnonymousLikeRedirectsToLogin(t *testing.T) {
	f := newFixture(t)
	w := f.do(httptest.NewRequest(http.MethodPost, "/api/news/1/like", nil))
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
}

func TestToggleLikeFlipsRelation(t *testing.T) {
	f := newFixture(t)
	token := f.signUpAndIn(t, "reader@example.com", false)

	w := f.do(withToken(httptest.NewRequest(http.MethodPost, "/api/news/1/like", nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"liked":true`)

	w = f.do(withToken(httptest.NewRequest(http.MethodPost, "/api/news/1/like", nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"liked":false`)
}

// Concurrent toggle requests for the same (user, article) are serialized:
// an even number of them must land the relation back off, never double-insert.
func TestConcurrentToggleRequestsSerialize(t *testing.T) {
	f := newFixture(t)
	token := f.signUpAndIn(t, "reader@example.com", false)
	f.store.DelayOp("HasLike", 10*time.Millisecond)

	const requests = 4
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := f.do(withToken(httptest.NewRequest(http.MethodPost, "/api/news/a1/like", nil), token))
			require.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()

	ident, err := f.store.GetUserByEmail(context.Background(), "reader@example.com")
	require.NoError(t, err)
	remote, err := f.store.HasLike(context.Background(), ident.Id, "a1")
	require.NoError(t, err)
	require.False(t, remote, "even number of toggles must land off")
}

func TestCommentLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	author := f.signUpAndIn(t, "author@example.com", false)
	stranger := f.signUpAndIn(t, "stranger@example.com", false)

	w := f.do(withToken(jsonReq(http.MethodPost, "/api/news/a1/comments", gin.H{"content": " great read "}), author))
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Comment model.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "great read", created.Comment.Content)

	// a stranger cannot edit it
	w = f.do(withToken(jsonReq(http.MethodPut, "/api/comments/"+created.Comment.Id, gin.H{"content": "hijack"}), stranger))
	require.Equal(t, http.StatusForbidden, w.Code)

	// the author can
	w = f.do(withToken(jsonReq(http.MethodPut, "/api/comments/"+created.Comment.Id, gin.H{"content": "revised"}), author))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "revised", f.store.Comments[created.Comment.Id].Content)

	// and delete it
	w = f.do(withToken(httptest.NewRequest(http.MethodDelete, "/api/comments/"+created.Comment.Id, nil), author))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, f.store.Comments)
}

func TestBlankCommentRejected(t *testing.T) {
	f := newFixture(t)
	token := f.signUpAndIn(t, "reader@example.com", false)
	w := f.do(withToken(jsonReq(http.MethodPost, "/api/news/a1/comments", gin.H{"content": "   "}), token))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, f.store.CallCount("CreateComment"))
}

func TestAdminRoutesRejectRegularAccounts(t *testing.T) {
	f := newFixture(t)
	token := f.signUpAndIn(t, "reader@example.com", false)

	w := f.do(withToken(httptest.NewRequest(http.MethodDelete, "/api/admin/news/1", nil), token))
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/admin-login", w.Header().Get("Location"))
}

func TestAdminLoginRequiresAdminRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.SignUp(context.Background(), "reader@example.com", "hunter22", "Reader")
	require.NoError(t, err)

	w := f.do(jsonReq(http.MethodPost, "/api/admin-login", gin.H{"email": "reader@example.com", "password": "hunter22"}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateNewsUploadsMedia(t *testing.T) {
	f := newFixture(t)
	token := f.signUpAndIn(t, "editor@example.com", true)

	form := &bytes.Buffer{}
	writer := multipart.NewWriter(form)
	require.NoError(t, writer.WriteField("title", "Big Story"))
	require.NoError(t, writer.WriteField("body", "the details"))
	require.NoError(t, writer.WriteField("category", "Sport"))
	require.NoError(t, writer.WriteField("subheadings", `[{"title":"First","content":"intro"}]`))
	part, err := writer.CreateFormFile("main_image", "cover.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/news", form)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := f.do(withToken(req, token))
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, f.store.Articles, 1)
	for _, a := range f.store.Articles {
		require.Equal(t, "Big Story", a.Title)
		require.Equal(t, model.CategorySport, a.Category)
		require.Equal(t, "Test User", a.AuthorName)
		require.True(t, strings.HasPrefix(a.MainImageUrl, "https://media.fake/image/"))
		blocks, err := a.SubheadingBlocks()
		require.NoError(t, err)
		require.Len(t, blocks, 1)
	}
	require.Contains(t, f.media.Uploads, "image/cover.png")
}

func TestCreateNewsRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)
	token := f.signUpAndIn(t, "editor@example.com", true)

	form := &bytes.Buffer{}
	writer := multipart.NewWriter(form)
	require.NoError(t, writer.WriteField("title", "Big Story"))
	require.NoError(t, writer.WriteField("category", "Gossip"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/news", form)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := f.do(withToken(req, token))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, f.store.Articles)
}

func TestSubscribeValidatesEmail(t *testing.T) {
	f := newFixture(t)

	w := f.do(jsonReq(http.MethodPost, "/api/subscribe", gin.H{"email": "not-an-email"}))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(jsonReq(http.MethodPost, "/api/subscribe", gin.H{"email": " Reader@Example.com "}))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, []string{"reader@example.com"}, f.store.Subscriptions)
}

func TestSessionFailsOpenOnStoreError(t *testing.T) {
	f := newFixture(t)
	token := f.signUpAndIn(t, "reader@example.com", false)

	f.store.FailWith("GetUser", context.DeadlineExceeded)
	w := f.do(withToken(httptest.NewRequest(http.MethodGet, "/api/me", nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"identity":null`)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newFixture(t)
	token := f.signUpAndIn(t, "reader@example.com", false)

	w := f.do(withToken(httptest.NewRequest(http.MethodPost, "/api/logout", nil), token))
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(withToken(httptest.NewRequest(http.MethodPost, "/api/news/1/like", nil), token))
	require.Equal(t, http.StatusFound, w.Code)
}
