package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/moastrends/newsroom/auth"
	"github.com/moastrends/newsroom/media"
	"github.com/moastrends/newsroom/model"
	"github.com/moastrends/newsroom/server/middlewares"
	"github.com/moastrends/newsroom/store"
	"github.com/moastrends/newsroom/utils"
	"github.com/pkg/errors"

	Logger "github.com/moastrends/newsroom/utils/log"
)

// Handler wires the REST surface to the row store, the auth service and the
// media store. Register attaches every route to the router.
type Handler struct {
	store store.Store
	auth  *auth.Service
	media media.Store

	// serializes like/save toggles per (user, article) so concurrent
	// requests cannot both read "off" and both insert
	toggles utils.KeyedLocks
}

func NewHandler(st store.Store, svc *auth.Service, m media.Store) *Handler {
	return &Handler{store: st, auth: svc, media: m}
}

// Register attaches every route. The session middleware is attached by the
// caller so a debug run can skip it entirely.
func (h *Handler) Register(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/signup", h.SignUp)
		api.POST("/login", h.Login)
		api.POST("/admin-login", h.AdminLogin)
		api.POST("/logout", h.Logout)
		api.GET("/me", h.Me)

		api.GET("/news", h.ListNews)
		api.GET("/news/:id", h.GetNews)
		api.GET("/news/:id/comments", h.ListComments)

		api.POST("/subscribe", h.Subscribe)
	}

	authed := api.Group("", middlewares.RequireAuth())
	{
		authed.POST("/news/:id/like", h.ToggleLike)
		authed.POST("/news/:id/save", h.ToggleSave)
		authed.GET("/me/liked", h.LikedNews)
		authed.GET("/me/saved", h.SavedNews)

		authed.POST("/news/:id/comments", h.CreateComment)
		authed.PUT("/comments/:id", h.UpdateComment)
		authed.DELETE("/comments/:id", h.DeleteComment)
	}

	admin := api.Group("/admin", middlewares.RequireAdmin())
	{
		admin.POST("/news", h.CreateNews)
		admin.PUT("/news/:id", h.UpdateNewsArticle)
		admin.DELETE("/news/:id", h.DeleteNews)
	}

	router.GET("/ping", h.Ping)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"msg": "page not found"})
	})
}

func (h *Handler) Ping(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"msg": "store unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// respondError maps the store and auth sentinels onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"msg": "not found"})
	case errors.Is(err, store.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"msg": "permission denied"})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrNotAdmin):
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid credentials"})
	case errors.Is(err, auth.ErrInvalidSignUp):
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
	default:
		Logger.Log.Errorf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
	}
}

// ---- accounts ----

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

func (h *Handler) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	user, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.Id, "email": user.Email})
}

func (h *Handler) Login(c *gin.Context) {
	h.login(c, h.auth.SignIn)
}

func (h *Handler) AdminLogin(c *gin.Context) {
	h.login(c, h.auth.SignInAdmin)
}

func (h *Handler) login(c *gin.Context, signIn func(ctx context.Context, email, password string) (string, error)) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	token, err := signIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(middlewares.SessionCookie, token, int(auth.DefaultSessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) Logout(c *gin.Context) {
	token, _ := c.Cookie(middlewares.SessionCookie)
	if token == "" {
		const bearerPrefix = "Bearer "
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
			token = header[len(bearerPrefix):]
		}
	}
	if err := h.auth.SignOut(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(middlewares.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"msg": "signed out"})
}

func (h *Handler) Me(c *gin.Context) {
	ident := middlewares.IdentityFrom(c)
	if ident == nil {
		c.JSON(http.StatusOK, gin.H{"identity": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": gin.H{
		"id":        ident.Id,
		"full_name": ident.FullName,
		"role":      ident.Role,
	}})
}

// ---- news ----

func (h *Handler) ListNews(c *gin.Context) {
	selector := model.Category(c.Query("category"))
	if slug := c.Query("slug"); slug != "" {
		selector = model.CategoryFromSlug(slug)
	}

	q := store.ArticleQuery{
		Categories: model.ExpandCategory(selector),
		Search:     strings.TrimSpace(c.Query("q")),
	}
	articles, err := h.store.ListArticles(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"news": articles})
}

func (h *Handler) GetNews(c *gin.Context) {
	article, err := h.store.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": article})
}

func (h *Handler) LikedNews(c *gin.Context) {
	h.relatedNews(c, h.store.ListLikedArticleIds)
}

func (h *Handler) SavedNews(c *gin.Context) {
	h.relatedNews(c, h.store.ListSavedArticleIds)
}

func (h *Handler) relatedNews(c *gin.Context, listIds func(ctx context.Context, userId string) ([]string, error)) {
	ident := middlewares.IdentityFrom(c)
	ids, err := listIds(c.Request.Context(), ident.Id)
	if err != nil {
		respondError(c, err)
		return
	}
	articles, err := h.store.ListArticlesByIds(c.Request.Context(), ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"news": articles})
}

func (h *Handler) ToggleLike(c *gin.Context) {
	h.toggleRelation(c, "liked", h.store.HasLike, h.store.AddLike, h.store.RemoveLike)
}

func (h *Handler) ToggleSave(c *gin.Context) {
	h.toggleRelation(c, "saved", h.store.HasSave, h.store.AddSave, h.store.RemoveSave)
}

type relationFunc func(ctx context.Context, userId, articleId string) error

func (h *Handler) toggleRelation(
	c *gin.Context,
	field string,
	has func(ctx context.Context, userId, articleId string) (bool, error),
	add relationFunc,
	remove relationFunc,
) {
	ident := middlewares.IdentityFrom(c)
	articleId := c.Param("id")
	ctx := c.Request.Context()

	unlock := h.toggles.Acquire(ident.Id + "__" + articleId)
	defer unlock()

	on, err := has(ctx, ident.Id, articleId)
	if err != nil {
		respondError(c, err)
		return
	}
	if on {
		err = remove(ctx, ident.Id, articleId)
	} else {
		err = add(ctx, ident.Id, articleId)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{field: !on})
}

// ---- comments ----

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) ListComments(c *gin.Context) {
	comments, err := h.store.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *Handler) CreateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "comment is empty"})
		return
	}

	ident := middlewares.IdentityFrom(c)
	comment := model.Comment{
		Id:        uuid.New().String(),
		ArticleID: c.Param("id"),
		UserID:    ident.Id,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateComment(c.Request.Context(), &comment); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (h *Handler) UpdateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "comment is empty"})
		return
	}

	ident := middlewares.IdentityFrom(c)
	if err := h.store.UpdateComment(c.Request.Context(), c.Param("id"), ident, content); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "updated"})
}

func (h *Handler) DeleteComment(c *gin.Context) {
	ident := middlewares.IdentityFrom(c)
	if err := h.store.DeleteComment(c.Request.Context(), c.Param("id"), ident); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
}

// ---- subscriptions ----

type subscribeRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid email"})
		return
	}
	if err := h.store.CreateSubscription(c.Request.Context(), email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"msg": "subscribed"})
}
