// Package store is the named-collection row store the controllers are built
// against. The contract is intentionally narrow: equality/inclusion/pattern
// filters on named fields, newest-first ordering, no joins leaking out. The
// canonical implementation persists to Postgres, tests run on the in-memory
// fake.
package store

import (
	"context"

	"github.com/moastrends/newsroom/model"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a row addressed by id does not exist.
	// Callers surface it as a distinct not-found view, never as an empty list.
	ErrNotFound = errors.New("record not found")

	// ErrPermissionDenied is returned when a write is filtered out by the
	// store's own ownership check. This is the last line of defense, callers
	// are expected to have checked capability already.
	ErrPermissionDenied = errors.New("permission denied")
)

// ArticleQuery scopes an article listing. Zero value lists everything,
// newest first.
type ArticleQuery struct {
	// Categories restricts to articles stored under any of the given values.
	// Empty means no category filter. Callers should produce this via
	// model.ExpandCategory so the shared grouping table is honored.
	Categories []model.Category

	// Search is a case-insensitive pattern applied to title and body.
	Search string
}

type Store interface {
	// Ping verifies the backing service is reachable.
	Ping(ctx context.Context) error

	// Articles. ListArticles orders by creation time descending.
	ListArticles(ctx context.Context, q ArticleQuery) ([]model.Article, error)
	ListArticlesByIds(ctx context.Context, ids []string) ([]model.Article, error)
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	CreateArticle(ctx context.Context, article *model.Article) error
	UpdateArticle(ctx context.Context, article *model.Article) error
	DeleteArticle(ctx context.Context, id string) error

	// Like/save relations, existence based, at most one row per pair.
	HasLike(ctx context.Context, userId, articleId string) (bool, error)
	AddLike(ctx context.Context, userId, articleId string) error
	RemoveLike(ctx context.Context, userId, articleId string) error
	ListLikedArticleIds(ctx context.Context, userId string) ([]string, error)

	HasSave(ctx context.Context, userId, articleId string) (bool, error)
	AddSave(ctx context.Context, userId, articleId string) error
	RemoveSave(ctx context.Context, userId, articleId string) error
	ListSavedArticleIds(ctx context.Context, userId string) ([]string, error)

	// Comments. ListComments orders newest first. Update and delete apply the
	// ownership filter in the store itself: a non-admin actor can only touch
	// rows whose user_id matches, so a bypassed UI gate still cannot succeed.
	ListComments(ctx context.Context, articleId string) ([]model.Comment, error)
	CreateComment(ctx context.Context, comment *model.Comment) error
	UpdateComment(ctx context.Context, id string, actor *model.Identity, content string) error
	DeleteComment(ctx context.Context, id string, actor *model.Identity) error

	// Users.
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error

	// Newsletter subscriptions.
	CreateSubscription(ctx context.Context, email string) error
}
