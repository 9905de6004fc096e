// Package feed owns the article collection shown to one client and the
// per-article like/save interaction state. Mutations flow through the
// controller only, nothing else writes its collection or mirrors.
package feed

import (
	"context"
	"sync"

	"github.com/moastrends/newsroom/model"
	"github.com/moastrends/newsroom/store"
	"github.com/moastrends/newsroom/utils"
	Logger "github.com/moastrends/newsroom/utils/log"
	"github.com/pkg/errors"
)

// ErrUnauthenticated rejects a toggle issued with no identity. The check is
// local, no remote call is made.
var ErrUnauthenticated = errors.New("authentication required")

// IdentitySource provides the read shared identity established by the
// session manager.
type IdentitySource interface {
	Current() *model.Identity
}

// Controller fetches the article collection for the active category selector
// and tracks per-article like/save state. The local mirrors always reflect
// the last confirmed remote state: a toggle flips optimistically and reverts
// if the remote write fails.
type Controller struct {
	store store.Store
	ident IdentitySource

	mu       sync.Mutex
	articles []model.Article
	liked    map[string]bool
	saved    map[string]bool
	fetchErr error

	toggles utils.KeyedLocks
}

func NewController(st store.Store, ident IdentitySource) *Controller {
	return &Controller{
		store: st,
		ident: ident,
		liked: map[string]bool{},
		saved: map[string]bool{},
	}
}

// Refresh fetches the collection for the given selector, newest first. The
// selector expands through the shared category taxonomy: "All" means no
// filter, grouped labels cover every stored value in their group, unknown
// labels filter literally. Success replaces the whole collection; failure
// empties it and records an unable-to-fetch state, it never leaves a partial
// result.
func (c *Controller) Refresh(ctx context.Context, selector model.Category) error {
	articles, err := c.store.ListArticles(ctx, store.ArticleQuery{
		Categories: model.ExpandCategory(selector),
	})
	if err != nil {
		c.mu.Lock()
		c.articles = nil
		c.fetchErr = err
		c.mu.Unlock()
		return errors.Wrap(err, "unable to fetch articles")
	}

	c.mu.Lock()
	c.articles = articles
	c.fetchErr = nil
	c.mu.Unlock()

	c.reloadMirrors(ctx)
	return nil
}

// reloadMirrors pulls the signed-in user's like/save relations. Failures are
// logged and leave the previous mirrors in place, they never clear unrelated
// state.
func (c *Controller) reloadMirrors(ctx context.Context) {
	ident := c.ident.Current()
	if ident == nil {
		return
	}

	likedIds, err := c.store.ListLikedArticleIds(ctx, ident.Id)
	if err != nil {
		Logger.Log.Warn("fail to load like relations: ", err)
		return
	}
	savedIds, err := c.store.ListSavedArticleIds(ctx, ident.Id)
	if err != nil {
		Logger.Log.Warn("fail to load save relations: ", err)
		return
	}

	liked := make(map[string]bool, len(likedIds))
	for _, id := range likedIds {
		liked[id] = true
	}
	saved := make(map[string]bool, len(savedIds))
	for _, id := range savedIds {
		saved[id] = true
	}

	c.mu.Lock()
	c.liked = liked
	c.saved = saved
	c.mu.Unlock()
}

// Articles returns a copy of the current collection.
func (c *Controller) Articles() []model.Article {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Article, len(c.articles))
	copy(out, c.articles)
	return out
}

// FetchErr reports the unable-to-fetch state left by the last Refresh, nil
// after a successful one.
func (c *Controller) FetchErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchErr
}

func (c *Controller) Liked(articleId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liked[articleId]
}

func (c *Controller) Saved(articleId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved[articleId]
}

// ToggleLike flips the like relation for the article and returns the new
// state. Toggles for the same article are serialized: a second request
// waits for the first to resolve before applying. Toggles on different
// articles interleave freely.
func (c *Controller) ToggleLike(ctx context.Context, articleId string) (bool, error) {
	return c.toggle(ctx, articleId, likedMirror, relationOps{
		add:    c.store.AddLike,
		remove: c.store.RemoveLike,
	})
}

// ToggleSave flips the save relation, same contract as ToggleLike. Like and
// save are fully independent relations.
func (c *Controller) ToggleSave(ctx context.Context, articleId string) (bool, error) {
	return c.toggle(ctx, articleId, savedMirror, relationOps{
		add:    c.store.AddSave,
		remove: c.store.RemoveSave,
	})
}

type relationOps struct {
	add    func(ctx context.Context, userId, articleId string) error
	remove func(ctx context.Context, userId, articleId string) error
}

// mirrorSelector picks a mirror field. Selection happens under c.mu at every
// access because reloadMirrors replaces the maps: a toggle settling after a
// concurrent Refresh must land its confirmed state in the current map, not
// in an orphaned one.
type mirrorSelector func(c *Controller) map[string]bool

func likedMirror(c *Controller) map[string]bool { return c.liked }
func savedMirror(c *Controller) map[string]bool { return c.saved }

func (c *Controller) toggle(ctx context.Context, articleId string, mirror mirrorSelector, ops relationOps) (bool, error) {
	ident := c.ident.Current()
	if ident == nil {
		return false, ErrUnauthenticated
	}

	unlock := c.toggles.Acquire(articleId)
	defer unlock()

	c.mu.Lock()
	wasOn := mirror(c)[articleId]
	// optimistic flip, settled below once the remote write resolves
	mirror(c)[articleId] = !wasOn
	c.mu.Unlock()

	var err error
	if wasOn {
		err = ops.remove(ctx, ident.Id, articleId)
	} else {
		err = ops.add(ctx, ident.Id, articleId)
	}

	c.mu.Lock()
	if err != nil {
		mirror(c)[articleId] = wasOn
	} else {
		mirror(c)[articleId] = !wasOn
	}
	c.mu.Unlock()

	if err != nil {
		return wasOn, errors.Wrap(err, "toggle failed")
	}
	return !wasOn, nil
}
