package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/moastrends/newsroom/model"
	"github.com/pkg/errors"
)

// FakeStore is an in-memory Store for tests. Besides holding rows it can
// inject a forced error or an artificial delay per operation name, and counts
// every call so tests can assert that an operation never reached the store.
type FakeStore struct {
	mu sync.Mutex

	Articles      map[string]model.Article
	Users         map[string]model.User
	Comments      map[string]model.Comment
	Likes         map[string]bool
	Saves         map[string]bool
	Subscriptions []string

	errs   map[string]error
	delays map[string]time.Duration
	calls  map[string]int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		Articles: map[string]model.Article{},
		Users:    map[string]model.User{},
		Comments: map[string]model.Comment{},
		Likes:    map[string]bool{},
		Saves:    map[string]bool{},
		errs:     map[string]error{},
		delays:   map[string]time.Duration{},
		calls:    map[string]int{},
	}
}

// FailWith forces every subsequent call of the named operation to return err.
// Pass nil to clear.
func (f *FakeStore) FailWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// DelayOp makes the named operation sleep before touching state, to simulate
// a slow remote call.
func (f *FakeStore) DelayOp(op string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[op] = d
}

// CallCount reports how many times the named operation was invoked.
func (f *FakeStore) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// begin records the call, applies any configured delay and returns the forced
// error if one is set. Callers must not hold the mutex.
func (f *FakeStore) begin(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	delay := f.delays[op]
	err := f.errs[op]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func relationKey(userId, articleId string) string {
	return userId + "__" + articleId
}

func (f *FakeStore) Ping(ctx context.Context) error {
	return f.begin(ctx, "Ping")
}

func (f *FakeStore) ListArticles(ctx context.Context, q ArticleQuery) ([]model.Article, error) {
	if err := f.begin(ctx, "ListArticles"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Article
	for _, a := range f.Articles {
		if len(q.Categories) > 0 && !containsCategory(q.Categories, a.Category) {
			continue
		}
		if q.Search != "" {
			needle := strings.ToLower(q.Search)
			if !strings.Contains(strings.ToLower(a.Title), needle) &&
				!strings.Contains(strings.ToLower(a.Body), needle) {
				continue
			}
		}
		out = append(out, a)
	}
	sortArticlesNewestFirst(out)
	return out, nil
}

func (f *FakeStore) ListArticlesByIds(ctx context.Context, ids []string) ([]model.Article, error) {
	if err := f.begin(ctx, "ListArticlesByIds"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Article
	for _, id := range ids {
		if a, ok := f.Articles[id]; ok {
			out = append(out, a)
		}
	}
	sortArticlesNewestFirst(out)
	return out, nil
}

func (f *FakeStore) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	if err := f.begin(ctx, "GetArticle"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.Articles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (f *FakeStore) CreateArticle(ctx context.Context, article *model.Article) error {
	if err := f.begin(ctx, "CreateArticle"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Articles[article.Id] = *article
	return nil
}

func (f *FakeStore) UpdateArticle(ctx context.Context, article *model.Article) error {
	if err := f.begin(ctx, "UpdateArticle"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.Articles[article.Id]
	if !ok {
		return ErrNotFound
	}
	existing.Title = article.Title
	existing.Body = article.Body
	existing.Category = article.Category
	existing.MainImageUrl = article.MainImageUrl
	existing.AdditionalImages = article.AdditionalImages
	existing.VideoUrl = article.VideoUrl
	existing.Subheadings = article.Subheadings
	existing.LastEditedBy = article.LastEditedBy
	f.Articles[article.Id] = existing
	return nil
}

func (f *FakeStore) DeleteArticle(ctx context.Context, id string) error {
	if err := f.begin(ctx, "DeleteArticle"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.Articles[id]; !ok {
		return ErrNotFound
	}
	delete(f.Articles, id)
	return nil
}

func (f *FakeStore) HasLike(ctx context.Context, userId, articleId string) (bool, error) {
	if err := f.begin(ctx, "HasLike"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Likes[relationKey(userId, articleId)], nil
}

func (f *FakeStore) AddLike(ctx context.Context, userId, articleId string) error {
	if err := f.begin(ctx, "AddLike"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Likes[relationKey(userId, articleId)] = true
	return nil
}

func (f *FakeStore) RemoveLike(ctx context.Context, userId, articleId string) error {
	if err := f.begin(ctx, "RemoveLike"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Likes, relationKey(userId, articleId))
	return nil
}

func (f *FakeStore) ListLikedArticleIds(ctx context.Context, userId string) ([]string, error) {
	if err := f.begin(ctx, "ListLikedArticleIds"); err != nil {
		return nil, err
	}
	return f.relationIds(f.Likes, userId), nil
}

func (f *FakeStore) HasSave(ctx context.Context, userId, articleId string) (bool, error) {
	if err := f.begin(ctx, "HasSave"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Saves[relationKey(userId, articleId)], nil
}

func (f *FakeStore) AddSave(ctx context.Context, userId, articleId string) error {
	if err := f.begin(ctx, "AddSave"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Saves[relationKey(userId, articleId)] = true
	return nil
}

func (f *FakeStore) RemoveSave(ctx context.Context, userId, articleId string) error {
	if err := f.begin(ctx, "RemoveSave"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Saves, relationKey(userId, articleId))
	return nil
}

func (f *FakeStore) ListSavedArticleIds(ctx context.Context, userId string) ([]string, error) {
	if err := f.begin(ctx, "ListSavedArticleIds"); err != nil {
		return nil, err
	}
	return f.relationIds(f.Saves, userId), nil
}

func (f *FakeStore) relationIds(rel map[string]bool, userId string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := []string{}
	prefix := userId + "__"
	for key, ok := range rel {
		if ok && strings.HasPrefix(key, prefix) {
			ids = append(ids, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(ids)
	return ids
}

func (f *FakeStore) ListComments(ctx context.Context, articleId string) ([]model.Comment, error) {
	if err := f.begin(ctx, "ListComments"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Comment
	for _, c := range f.Comments {
		if c.ArticleID == articleId {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Id > out[j].Id
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *FakeStore) CreateComment(ctx context.Context, comment *model.Comment) error {
	if err := f.begin(ctx, "CreateComment"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Comments[comment.Id] = *comment
	return nil
}

func (f *FakeStore) UpdateComment(ctx context.Context, id string, actor *model.Identity, content string) error {
	if err := f.begin(ctx, "UpdateComment"); err != nil {
		return err
	}
	if actor == nil {
		return ErrPermissionDenied
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.Comments[id]
	if !ok {
		return ErrNotFound
	}
	if !actor.IsAdmin() && c.UserID != actor.Id {
		return ErrPermissionDenied
	}
	now := time.Now()
	c.Content = content
	c.EditedAt = &now
	f.Comments[id] = c
	return nil
}

func (f *FakeStore) DeleteComment(ctx context.Context, id string, actor *model.Identity) error {
	if err := f.begin(ctx, "DeleteComment"); err != nil {
		return err
	}
	if actor == nil {
		return ErrPermissionDenied
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.Comments[id]
	if !ok {
		return ErrNotFound
	}
	if !actor.IsAdmin() && c.UserID != actor.Id {
		return ErrPermissionDenied
	}
	delete(f.Comments, id)
	return nil
}

func (f *FakeStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	if err := f.begin(ctx, "GetUser"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.Users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (f *FakeStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := f.begin(ctx, "GetUserByEmail"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.Users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (f *FakeStore) CreateUser(ctx context.Context, user *model.User) error {
	if err := f.begin(ctx, "CreateUser"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.Users {
		if u.Email == user.Email {
			return errors.New("email already registered")
		}
	}
	f.Users[user.Id] = *user
	return nil
}

func (f *FakeStore) CreateSubscription(ctx context.Context, email string) error {
	if err := f.begin(ctx, "CreateSubscription"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Subscriptions = append(f.Subscriptions, email)
	return nil
}

func containsCategory(cats []model.Category, c model.Category) bool {
	for _, cat := range cats {
		if cat == c {
			return true
		}
	}
	return false
}

func sortArticlesNewestFirst(articles []model.Article) {
	sort.Slice(articles, func(i, j int) bool {
		if articles[i].CreatedAt.Equal(articles[j].CreatedAt) {
			return articles[i].Id > articles[j].Id
		}
		return articles[i].CreatedAt.After(articles[j].CreatedAt)
	})
}
