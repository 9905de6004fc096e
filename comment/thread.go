package comment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moastrends/newsroom/model"
	"github.com/moastrends/newsroom/store"
	"github.com/pkg/errors"
)

var (
	ErrUnauthenticated    = errors.New("sign in to comment")
	ErrEmptyComment       = errors.New("comment is empty")
	ErrDeleteNotRequested = errors.New("delete was not requested")
)

// DefaultNoticeTTL is how long the submission success notice stays visible
// before it clears itself.
const DefaultNoticeTTL = 3 * time.Second

// LoadState tracks whether the thread has fetched its comments yet. A thread
// renders a placeholder until it reaches StateLoaded.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateLoaded
)

// IdentitySource yields the identity acting on the thread, nil when signed
// out.
type IdentitySource interface {
	Current() *model.Identity
}

// Thread holds the comments of a single article plus the interaction state
// around them: the draft being typed, which comments are under edit, and
// which have a delete awaiting confirmation. Edit and delete confirmation are
// tracked independently so one comment can be in both states at once.
//
// All methods are safe for concurrent use. Remote calls are never made while
// holding the internal mutex, so a Submit landing during a slow Load is merged
// instead of lost.
type Thread struct {
	store     store.Store
	ident     IdentitySource
	articleId string
	noticeTTL time.Duration

	mu            sync.Mutex
	state         LoadState
	comments      []model.Comment
	draft         string
	loadErr       error
	notice        bool
	noticeTimer   *time.Timer
	editing       map[string]bool
	pendingDelete map[string]bool
}

func NewThread(st store.Store, ident IdentitySource, articleId string) *Thread {
	return &Thread{
		store:         st,
		ident:         ident,
		articleId:     articleId,
		noticeTTL:     DefaultNoticeTTL,
		editing:       map[string]bool{},
		pendingDelete: map[string]bool{},
	}
}

// SetNoticeTTL overrides how long the success notice lingers. Only effective
// before the next Submit.
func (t *Thread) SetNoticeTTL(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.noticeTTL = d
}

// Load fetches the comments of the article, newest first. A concurrent Load
// is a no-op. Comments submitted while the fetch is in flight are kept in
// front of the fetched rows.
func (t *Thread) Load(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateLoading {
		t.mu.Unlock()
		return nil
	}
	t.state = StateLoading
	t.mu.Unlock()

	fetched, err := t.store.ListComments(ctx, t.articleId)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = StateIdle
		t.loadErr = errors.Wrap(err, "load comments")
		return t.loadErr
	}

	seen := map[string]bool{}
	for _, c := range fetched {
		seen[c.Id] = true
	}
	merged := make([]model.Comment, 0, len(fetched)+len(t.comments))
	for _, c := range t.comments {
		if !seen[c.Id] {
			merged = append(merged, c)
		}
	}
	merged = append(merged, fetched...)

	t.comments = merged
	t.state = StateLoaded
	t.loadErr = nil
	return nil
}

func (t *Thread) State() LoadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Thread) LoadErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadErr
}

// Comments returns a snapshot of the thread, newest first.
func (t *Thread) Comments() []model.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Comment, len(t.comments))
	copy(out, t.comments)
	return out
}

func (t *Thread) SetDraft(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draft = content
}

func (t *Thread) Draft() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draft
}

// NoticeVisible reports whether the submission success notice is currently
// showing.
func (t *Thread) NoticeVisible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.notice
}

// Submit posts the current draft as a new comment. A signed-out caller and a
// blank draft are both rejected before any remote call. On success the new
// comment is prepended, the draft is cleared, and a success notice shows
// until the notice TTL elapses. On failure the draft stays so the author can
// retry.
func (t *Thread) Submit(ctx context.Context) error {
	ident := t.ident.Current()
	if ident == nil {
		return ErrUnauthenticated
	}

	t.mu.Lock()
	content := strings.TrimSpace(t.draft)
	t.mu.Unlock()
	if content == "" {
		return ErrEmptyComment
	}

	c := model.Comment{
		Id:        uuid.New().String(),
		ArticleID: t.articleId,
		UserID:    ident.Id,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := t.store.CreateComment(ctx, &c); err != nil {
		return errors.Wrap(err, "submit comment")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.comments = append([]model.Comment{c}, t.comments...)
	t.draft = ""
	t.notice = true
	if t.noticeTimer != nil {
		t.noticeTimer.Stop()
	}
	t.noticeTimer = time.AfterFunc(t.noticeTTL, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.notice = false
	})
	return nil
}

// StartEdit opens the named comment for editing. Only the author or an admin
// may edit.
func (t *Thread) StartEdit(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.find(id)
	if !ok {
		return store.ErrNotFound
	}
	if !c.CanModify(t.ident.Current()) {
		return store.ErrPermissionDenied
	}
	t.editing[id] = true
	return nil
}

func (t *Thread) CancelEdit(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.editing, id)
}

func (t *Thread) Editing(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.editing[id]
}

// SaveEdit persists the new content of a comment opened with StartEdit. The
// store re-checks ownership, so a stale local capability cannot overwrite
// another author's comment. On failure the comment stays in editing state.
func (t *Thread) SaveEdit(ctx context.Context, id, content string) error {
	ident := t.ident.Current()
	if ident == nil {
		return ErrUnauthenticated
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyComment
	}

	if err := t.store.UpdateComment(ctx, id, ident, content); err != nil {
		return errors.Wrap(err, "save edit")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	for i := range t.comments {
		if t.comments[i].Id == id {
			t.comments[i].Content = content
			t.comments[i].EditedAt = &now
			break
		}
	}
	delete(t.editing, id)
	return nil
}

// RequestDelete marks the named comment for deletion pending confirmation.
// Only the author or an admin may request it.
func (t *Thread) RequestDelete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.find(id)
	if !ok {
		return store.ErrNotFound
	}
	if !c.CanModify(t.ident.Current()) {
		return store.ErrPermissionDenied
	}
	t.pendingDelete[id] = true
	return nil
}

func (t *Thread) CancelDelete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pendingDelete, id)
}

func (t *Thread) PendingDelete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pendingDelete[id]
}

// ConfirmDelete performs a deletion previously requested with RequestDelete.
// The store re-checks ownership. On failure the request stays pending so the
// caller can retry or cancel.
func (t *Thread) ConfirmDelete(ctx context.Context, id string) error {
	t.mu.Lock()
	pending := t.pendingDelete[id]
	ident := t.ident.Current()
	t.mu.Unlock()
	if !pending {
		return ErrDeleteNotRequested
	}
	if ident == nil {
		return ErrUnauthenticated
	}

	if err := t.store.DeleteComment(ctx, id, ident); err != nil {
		return errors.Wrap(err, "confirm delete")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.comments {
		if t.comments[i].Id == id {
			t.comments = append(t.comments[:i], t.comments[i+1:]...)
			break
		}
	}
	delete(t.pendingDelete, id)
	delete(t.editing, id)
	return nil
}

// Close stops the notice timer. Safe to call more than once.
func (t *Thread) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.noticeTimer != nil {
		t.noticeTimer.Stop()
		t.noticeTimer = nil
	}
	t.notice = false
}

// find must be called with the mutex held.
func (t *Thread) find(id string) (model.Comment, bool) {
	for _, c := range t.comments {
		if c.Id == id {
			return c, true
		}
	}
	return model.Comment{}, false
}
