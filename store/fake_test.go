package store

import (
	"context"
	"testing"
	"time"

	"github.com/moastrends/newsroom/model"
	"github.com/stretchr/testify/require"
)

// The ownership filter lives in the store itself so a bypassed UI gate can
// never mutate somebody else's comment.
func TestCommentWritesApplyOwnershipFilter(t *testing.T) {
	ctx := context.Background()
	f := NewFakeStore()
	f.Comments["c1"] = model.Comment{Id: "c1", ArticleID: "a1", UserID: "u1", Content: "first", CreatedAt: time.Now()}

	owner := &model.Identity{Id: "u1", Role: model.RoleUser}
	stranger := &model.Identity{Id: "u2", Role: model.RoleUser}
	admin := &model.Identity{Id: "u3", Role: model.RoleAdmin}

	require.ErrorIs(t, f.UpdateComment(ctx, "c1", stranger, "hijacked"), ErrPermissionDenied)
	require.ErrorIs(t, f.DeleteComment(ctx, "c1", stranger), ErrPermissionDenied)
	require.ErrorIs(t, f.UpdateComment(ctx, "c1", nil, "anon"), ErrPermissionDenied)

	require.NoError(t, f.UpdateComment(ctx, "c1", owner, "edited by owner"))
	require.NoError(t, f.UpdateComment(ctx, "c1", admin, "edited by admin"))
	require.NoError(t, f.DeleteComment(ctx, "c1", admin))

	require.ErrorIs(t, f.UpdateComment(ctx, "c1", owner, "gone"), ErrNotFound)
}

func TestListCommentsNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := NewFakeStore()
	base := time.Now()
	f.Comments["old"] = model.Comment{Id: "old", ArticleID: "a1", CreatedAt: base.Add(-time.Hour)}
	f.Comments["new"] = model.Comment{Id: "new", ArticleID: "a1", CreatedAt: base}
	f.Comments["other"] = model.Comment{Id: "other", ArticleID: "a2", CreatedAt: base}

	got, err := f.ListComments(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "new", got[0].Id)
	require.Equal(t, "old", got[1].Id)
}

func TestGetArticleNotFoundIsDistinct(t *testing.T) {
	f := NewFakeStore()
	_, err := f.GetArticle(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
