package store

import (
	"context"
	"time"

	"github.com/moastrends/newsroom/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore persists every collection in Postgres through gorm.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SetupAndMigrate creates/updates the schema for all collections.
func SetupAndMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Article{},
		&model.ArticleLike{},
		&model.ArticleSave{},
		&model.Comment{},
		&model.Subscription{},
	)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) ListArticles(ctx context.Context, q ArticleQuery) ([]model.Article, error) {
	db := s.db.WithContext(ctx).Model(&model.Article{})
	if len(q.Categories) == 1 {
		db = db.Where("category = ?", q.Categories[0])
	} else if len(q.Categories) > 1 {
		db = db.Where("category IN ?", q.Categories)
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		db = db.Where("title ILIKE ? OR body ILIKE ?", pattern, pattern)
	}

	var articles []model.Article
	if err := db.Order("created_at desc").Find(&articles).Error; err != nil {
		return nil, errors.Wrap(err, "list articles")
	}
	return articles, nil
}

func (s *PostgresStore) ListArticlesByIds(ctx context.Context, ids []string) ([]model.Article, error) {
	if len(ids) == 0 {
		return []model.Article{}, nil
	}
	var articles []model.Article
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at desc").
		Find(&articles).Error
	if err != nil {
		return nil, errors.Wrap(err, "list articles by ids")
	}
	return articles, nil
}

func (s *PostgresStore) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	var article model.Article
	err := s.db.WithContext(ctx).First(&article, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get article")
	}
	return &article, nil
}

func (s *PostgresStore) CreateArticle(ctx context.Context, article *model.Article) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(article).Error, "create article")
}

func (s *PostgresStore) UpdateArticle(ctx context.Context, article *model.Article) error {
	res := s.db.WithContext(ctx).Model(&model.Article{}).
		Where("id = ?", article.Id).
		Updates(map[string]interface{}{
			"title":             article.Title,
			"body":              article.Body,
			"category":          article.Category,
			"main_image_url":    article.MainImageUrl,
			"additional_images": article.AdditionalImages,
			"video_url":         article.VideoUrl,
			"subheadings":       article.Subheadings,
			"last_edited_by":    article.LastEditedBy,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update article")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteArticle(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Article{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete article")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) HasLike(ctx context.Context, userId, articleId string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ArticleLike{}).
		Where("user_id = ? AND article_id = ?", userId, articleId).
		Count(&count).Error
	return count > 0, errors.Wrap(err, "has like")
}

func (s *PostgresStore) AddLike(ctx context.Context, userId, articleId string) error {
	// The composite primary key makes double inserts a no-op instead of an
	// error, so a stale local mirror cannot fail the toggle.
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ArticleLike{UserID: userId, ArticleID: articleId, CreatedAt: time.Now()}).Error
	return errors.Wrap(err, "add like")
}

func (s *PostgresStore) RemoveLike(ctx context.Context, userId, articleId string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND article_id = ?", userId, articleId).
		Delete(&model.ArticleLike{}).Error
	return errors.Wrap(err, "remove like")
}

func (s *PostgresStore) ListLikedArticleIds(ctx context.Context, userId string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.ArticleLike{}).
		Where("user_id = ?", userId).
		Pluck("article_id", &ids).Error
	return ids, errors.Wrap(err, "list liked article ids")
}

func (s *PostgresStore) HasSave(ctx context.Context, userId, articleId string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ArticleSave{}).
		Where("user_id = ? AND article_id = ?", userId, articleId).
		Count(&count).Error
	return count > 0, errors.Wrap(err, "has save")
}

func (s *PostgresStore) AddSave(ctx context.Context, userId, articleId string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ArticleSave{UserID: userId, ArticleID: articleId, CreatedAt: time.Now()}).Error
	return errors.Wrap(err, "add save")
}

func (s *PostgresStore) RemoveSave(ctx context.Context, userId, articleId string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND article_id = ?", userId, articleId).
		Delete(&model.ArticleSave{}).Error
	return errors.Wrap(err, "remove save")
}

func (s *PostgresStore) ListSavedArticleIds(ctx context.Context, userId string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.ArticleSave{}).
		Where("user_id = ?", userId).
		Pluck("article_id", &ids).Error
	return ids, errors.Wrap(err, "list saved article ids")
}

func (s *PostgresStore) ListComments(ctx context.Context, articleId string) ([]model.Comment, error) {
	var comments []model.Comment
	err := s.db.WithContext(ctx).
		Where("article_id = ?", articleId).
		Order("created_at desc").
		Find(&comments).Error
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	return comments, nil
}

func (s *PostgresStore) CreateComment(ctx context.Context, comment *model.Comment) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(comment).Error, "create comment")
}

func (s *PostgresStore) UpdateComment(ctx context.Context, id string, actor *model.Identity, content string) error {
	if actor == nil {
		return ErrPermissionDenied
	}

	db := s.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id)
	if !actor.IsAdmin() {
		db = db.Where("user_id = ?", actor.Id)
	}

	now := time.Now()
	res := db.Updates(map[string]interface{}{"content": content, "edited_at": &now})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update comment")
	}
	if res.RowsAffected == 0 {
		return s.commentWriteRefusal(ctx, id)
	}
	return nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, id string, actor *model.Identity) error {
	if actor == nil {
		return ErrPermissionDenied
	}

	db := s.db.WithContext(ctx).Where("id = ?", id)
	if !actor.IsAdmin() {
		db = db.Where("user_id = ?", actor.Id)
	}

	res := db.Delete(&model.Comment{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete comment")
	}
	if res.RowsAffected == 0 {
		return s.commentWriteRefusal(ctx, id)
	}
	return nil
}

// commentWriteRefusal distinguishes a missing row from one the ownership
// filter excluded.
func (s *PostgresStore) commentWriteRefusal(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return errors.Wrap(err, "check comment existence")
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrPermissionDenied
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	return &user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user by email")
	}
	return &user, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *model.User) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(user).Error, "create user")
}

func (s *PostgresStore) CreateSubscription(ctx context.Context, email string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Subscription{Id: newId(), Email: email, CreatedAt: time.Now()}).Error
	return errors.Wrap(err, "create subscription")
}
