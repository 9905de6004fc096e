package model

import "time"

/*

ArticleLike is an existence based relation of user likes an article.

UserID: account id of the liker, part of the composite primary key
ArticleID: liked article id, part of the composite primary key
CreatedAt: time when the relation is created

The composite primary key guarantees at most one like per (user, article)
pair. Toggling off deletes the row, there is no quantity.

*/

type ArticleLike struct {
	UserID    string `gorm:"primaryKey"`
	ArticleID string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (ArticleLike) TableName() string {
	return "likes"
}

// ArticleSave is the save-for-later counterpart of ArticleLike. The two
// relations are fully independent, saving never implies liking.
type ArticleSave struct {
	UserID    string `gorm:"primaryKey"`
	ArticleID string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (ArticleSave) TableName() string {
	return "saved_news"
}
