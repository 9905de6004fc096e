package model

import "time"

/*

Comment is one reader comment in the "comments" collection.

Id: primary key
ArticleID: parent article
UserID: account id of the author. This is the one canonical ownership key,
edit and delete capability is granted to this account or to an admin role.
Content: plain text body
CreatedAt: submission time
EditedAt: time of the most recent edit, nil if never edited

*/

type Comment struct {
	Id        string `gorm:"primaryKey"`
	ArticleID string `gorm:"index"`
	UserID    string
	Content   string
	CreatedAt time.Time
	EditedAt  *time.Time
}

func (Comment) TableName() string {
	return "comments"
}

// CanModify reports whether the given principal may edit or delete this
// comment: the author always can, an admin role always can, everyone else
// never can.
func (c *Comment) CanModify(ident *Identity) bool {
	if ident == nil {
		return false
	}
	return ident.Id == c.UserID || ident.IsAdmin()
}
