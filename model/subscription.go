package model

import "time"

// Subscription is one newsletter signup in the "subscriptions" collection.
type Subscription struct {
	Id        string `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex"`
	CreatedAt time.Time
}

func (Subscription) TableName() string {
	return "subscriptions"
}
