package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Subheading is one ordered title+content block inside an article body.
type Subheading struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

/*

Article is one published news item in the "news" collection.

Id: primary key, immutable once created
Title/Body: plain text content
Category: one of the stored category values, see category.go
MainImageUrl: optional cover image, publicly fetchable URL
AdditionalImages: JSON array of extra image URLs
VideoUrl: optional video URL
Subheadings: JSON array of ordered Subheading blocks
CreatedBy: account id of the authoring admin
AuthorName: display name stamped at creation time
LastEditedBy: display name of the most recent editor, empty if never edited

*/

type Article struct {
	Id               string `gorm:"primaryKey"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Title            string
	Body             string
	Category         Category
	MainImageUrl     string
	AdditionalImages datatypes.JSON
	VideoUrl         string
	Subheadings      datatypes.JSON
	CreatedBy        string
	AuthorName       string
	LastEditedBy     string
}

func (Article) TableName() string {
	return "news"
}

func (a *Article) SubheadingBlocks() ([]Subheading, error) {
	if len(a.Subheadings) == 0 {
		return nil, nil
	}
	var blocks []Subheading
	if err := json.Unmarshal(a.Subheadings, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (a *Article) SetSubheadingBlocks(blocks []Subheading) error {
	raw, err := json.Marshal(blocks)
	if err != nil {
		return err
	}
	a.Subheadings = datatypes.JSON(raw)
	return nil
}

func (a *Article) AdditionalImageUrls() ([]string, error) {
	if len(a.AdditionalImages) == 0 {
		return nil, nil
	}
	var urls []string
	if err := json.Unmarshal(a.AdditionalImages, &urls); err != nil {
		return nil, err
	}
	return urls, nil
}

func (a *Article) SetAdditionalImageUrls(urls []string) error {
	raw, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	a.AdditionalImages = datatypes.JSON(raw)
	return nil
}
