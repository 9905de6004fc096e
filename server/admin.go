package server

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/moastrends/newsroom/model"
	"github.com/moastrends/newsroom/server/middlewares"
)

// Authoring requests arrive as multipart forms so media files ride along with
// the text fields. Subheadings come as a JSON-encoded array in the
// "subheadings" field.
//
// Files: "main_image" (one), "additional_images" (repeated), "video" (one).
// All media is optional, an update without a file keeps the stored URL.

func (h *Handler) CreateNews(c *gin.Context) {
	ident := middlewares.IdentityFrom(c)

	article := model.Article{
		Id:         uuid.New().String(),
		CreatedAt:  time.Now(),
		CreatedBy:  ident.Id,
		AuthorName: ident.FullName,
	}
	if ok := h.applyArticleForm(c, &article); !ok {
		return
	}
	if err := h.store.CreateArticle(c.Request.Context(), &article); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"article": article})
}

func (h *Handler) UpdateNewsArticle(c *gin.Context) {
	ident := middlewares.IdentityFrom(c)

	existing, err := h.store.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	article := *existing
	article.LastEditedBy = ident.FullName
	if ok := h.applyArticleForm(c, &article); !ok {
		return
	}
	if err := h.store.UpdateArticle(c.Request.Context(), &article); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": article})
}

func (h *Handler) DeleteNews(c *gin.Context) {
	if err := h.store.DeleteArticle(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
}

// applyArticleForm copies the multipart fields onto the article and uploads
// any attached media. It writes the error response itself and reports whether
// the caller should proceed.
func (h *Handler) applyArticleForm(c *gin.Context, article *model.Article) bool {
	if v, ok := c.GetPostForm("title"); ok {
		article.Title = strings.TrimSpace(v)
	}
	if v, ok := c.GetPostForm("body"); ok {
		article.Body = v
	}
	if v, ok := c.GetPostForm("category"); ok {
		article.Category = model.Category(v)
	}
	if v, ok := c.GetPostForm("subheadings"); ok {
		var blocks []model.Subheading
		if err := json.Unmarshal([]byte(v), &blocks); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "malformed subheadings"})
			return false
		}
		if err := article.SetSubheadingBlocks(blocks); err != nil {
			respondError(c, err)
			return false
		}
	}

	if article.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "title is required"})
		return false
	}
	if !model.KnownCategory(article.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "unknown category"})
		return false
	}

	if url, ok := h.uploadFormFile(c, "main_image", h.media.UploadImage); !ok {
		return false
	} else if url != "" {
		article.MainImageUrl = url
	}

	if form, err := c.MultipartForm(); err == nil {
		if files := form.File["additional_images"]; len(files) > 0 {
			var urls []string
			for _, header := range files {
				url, ok := h.uploadHeader(c, header, h.media.UploadImage)
				if !ok {
					return false
				}
				urls = append(urls, url)
			}
			if err := article.SetAdditionalImageUrls(urls); err != nil {
				respondError(c, err)
				return false
			}
		}
	}

	if url, ok := h.uploadFormFile(c, "video", h.media.UploadVideo); !ok {
		return false
	} else if url != "" {
		article.VideoUrl = url
	}

	return true
}

type uploadFunc = func(ctx context.Context, filename string, body io.Reader) (string, error)

// uploadFormFile uploads the named single-file field. A missing field is not
// an error, it reports an empty URL.
func (h *Handler) uploadFormFile(c *gin.Context, field string, upload uploadFunc) (string, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", true
	}
	return h.uploadHeader(c, header, upload)
}

func (h *Handler) uploadHeader(c *gin.Context, header *multipart.FileHeader, upload uploadFunc) (string, bool) {
	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return "", false
	}
	defer file.Close()

	url, err := upload(c.Request.Context(), header.Filename, file)
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return url, true
}
