package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/yardline/internal/apperr"
	"github.com/yardline/internal/db"
	"github.com/yardline/internal/service"
)

type blogPayload struct {
	Title    string   `json:"title"`
	Slug     string   `json:"slug"`
	Excerpt  string   `json:"excerpt"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Image    string   `json:"image"`
	ReadTime string   `json:"readTime"`
	FAQs     []db.FAQ `json:"faqs"`
	Keywords []string `json:"keywords"`
}

func (p blogPayload) toInput() service.BlogInput {
	return service.BlogInput{
		Title:    p.Title,
		Slug:     p.Slug,
		Excerpt:  p.Excerpt,
		Content:  p.Content,
		Category: p.Category,
		Image:    p.Image,
		ReadTime: p.ReadTime,
		FAQs:     p.FAQs,
		Keywords: p.Keywords,
	}
}

type blogImagePayload struct {
	Image    string `json:"image"`
	Filename string `json:"filename"`
}

type blogImageCopyPayload struct {
	URL  string `json:"url"`
	Hint string `json:"hint"`
}

func (a *API) blogReady(c *gin.Context) bool {
	if a.blog == nil {
		a.respondError(c, apperr.Config("blog publishing is not configured"))
		return false
	}
	return true
}

// CreateBlogPost publishes a new post.
func (a *API) CreateBlogPost(c *gin.Context) {
	if !a.blogReady(c) {
		return
	}
	var payload blogPayload
	if !a.bindJSON(c, &payload) {
		return
	}

	post, err := a.blog.Publish(c.Request.Context(), payload.toInput())
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{"id": post.ID, "title": post.Title, "slug": post.Slug})
}

// UpdateBlogPost applies a partial update. The id travels in the body next to the fields.
func (a *API) UpdateBlogPost(c *gin.Context) {
	if !a.blogReady(c) {
		return
	}
	var body map[string]any
	if !a.bindJSON(c, &body) {
		return
	}
	id, err := idFromRequest(c, body)
	if err != nil {
		a.respondError(c, err)
		return
	}
	delete(body, "id")

	post, err := a.blog.Update(c.Request.Context(), id, body)
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{"post": post})
}

// DeleteBlogPost removes a post. The id may come from the query string or the body.
func (a *API) DeleteBlogPost(c *gin.Context) {
	if !a.blogReady(c) {
		return
	}
	body := map[string]any{}
	if !a.bindOptionalJSON(c, &body) {
		return
	}
	id, err := idFromRequest(c, body)
	if err != nil {
		a.respondError(c, err)
		return
	}

	if err := a.blog.Delete(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, nil)
}

// UploadBlogImage 将内联图片写入本地静态目录并返回公开路径。
func (a *API) UploadBlogImage(c *gin.Context) {
	if !a.blogReady(c) {
		return
	}
	var payload blogImagePayload
	if !a.bindJSON(c, &payload) {
		return
	}

	path, err := a.blog.UploadHeaderImage(c.Request.Context(), payload.Image, payload.Filename)
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{"path": path, "url": path})
}

// CopyBlogImage re-hosts a header image in the blog images bucket.
func (a *API) CopyBlogImage(c *gin.Context) {
	if !a.blogReady(c) {
		return
	}
	var payload blogImageCopyPayload
	if !a.bindJSON(c, &payload) {
		return
	}

	result, err := a.blog.CopyToCanonical(c.Request.Context(), payload.URL, payload.Hint)
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{"url": result.URL, "copied": result.Copied, "localAsset": result.LocalAsset})
}
