package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yardline/internal/apperr"
	"github.com/yardline/internal/catalog"
	"github.com/yardline/internal/db"
	"github.com/yardline/internal/imaging"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	BlogAuthor          = "Yardline Rentals"
	BlogDateLayout      = "January 2, 2006"
	defaultBlogCategory = "Equipment Rental"
	defaultBlogImage    = "/images/blog/default-header.jpg"
	defaultReadTime     = "5 min read"
	blogKeyPrefix       = "blog"
	localBlogBucket     = "blog"
)

var (
	faqMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
	faqAnswerPolicy   = bluemonday.UGCPolicy()
	faqQuestionPolicy = bluemonday.StrictPolicy()
)

// blogColumns maps accepted update keys, camelCase or snake_case, onto columns.
var blogColumns = map[string]string{
	"title":     "title",
	"slug":      "slug",
	"excerpt":   "excerpt",
	"content":   "content",
	"author":    "author",
	"date":      "date",
	"category":  "category",
	"image":     "image",
	"readTime":  "read_time",
	"read_time": "read_time",
	"faqs":      "faqs",
	"keywords":  "keywords",
}

// BlogInput 是发布文章时接受的字段。
type BlogInput struct {
	Title    string
	Slug     string
	Excerpt  string
	Content  string
	Category string
	Image    string
	ReadTime string
	FAQs     []db.FAQ
	Keywords []string
}

// PublishedPost is the projection returned after publishing.
type PublishedPost struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// CopyResult reports where an image ended up after a copy-to-canonical request.
type CopyResult struct {
	URL        string `json:"url"`
	Copied     bool   `json:"copied"`
	LocalAsset bool   `json:"localAsset"`
}

// BlogService publishes and maintains blog posts and their header images.
type BlogService struct {
	posts     catalog.Table[db.BlogPost]
	canonical *IngestionPipeline
	local     *IngestionPipeline
	bucket    string
	now       func() time.Time
	logger    *zap.Logger
}

// NewBlogService creates a BlogService. canonical hosts copies in bucket; local writes under the static upload dir.
func NewBlogService(posts catalog.Table[db.BlogPost], canonical, local *IngestionPipeline, bucket string, logger *zap.Logger) *BlogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlogService{
		posts:     posts,
		canonical: canonical,
		local:     local,
		bucket:    bucket,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *BlogService) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

// Publish validates input, applies defaults, appends the FAQ block and inserts the post.
func (s *BlogService) Publish(ctx context.Context, input BlogInput) (PublishedPost, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return PublishedPost{}, apperr.Validation("title and content are required")
	}

	slugSource := strings.TrimSpace(input.Slug)
	if slugSource == "" {
		slugSource = title
	}
	slug := Slugify(slugSource)
	if slug == "" {
		return PublishedPost{}, apperr.Validation("title must contain at least one letter or digit")
	}

	if len(input.FAQs) > 0 {
		block, err := RenderFAQBlock(input.FAQs)
		if err != nil {
			return PublishedPost{}, err
		}
		content = content + "\n" + block
	}

	post := &db.BlogPost{
		Title:    title,
		Slug:     slug,
		Excerpt:  orDefault(input.Excerpt, title),
		Content:  content,
		Author:   BlogAuthor,
		Date:     s.now().Format(BlogDateLayout),
		Category: orDefault(input.Category, defaultBlogCategory),
		Image:    orDefault(input.Image, defaultBlogImage),
		ReadTime: orDefault(input.ReadTime, defaultReadTime),
		FAQs:     datatypes.NewJSONSlice(input.FAQs),
		Keywords: datatypes.NewJSONSlice(input.Keywords),
	}
	if _, err := s.posts.Insert(ctx, post); err != nil {
		return PublishedPost{}, err
	}

	s.logger.Info("blog post published", zap.Uint("id", post.ID), zap.String("slug", post.Slug))
	return PublishedPost{ID: post.ID, Title: post.Title, Slug: post.Slug}, nil
}

// Update overwrites the given fields. A title change keeps the existing slug.
func (s *BlogService) Update(ctx context.Context, id uint, fields map[string]any) (*db.BlogPost, error) {
	if id == 0 {
		return nil, apperr.Validation("id is required")
	}

	updates := make(map[string]any, len(fields))
	for key, value := range fields {
		if key == "id" {
			continue
		}
		column, ok := blogColumns[key]
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("unknown field %q", key))
		}

		switch column {
		case "faqs":
			var faqs []db.FAQ
			if err := convertJSON(value, &faqs); err != nil {
				return nil, apperr.Validation("faqs must be a list of {question, answer}")
			}
			updates[column] = datatypes.NewJSONSlice(faqs)
		case "keywords":
			var keywords []string
			if err := convertJSON(value, &keywords); err != nil {
				return nil, apperr.Validation("keywords must be a list of strings")
			}
			updates[column] = datatypes.NewJSONSlice(keywords)
		default:
			text, ok := value.(string)
			if !ok {
				return nil, apperr.Validation(fmt.Sprintf("%s must be a string", key))
			}
			if column == "slug" {
				text = Slugify(text)
				if text == "" {
					return nil, apperr.Validation("slug must contain at least one letter or digit")
				}
			}
			updates[column] = text
		}
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("no fields to update")
	}

	return s.posts.Update(ctx, id, updates)
}

// Delete removes a post by id.
func (s *BlogService) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return apperr.Validation("id is required")
	}
	return s.posts.Delete(ctx, id)
}

// UploadHeaderImage writes an inline image to the local static directory with the header profile.
func (s *BlogService) UploadHeaderImage(ctx context.Context, image, filename string) (string, error) {
	if strings.TrimSpace(image) == "" {
		return "", apperr.Validation("image is required")
	}
	if !strings.HasPrefix(strings.TrimSpace(image), "data:") {
		return "", apperr.Invalid("image must be a base64 data URL", nil)
	}

	hint := strings.TrimSpace(filename)
	if dot := strings.LastIndex(hint, "."); dot > 0 {
		hint = hint[:dot]
	}
	result, err := s.local.Ingest(ctx, IngestRequest{
		Source:  image,
		Profile: imaging.ProfileHeader,
		Bucket:  localBlogBucket,
		Prefix:  blogKeyPrefix,
		Hint:    hint,
		Upsert:  true,
	})
	if err != nil {
		return "", err
	}
	return result.URL, nil
}

// CopyToCanonical re-hosts a blog image in the blog-images bucket unless it is already there
// or is a site-local asset.
func (s *BlogService) CopyToCanonical(ctx context.Context, source, hint string) (CopyResult, error) {
	if strings.TrimSpace(hint) == "" {
		hint = hintFromURL(strings.TrimSpace(source))
	}
	result, err := s.canonical.Ingest(ctx, IngestRequest{
		Source:  source,
		Profile: imaging.ProfileHeader,
		Bucket:  s.bucket,
		Prefix:  blogKeyPrefix,
		Hint:    hint,
		Upsert:  true,
	})
	if err != nil {
		return CopyResult{}, err
	}
	return CopyResult{URL: result.URL, Copied: result.Copied, LocalAsset: result.LocalAsset}, nil
}

// Slugify lowercases s and collapses every run of characters outside [a-z0-9] into one hyphen.
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// RenderFAQBlock renders the FAQ section appended to a post body, preserving order.
func RenderFAQBlock(faqs []db.FAQ) (string, error) {
	var b strings.Builder
	b.WriteString(`<div class="faq-section"><h2>Frequently Asked Questions</h2>`)
	for i, faq := range faqs {
		question := strings.TrimSpace(faq.Question)
		answer := strings.TrimSpace(faq.Answer)
		if question == "" || answer == "" {
			return "", apperr.Validation(fmt.Sprintf("faq %d needs a question and an answer", i+1))
		}

		var rendered bytes.Buffer
		if err := faqMarkdown.Convert([]byte(answer), &rendered); err != nil {
			return "", apperr.Invalid(fmt.Sprintf("faq %d answer could not be rendered", i+1), err)
		}
		// rendered answers are block markup and must not sit inside a <p>.
		body := strings.TrimSpace(string(faqAnswerPolicy.SanitizeBytes(rendered.Bytes())))

		b.WriteString(`<div class="faq-item"><h3>`)
		b.WriteString(faqQuestionPolicy.Sanitize(question))
		b.WriteString(`</h3><div class="faq-answer">`)
		b.WriteString(body)
		b.WriteString(`</div></div>`)
	}
	b.WriteString(`</div>`)
	return b.String(), nil
}

func convertJSON(value any, dst any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
