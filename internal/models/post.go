// Package models defines the domain types for Quire.
package models

import "slices"

// Post is one article: metadata, body and derived fields.
type Post struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Content      string   `json:"content"`
	PublishedAt  int64    `json:"publishedAt"` // Unix milliseconds
	ThumbnailURL *string  `json:"thumbnailURL"`
	Tags         []string `json:"tags"`
	Locale       string   `json:"locale"`
	Checksum     string   `json:"-"`
}

// PostSummary is a Post without its body, used by list views.
type PostSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PublishedAt  int64    `json:"publishedAt"`
	ThumbnailURL *string  `json:"thumbnailURL"`
	Tags         []string `json:"tags"`
	Locale       string   `json:"locale"`
}

// Summary returns the list projection of p. It shares no memory with p.
func (p *Post) Summary() PostSummary {
	return PostSummary{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		PublishedAt:  p.PublishedAt,
		ThumbnailURL: CloneString(p.ThumbnailURL),
		Tags:         slices.Clone(p.Tags),
		Locale:       p.Locale,
	}
}

// Clone returns a deep copy of p.
func (p *Post) Clone() *Post {
	cp := *p
	cp.ThumbnailURL = CloneString(p.ThumbnailURL)
	cp.Tags = slices.Clone(p.Tags)
	return &cp
}

// CloneString copies the string behind s. A nil s stays nil.
func CloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Tag is a tag name with the number of posts carrying it.
type Tag struct {
	Name          string `json:"name"`
	NumberOfPosts int    `json:"numberOfPosts"`
}
