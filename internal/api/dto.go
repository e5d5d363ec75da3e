package api

import (
	"github.com/starford/quire/internal/locale"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/postservice"
)

// PostSummaryDTO is a list entry with the public URL of the post page.
type PostSummaryDTO struct {
	models.PostSummary
	URL string `json:"url" example:"/en/hello-world" validate:"required"`
}

// PostListResponse wraps one page of posts.
type PostListResponse struct {
	Posts      []PostSummaryDTO `json:"posts" validate:"required"`
	HasNext    bool             `json:"hasNext" example:"true"`
	NextOffset int              `json:"nextOffset" example:"10"`
}

// PostDetailDTO is the full post response.
type PostDetailDTO struct {
	postservice.PostDetail
	URL string `json:"url" example:"/hello-world" validate:"required"`
}

// TagListResponse wraps tag counts.
type TagListResponse struct {
	Tags []models.Tag `json:"tags" validate:"required"`
}

// SearchHitDTO is a single search hit in the API response.
type SearchHitDTO struct {
	postservice.SearchHit
	URL string `json:"url" example:"/hello-world" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchHitDTO `json:"results" validate:"required"`
}

// ReloadResponse lists what a reload changed.
type ReloadResponse struct {
	Changes []postservice.Change `json:"changes" validate:"required"`
}

func summaryDTOs(posts []models.PostSummary, defaultLocale string) []PostSummaryDTO {
	out := make([]PostSummaryDTO, len(posts))
	for i, p := range posts {
		out[i] = PostSummaryDTO{PostSummary: p, URL: locale.PostPath(p.ID, p.Locale, defaultLocale)}
	}
	return out
}

func searchDTOs(hits []postservice.SearchHit, defaultLocale string) []SearchHitDTO {
	out := make([]SearchHitDTO, len(hits))
	for i, h := range hits {
		out[i] = SearchHitDTO{SearchHit: h, URL: locale.PostPath(h.ID, h.Locale, defaultLocale)}
	}
	return out
}
