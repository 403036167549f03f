package models

import "time"

// CommentWeight is how many likes a single comment is worth when ranking
// historical posts.
const CommentWeight = 10

type MediaKind string

const (
	MediaImage    MediaKind = "IMAGE"
	MediaVideo    MediaKind = "VIDEO"
	MediaCarousel MediaKind = "CAROUSEL_ALBUM"
	MediaText     MediaKind = "TEXT"
)

// SourcePost is a historical post pulled from the platform. It is never
// modified after ingestion.
type SourcePost struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	PostedAt     time.Time `json:"posted_at"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	MediaKind    MediaKind `json:"media_kind"`
}

func (p SourcePost) Engagement() int {
	return p.LikeCount + p.CommentCount*CommentWeight
}

// PostPage is one page of the platform's post listing. An empty NextCursor
// means there are no further pages.
type PostPage struct {
	Posts      []SourcePost
	NextCursor string
}

// PostMetrics are the raw engagement counters of a published post.
type PostMetrics struct {
	Likes    int
	Comments int
	Shares   int
	Saves    int
}
