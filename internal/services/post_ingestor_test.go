package services

import (
	"context"
	"errors"
	"testing"
	"time"
	"voiceloop/internal/models"
	"voiceloop/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIngestor(client *testutil.MockPlatform) *PostIngestor {
	return NewPostIngestor(testConfig(), client, &testutil.MockLogger{}).(*PostIngestor)
}

func TestIngest_PaginatesUntilLastPage(t *testing.T) {
	p1, p2, p3 := makePosts("a", 40), makePosts("b", 40), makePosts("c", 5)
	client := &testutil.MockPlatform{Pages: map[string]*models.PostPage{
		"":   {Posts: p1, NextCursor: "c1"},
		"c1": {Posts: p2, NextCursor: "c2"},
		"c2": {Posts: p3},
	}}

	posts, err := newIngestor(client).Ingest(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, posts, 85)

	expected := append(append(append([]models.SourcePost{}, p1...), p2...), p3...)
	assert.Equal(t, expected, posts)
	require.Len(t, client.ListCalls, 3)
	assert.Equal(t, "c2", client.ListCalls[2].Cursor)
}

func TestIngest_StopsAtMaxCount(t *testing.T) {
	client := &testutil.MockPlatform{Pages: map[string]*models.PostPage{
		"":   {Posts: makePosts("a", 40), NextCursor: "c1"},
		"c1": {Posts: makePosts("b", 40), NextCursor: "c2"},
		"c2": {Posts: makePosts("c", 40)},
	}}

	posts, err := newIngestor(client).Ingest(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, posts, 50)
	assert.Len(t, client.ListCalls, 2)
	assert.Equal(t, 10, client.ListCalls[1].Limit)
}

func TestIngest_SpacesPageRequests(t *testing.T) {
	const delay = 80 * time.Millisecond
	conf := testConfig()
	conf.Ingest.RequestDelay = delay
	client := &testutil.MockPlatform{Pages: map[string]*models.PostPage{
		"":   {Posts: makePosts("a", 5), NextCursor: "c1"},
		"c1": {Posts: makePosts("b", 5), NextCursor: "c2"},
		"c2": {Posts: makePosts("c", 5)},
	}}
	ingestor := NewPostIngestor(conf, client, &testutil.MockLogger{})

	posts, err := ingestor.Ingest(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, posts, 15)

	require.Len(t, client.ListCalls, 3)
	for i := 1; i < len(client.ListCalls); i++ {
		gap := client.ListCalls[i].At.Sub(client.ListCalls[i-1].At)
		// the limiter may release a few milliseconds early
		assert.True(t, gap >= delay-10*time.Millisecond, "gap before page %d was %s", i, gap)
	}
}

func TestIngest_SkipsPostsWithoutText(t *testing.T) {
	page := makePosts("a", 3)
	page[1].Text = "   "
	client := &testutil.MockPlatform{Pages: map[string]*models.PostPage{"": {Posts: page}}}

	posts, err := newIngestor(client).Ingest(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "a-0", posts[0].ID)
	assert.Equal(t, "a-2", posts[1].ID)
}

func TestIngest_ListingFailureAborts(t *testing.T) {
	cause := errors.New("token expired")
	client := &testutil.MockPlatform{
		Pages:    map[string]*models.PostPage{"": {Posts: makePosts("a", 40), NextCursor: "c1"}},
		PageErrs: map[string]error{"c1": cause},
	}

	posts, err := newIngestor(client).Ingest(context.Background(), 100)
	assert.Nil(t, posts)

	var ingestErr *IngestionError
	require.True(t, errors.As(err, &ingestErr))
	assert.Equal(t, StageIngest, ingestErr.Stage)
	assert.True(t, errors.Is(err, cause))
}

func TestIngest_EmptyCorpusIsAnError(t *testing.T) {
	client := &testutil.MockPlatform{Pages: map[string]*models.PostPage{"": {}}}

	_, err := newIngestor(client).Ingest(context.Background(), 10)
	var ingestErr *IngestionError
	assert.True(t, errors.As(err, &ingestErr))
}

func TestIngest_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &testutil.MockPlatform{Pages: map[string]*models.PostPage{"": {Posts: makePosts("a", 5)}}}
	_, err := newIngestor(client).Ingest(ctx, 10)

	var ingestErr *IngestionError
	assert.True(t, errors.As(err, &ingestErr))
	assert.Empty(t, client.ListCalls)
}
