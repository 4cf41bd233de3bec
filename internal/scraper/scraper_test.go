package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/browser/browsertest"
	"github.com/ibeckermayer/selectbot/internal/types"
)

func newTestScraper(page *browsertest.Page) *Scraper {
	s := New(page, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestMyPosts(t *testing.T) {
	page := browsertest.New()
	page.Content = profileHTML
	page.Show(ContentReady[0])

	posts, err := newTestScraper(page).MyPosts(context.Background(), "@alice", 5)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "https://x.com/alice", page.URL)
	assert.True(t, page.Called("scroll 800"))
	assert.Equal(t, "https://x.com/alice/status/111", posts[0].URL)
	assert.Equal(t, "https://x.com/alice/status/"+posts[1].ID, posts[1].URL, "missing links are synthesized")
}

func TestMyPostsRequiresHandle(t *testing.T) {
	_, err := newTestScraper(browsertest.New()).MyPosts(context.Background(), " ", 5)
	assert.ErrorIs(t, err, types.ErrNotConnected)
}

func TestMyPostsNavigationFailure(t *testing.T) {
	page := browsertest.New()
	page.Errors["navigate"] = types.ErrNavigation

	_, err := newTestScraper(page).MyPosts(context.Background(), "alice", 5)
	assert.ErrorIs(t, err, types.ErrNavigation)
}

func TestMyPostsProceedsWithoutReadyElements(t *testing.T) {
	page := browsertest.New()
	page.Content = profileHTML

	posts, err := newTestScraper(page).MyPosts(context.Background(), "alice", 1)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.True(t, page.Called("wait "+ContentReady[1]), "falls through the readiness chain")
}

func TestComments(t *testing.T) {
	page := browsertest.New()
	page.Content = threadHTML
	page.Show(ContentReady[0])

	comments, err := newTestScraper(page).Comments(context.Background(), "https://x.com/alice/status/111", 20)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
	assert.True(t, page.Called("scroll 1500"))
}

func TestCommentsFallsBackToTextHeuristic(t *testing.T) {
	page := browsertest.New()
	page.Content = `<html><body><div lang="en">Loving this update, the new dashboard is much faster</div></body></html>`

	comments, err := newTestScraper(page).Comments(context.Background(), "https://x.com/alice/status/111", 20)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "@TwitterUser1", comments[0].Author)
}

func TestCommentsSnapshotFailure(t *testing.T) {
	page := browsertest.New()
	boom := errors.New("target closed")
	page.Errors["html"] = boom

	_, err := newTestScraper(page).Comments(context.Background(), "https://x.com/alice/status/111", 20)
	assert.ErrorIs(t, err, boom)
}

func TestCurrentHandle(t *testing.T) {
	page := browsertest.New()
	page.URL = "https://x.com/home"
	page.Content = `<html><body><nav><a data-testid="AppTabBar_Profile_Link" href="/alice">Profile</a></nav></body></html>`

	handle, err := newTestScraper(page).CurrentHandle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", handle)

	t.Run("falls back to the url", func(t *testing.T) {
		page := browsertest.New()
		page.URL = "https://x.com/bob/with_replies"
		page.Content = "<html><body></body></html>"

		handle, err := newTestScraper(page).CurrentHandle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "bob", handle)
	})

	t.Run("home without profile link", func(t *testing.T) {
		page := browsertest.New()
		page.URL = "https://x.com/home"

		handle, err := newTestScraper(page).CurrentHandle(context.Background())
		require.NoError(t, err)
		assert.Empty(t, handle)
	})
}
