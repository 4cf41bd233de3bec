package browser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/config"
)

func TestPollSucceedsAfterAttempts(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), PollOptions{Interval: time.Millisecond, Timeout: time.Second},
		func(context.Context) (bool, error) {
			calls++
			return calls == 3, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPollTimeout(t *testing.T) {
	err := Poll(context.Background(), PollOptions{Interval: time.Millisecond, Timeout: 20 * time.Millisecond},
		func(context.Context) (bool, error) { return false, nil })
	assert.ErrorIs(t, err, ErrPollTimeout)
}

func TestPollPropagatesCheckError(t *testing.T) {
	boom := errors.New("boom")
	err := Poll(context.Background(), PollOptions{Interval: time.Millisecond, Timeout: time.Second},
		func(context.Context) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestPollHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Poll(ctx, PollOptions{Interval: time.Hour}, func(context.Context) (bool, error) { return false, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollReportsProgress(t *testing.T) {
	var reported []int
	calls := 0
	err := Poll(context.Background(), PollOptions{
		Interval:      time.Millisecond,
		Timeout:       time.Second,
		ProgressEvery: 2,
		OnProgress:    func(attempts int, _ time.Duration) { reported = append(reported, attempts) },
	}, func(context.Context) (bool, error) {
		calls++
		return calls == 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, reported)
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), 0))
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options(config.BrowserConfig{Headless: true})
	assert.Greater(t, len(opts), len(chromedp.DefaultExecAllocatorOptions))

	visible := Options(config.BrowserConfig{Headless: false})
	assert.Equal(t, len(opts)-1, len(visible), "headless adds disable-gpu")
}

func TestBuildFindScript(t *testing.T) {
	script := buildFindScript([]string{`input[name="text"]`, `text="Next"`}, true, "tok-1")

	assert.Contains(t, script, `["input[name=\"text\"]","text=\"Next\""]`)
	assert.Contains(t, script, `, true, "tok-1")`)
	assert.Contains(t, script, `el.setAttribute('data-sb-target', token)`)
	assert.NotContains(t, script, "%!")
}

func TestBuildClearAndAssignScripts(t *testing.T) {
	assert.True(t, strings.HasSuffix(buildClearScript(`[data-sb-target="x"]`), `("[data-sb-target=\"x\"]")`))
	assert.Contains(t, buildAssignScript("https://x.com/a'b"), `location.assign("https://x.com/a'b")`)
	assert.Equal(t, `[data-sb-target="abc"]`, TargetSelector("abc"))
}

func TestSessionNotStarted(t *testing.T) {
	s := NewSession(config.BrowserConfig{}, zap.NewNop())
	_, err := s.Location(context.Background())
	assert.ErrorIs(t, err, errNotStarted)
	assert.False(t, s.Visible(context.Background(), "body"))
	assert.NoError(t, s.Close())
}
