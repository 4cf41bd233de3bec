package scraper

// X.com DOM selectors
// These are isolated here because X changes their DOM frequently
// Update these when scraping breaks
//
// Every chain is tried in order; the first entry that matches wins.
// "text=" entries match on visible text rather than CSS.

var (
	// Post containers on profile and thread pages
	PostContainers = []string{
		`[data-testid="tweet"]`,
		`article[role="article"]`,
		`[data-testid="cellInnerDiv"]`,
		`div[role="article"]`,
	}

	// Post text inside a container
	PostText = []string{
		`[data-testid="tweetText"]`,
		`[lang] span`,
		`span[dir="ltr"]`,
		`div[lang] span`,
		`.css-901oao`,
	}

	// Reply text inside a container; div[lang] keeps emoji-only replies
	ReplyText = []string{
		`[data-testid="tweetText"]`,
		`[lang] span`,
		`span[dir="ltr"]`,
		`div[lang]`,
		`.css-901oao`,
	}

	PostLink = []string{
		`a[href*="/status/"]`,
		`time[datetime] a`,
		`a[role="link"][href*="/status/"]`,
	}

	AuthorLink = []string{
		`[data-testid="User-Name"] [href^="/"]`,
		`[data-testid="User-Names"] a`,
		`a[href^="/"][role="link"]`,
		`[dir="ltr"] a[href^="/"]`,
		`a[href^="/"]`,
	}

	// Primary content readiness, tried in order when a page loads
	ContentReady = []string{
		`[data-testid="tweet"]`,
		`article, [role="article"], [data-testid="cellInnerDiv"]`,
	}
)

const (
	// Side nav link to the logged-in user's profile; its href is "/<handle>"
	ProfileLink = `a[data-testid="AppTabBar_Profile_Link"]`

	PostTimestamp = `time[datetime]`
	StatusPath    = "/status/"
)
