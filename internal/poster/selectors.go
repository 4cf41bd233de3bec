package poster

// X.com reply-flow selectors, tried in order. "text=" entries match on
// visible text.

var (
	ReplyButtons = []string{
		`[data-testid="reply"]`,
		`[aria-label*="Reply"]`,
		`[role="button"][aria-label*="reply" i]`,
		`text=Reply`,
		`[data-testid="reply"] div[role="button"]`,
	}

	TextAreas = []string{
		`[data-testid="tweetTextarea_0"]`,
		`[data-testid="tweetTextarea_1"]`,
		`div[contenteditable="true"][aria-label*="reply" i]`,
		`div[contenteditable="true"][aria-label*="Tweet" i]`,
		`div[contenteditable="true"][data-testid*="textInput"]`,
		`div[role="textbox"][contenteditable="true"]`,
		`textarea[placeholder*="reply" i]`,
		`div[aria-label*="compose" i][contenteditable="true"]`,
	}

	// Must also be enabled; X disables the button while the text is invalid
	PostButtons = []string{
		`[data-testid="tweetButtonInline"]`,
		`[data-testid="tweetButton"]`,
		`text=Reply`,
		`text=Post`,
		`[aria-label*="Reply" i][role="button"]`,
		`[data-testid*="reply"][data-testid*="Button"]`,
	}

	Alerts = []string{`[role="alert"], [data-testid*="error"]`}
)

const (
	PostContent = `[data-testid="tweet"], article[role="article"]`
	ReplyDialog = `[role="dialog"], [data-testid*="modal"]`
)
