package server

import (
	"context"
	"errors"
	"strings"

	"github.com/ibeckermayer/selectbot/internal/browser"
	"github.com/ibeckermayer/selectbot/internal/types"
)

const (
	msgNotConnected      = "Not connected"
	msgReplyNotConnected = "Bot not connected. Please reconnect your Twitter bot first."
	msgReplyPosted       = "Reply posted successfully! 🎉"
)

// friendlyPostError turns a failed reply into a message for the dashboard
func friendlyPostError(err error) string {
	var siteErr *types.SiteError
	switch {
	case errors.Is(err, types.ErrNavigation):
		return "Could not load the tweet page. Please check the tweet URL and try again."
	case errors.Is(err, types.ErrReplyButton):
		return "This tweet does not allow replies, or replies are restricted."
	case errors.Is(err, types.ErrTextArea):
		return "Could not access the reply interface. Please try again in a moment."
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, browser.ErrPollTimeout),
		strings.Contains(strings.ToLower(err.Error()), "timeout"):
		return "Twitter page took too long to load. Please check your connection and try again."
	case errors.Is(err, types.ErrNotConnected):
		return "Bot connection lost. Please reconnect your Twitter bot."
	case errors.As(err, &siteErr):
		return siteErr.Error()
	}
	return "Failed to post reply"
}
