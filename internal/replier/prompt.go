package replier

import (
	"fmt"
	"regexp"
	"strings"
)

const promptTemplate = `You are replying to a comment on your Twitter post. Here are the details:

YOUR ORIGINAL POST:
"%s"

COMMENT TO REPLY TO:
Author: %s
Comment: "%s"

INSTRUCTIONS:
%s

Generate a thoughtful, engaging reply that follows the instructions above. Keep it under 280 characters and make it natural for Twitter. Only return the reply text, nothing else.`

// Models like to wrap the reply in quotes
var wrappingQuote = regexp.MustCompile(`^["']|["']$`)

// BuildPrompt creates the completion prompt for replying to one comment
func BuildPrompt(postText, commentAuthor, commentText, instructions string) string {
	return fmt.Sprintf(promptTemplate, postText, commentAuthor, commentText, instructions)
}

// CleanReply trims the model output and strips one wrapping quote at each end
func CleanReply(reply string) string {
	reply = strings.TrimSpace(reply)
	return strings.TrimSpace(wrappingQuote.ReplaceAllString(reply, ""))
}
