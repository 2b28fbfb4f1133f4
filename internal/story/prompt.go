package story

import (
	"fmt"
	"strings"
	"time"

	"github.com/storylinehq/storyline/internal/store"
)

// narrativePrompt embeds the chronologically-ordered event window into the
// synthesis prompt.
func narrativePrompt(events []store.Event) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("- %s: %s - %s (%s)",
			e.Timestamp().Format(time.RFC3339),
			strings.ToUpper(string(e.Action)),
			e.Event,
			e.EventDetails,
		))
	}

	return `You are an AI assistant that creates comprehensive user activity summaries based on application logs.

Activity Logs:
` + strings.Join(lines, "\n") + `

Please create a comprehensive user story that:
1. Summarizes the user's journey and activities chronologically
2. Identifies patterns in user behavior
3. Highlights key actions and milestones
4. Provides insights into user engagement
5. Uses natural, flowing language that tells a story

The story should be informative yet concise, focusing on the user's experience and behavior patterns. Write it as a narrative that could help understand this user's interaction with the application.

User Story:`
}

// answerPrompt combines the stored narrative with a free-form question. The
// first-person voice addresses the client directly; the third-person voice
// reports on the client to the tenant.
func answerPrompt(narrative, question string, voice Voice) string {
	if voice == VoiceFirstPerson {
		return `You are an AI assistant that answers questions about user activity based on their comprehensive activity story. You should provide helpful, contextual responses that help users understand their behavior patterns and activity history.

User Activity Story:
` + narrative + `

User's Question: ` + question + `

Please provide a helpful, conversational response based on the user's activity data. If the question cannot be fully answered from the available activity data, acknowledge what information is available and provide what insights you can. Keep your response:

1. Conversational and friendly
2. Focused on the user's specific question
3. Based on factual information from their activity story
4. Helpful and actionable when possible
5. Concise but informative

Response:`
	}

	return `You are an AI assistant that answers questions about user activity based on their activity story.

User Activity Story:
` + narrative + `

User's Question: ` + question + `

Please provide a helpful, contextual response based on the user's activity data. If the question cannot be answered from the available activity data, politely explain what information is available and suggest how the user might get the answer they're looking for.

Keep your response conversational, informative, and focused on the user's specific question. Use insights from their activity pattern to provide valuable context.

Response:`
}
