package story

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/storylinehq/storyline/internal/store"
)

// Voice selects the phrasing of fallback answers: the chat endpoint speaks
// to the client ("your activity"), the query endpoint speaks to the tenant
// about the client ("this user's activity").
type Voice int

const (
	VoiceFirstPerson Voice = iota
	VoiceThirdPerson
)

const fallbackDateLayout = "2006-01-02"

// fallbackNarrative composes a deterministic narrative from an event window.
// Same window in, byte-identical text out. The window must be non-empty.
func fallbackNarrative(events []store.Event) string {
	sorted := make([]store.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EventAt < sorted[j].EventAt
	})

	// The public ingest path only admits the enumerated kinds, but the
	// internal generate path takes action strings verbatim, so the breakdown
	// must cover every action present: enumerated kinds first, then extras in
	// first-seen order, so the per-action counts always sum to the total.
	counts := make(map[store.Action]int)
	var extraActions []store.Action
	var eventTypes []string
	seenTypes := make(map[string]bool)
	for _, e := range sorted {
		if counts[e.Action] == 0 && !store.ValidAction(string(e.Action)) {
			extraActions = append(extraActions, e.Action)
		}
		counts[e.Action]++
		if !seenTypes[e.Event] {
			seenTypes[e.Event] = true
			eventTypes = append(eventTypes, e.Event)
		}
	}

	first := sorted[0]
	last := sorted[len(sorted)-1]

	var b strings.Builder
	b.WriteString("User Activity Summary:\n\n")
	fmt.Fprintf(&b, "This user has been active from %s to %s, with a total of %d recorded activities.\n\n",
		formatDate(first.EventAt), formatDate(last.EventAt), len(sorted))

	b.WriteString("Activity Breakdown:\n")
	for _, action := range []store.Action{store.ActionCreate, store.ActionUpdate, store.ActionDelete, store.ActionOther} {
		if n := counts[action]; n > 0 {
			fmt.Fprintf(&b, "- %s actions: %d\n", titleAction(action), n)
		}
	}
	for _, action := range extraActions {
		fmt.Fprintf(&b, "- %s actions: %d\n", titleAction(action), counts[action])
	}

	fmt.Fprintf(&b, "\nEvent Types: %s\n\n", strings.Join(eventTypes, ", "))

	b.WriteString("Recent Activity:\n")
	recent := sorted
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	for _, e := range recent {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", formatDate(e.EventAt), e.Event, e.EventDetails)
	}

	return b.String()
}

func formatDate(unixMilli int64) string {
	return time.UnixMilli(unixMilli).UTC().Format(fallbackDateLayout)
}

func titleAction(a store.Action) string {
	s := string(a)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// fallbackAnswer routes a question to a canned response by keyword. Matching
// is first-match-wins over a fixed ordered list of keyword groups.
func fallbackAnswer(narrative, question string, voice Voice) string {
	if strings.TrimSpace(narrative) == "" {
		return "I don't have enough activity data for this user yet. As they use the application more, " +
			"I'll be able to provide better insights about their behavior and answer questions about their activity patterns."
	}

	q := strings.ToLower(question)

	switch {
	case containsAny(q, "activity", "what", "summary"):
		if voice == VoiceFirstPerson {
			return "Based on the available data, here's what I can tell you about your activity:\n\n" + truncate(narrative, 500)
		}
		return "Based on the available data, here's what I can tell you about this user's activity:\n\n" + truncate(narrative, 500)

	case containsAny(q, "when", "time"):
		if voice == VoiceFirstPerson {
			return "I can see activity patterns in your history, but for specific timing questions, " +
				"you might want to check the detailed activity logs. Your activity shows: " + truncate(narrative, 300)
		}
		return "I can see activity patterns in the user story, but for specific timing questions, " +
			"you might want to check the detailed activity logs. The user story shows: " + truncate(narrative, 300)

	case containsAny(q, "how many", "count"):
		if voice == VoiceFirstPerson {
			return "For specific counts and metrics, I'd recommend checking the detailed analytics. " +
				"Based on your activity, I can see various actions, but exact numbers would be in the raw activity data."
		}
		return "For specific counts and metrics, I'd recommend checking the detailed analytics. " +
			"Based on the user story, I can see various activities, but exact numbers would be in the raw activity data."

	default:
		if voice == VoiceFirstPerson {
			return "I can help answer questions about your activity patterns. Here's your current activity summary:\n\n" +
				truncate(narrative, 400) + "\n\nCould you be more specific about what you'd like to know?"
		}
		return "I can help answer questions about this user's activity patterns. Here's their current activity summary:\n\n" +
			truncate(narrative, 400) + "\n\nCould you be more specific about what you'd like to know?"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
