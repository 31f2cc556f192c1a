package engage

import "strings"

// Engagement reasons, in the priority order they are assigned. The first
// matching category claims the reason; later matches still contribute to
// the score but never overwrite it.
const (
	ReasonNone             = "none"
	ReasonQuestion         = "question"
	ReasonTechnical        = "technical"
	ReasonDiscussion       = "discussion"
	ReasonGreeting         = "greeting"
	ReasonActiveDiscussion = "active_discussion"
)

// defaultRespondThreshold backs Analysis.ShouldRespond. The responder
// gates on the per-project threshold instead; this flag is kept for
// interface parity only.
const defaultRespondThreshold = 0.5

// Analysis is the scorer's verdict for one trigger message.
type Analysis struct {
	// Score is the engagement score, clamped to [0, 1].
	Score float64 `json:"score"`

	// Reason is the first signal category that matched.
	Reason string `json:"reason"`

	// ShouldRespond is Score >= 0.5. Vestigial: the responder applies
	// the project's configurable threshold, not this flag.
	ShouldRespond bool `json:"should_respond"`
}

// Signal vocabularies. Matching is substring-based on the lowercased
// trigger text, so entries like "hi " and " vs " carry their spaces.
var (
	technicalKeywords = []string{
		"error", "bug", "issue", "problem", "help", "how to",
		"deploy", "build", "code", "api", "database", "fix",
		"broken", "not working", "crash", "fail",
		// Collaboration & code review
		"implement", "refactor", "optimize", "review", "feedback",
		"design", "architecture",
		// Proactive assistance
		"wondering", "confused", "stuck", "anyone know", "does anyone",
		"best way to", "better way",
		// Decision making
		"which one", "option", "choice", "pros and cons", "trade-off",
		" vs ",
	}

	discussionKeywords = []string{
		"what do you think", "ideas", "suggestions", "approach",
		"should we", "thoughts", "opinions", "recommend",
	}

	greetingKeywords = []string{
		"hello", "hi ", "hi!", "hey", "hii", "hiii", "hellooo",
		"hey there",
	}

	socialKeywords = []string{
		"lol", "haha", "birthday", "congrats", "thanks", "thank you",
		"good morning", "good night", "bye",
	}
)

// Score decides how strongly the agent should engage with the trigger
// message of c. Pure and deterministic: same context, same analysis.
//
// The score is additive across signal categories with a final clamp to
// [0, 1]. The reason is first-write-wins in the order question →
// technical → discussion → greeting → active_discussion; the social
// penalty never sets a reason.
func Score(c Context) Analysis {
	score := 0.0
	reason := ReasonNone

	text := strings.ToLower(c.Trigger.Text)

	// Direct question.
	if strings.Contains(text, "?") {
		score += 0.4
		reason = ReasonQuestion
	}

	if containsAny(text, technicalKeywords) {
		score += 0.3
		if reason == ReasonNone {
			reason = ReasonTechnical
		}
	}

	if containsAny(text, discussionKeywords) {
		score += 0.3
		if reason == ReasonNone {
			reason = ReasonDiscussion
		}
	}

	if containsAny(text, greetingKeywords) {
		score += 0.6
		if reason == ReasonNone {
			reason = ReasonGreeting
		}
	}

	// Social chatter dampens the score regardless of reason.
	if containsAny(text, socialKeywords) {
		score -= 0.5
	}

	// Active discussion: three or more humans talking in the last five
	// messages with the agent silent gets a boost.
	recentHumans := 0
	start := len(c.Entries) - 5
	if start < 0 {
		start = 0
	}
	for _, e := range c.Entries[start:] {
		if !e.IsFromAgent {
			recentHumans++
		}
	}

	var last *Entry
	if n := len(c.Entries); n > 0 {
		last = &c.Entries[n-1]
	}

	if recentHumans >= 3 && (last == nil || !last.IsFromAgent) {
		score += 0.2
		if reason == ReasonNone {
			reason = ReasonActiveDiscussion
		}
	}

	// Back-to-back damping: applies only when the newest window entry is
	// agent-authored. A direct follow-up question right after the agent
	// spoke is exempt; three or more messages between the trigger and the
	// agent's previous message soften the penalty from -0.3 to -0.1.
	if sinceAgent, agentLast := messagesSinceAgent(c); agentLast {
		switch {
		case strings.Contains(text, "?") && sinceAgent == 0:
			// Direct follow-up question, no penalty.
		case sinceAgent >= 3:
			score -= 0.1
		default:
			score -= 0.3
		}
	}

	score = clamp01(score)

	return Analysis{
		Score:         score,
		Reason:        reason,
		ShouldRespond: score >= defaultRespondThreshold,
	}
}

// messagesSinceAgent reports whether the newest window entry is
// agent-authored and, if so, how many messages separate the trigger from
// the agent's previous message. With no agent message before the trigger
// the distance is zero.
func messagesSinceAgent(c Context) (int, bool) {
	n := len(c.Entries)
	if n == 0 || !c.Entries[n-1].IsFromAgent {
		return 0, false
	}

	triggerIdx := -1
	for i := len(c.MessageIDs) - 1; i >= 0; i-- {
		if c.MessageIDs[i] == c.TriggerMessageID {
			triggerIdx = i
			break
		}
	}

	count := 0
	for i := triggerIdx - 1; i >= 0; i-- {
		if c.Entries[i].IsFromAgent {
			return count, true
		}
		count++
	}
	return 0, true
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
