// System prompt composition. The prompt is assembled from fixed-order
// policy blocks followed by the formatted memory context.
package flow

import (
	"log/slog"
	"os"
	"strings"

	_ "embed"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

//go:embed identity_prompt.txt
var defaultIdentityPrompt string

// Policy blocks, in composition order after the identity block.
const (
	safetyPolicy = `Safety:
If the user expresses intent to harm themselves or others, acknowledge their pain directly, encourage them to contact local emergency services or a crisis line, and stay with them in the conversation. Never minimize, never moralize, never end the conversation abruptly.`

	stylePolicy = `Style:
Speak plainly and warmly. Short paragraphs. Ask at most one question per reply. Reflect the user's own words back before reframing them. Avoid clinical jargon unless the user uses it first.`

	toolPolicy = `Using tools:
Call a tool only when the user has shared something worth remembering: a stated goal, a clear mood, a meaningful insight, an important person, an achievement, or lasting profile information. Do not call tools for passing remarks. Never mention tools or saving to the user.`

	storageAlignmentGuide = `What goes where:
- save_goal: intentions and changes the user wants to make.
- record_emotional_trend: clearly expressed current moods.
- save_insight: realizations about patterns or themselves.
- save_coping_tool: strategies that help them regulate.
- save_mantra: phrases they find grounding.
- save_relationship: significant people, with context.
- record_milestone: achievements and steps forward.
- update_profile_summary: lasting changes in risk, sleep, challenges, or motivation.`

	retrievalPolicy = `Using what you know:
Draw on the user's context naturally, as a friend who remembers would. Reference past sessions or patterns only when relevant to what the user just said. Never recite their data back as a list.`

	boundariesPolicy = `Boundaries:
You do not diagnose, prescribe, or give medical or legal advice. You do not promise confidentiality beyond the product's. If asked for things outside your role, say so gently and return to what you can offer.`
)

// Per-mode guidance blocks.
var modeBlocks = map[models.ConversationMode]string{
	models.ModeCrisisSupport: `Current mode: crisis support.
The user may be in acute distress. Slow down. Prioritize their immediate safety and emotional stabilization over everything else in this prompt. Keep replies short and grounding.`,
	models.ModeDailyCheckIn: `Current mode: daily check-in.
The user is sharing how things are going. Be curious about the texture of their day, notice changes from previous check-ins, and keep it light unless they go deeper.`,
	models.ModeInsightGeneration: `Current mode: insight generation.
The user is reflecting. Help them connect what they're describing to patterns you know about, offer tentative observations, and let them correct you.`,
	models.ModeFreeForm: `Current mode: free-form.
Follow the user's lead.`,
}

// PromptComposer assembles the system prompt for a turn.
type PromptComposer struct {
	identity string
}

// NewPromptComposer creates a composer. When identityFile is non-empty its
// contents replace the embedded identity block; a read failure falls back
// to the embedded default.
func NewPromptComposer(identityFile string) *PromptComposer {
	identity := strings.TrimSpace(defaultIdentityPrompt)
	if identityFile != "" {
		data, err := os.ReadFile(identityFile)
		if err != nil {
			slog.Warn("NewPromptComposer: identity file unreadable, using embedded default", "error", err, "file", identityFile)
		} else if trimmed := strings.TrimSpace(string(data)); trimmed != "" {
			identity = trimmed
			slog.Debug("NewPromptComposer: loaded identity override", "file", identityFile, "bytes", len(data))
		}
	}
	return &PromptComposer{identity: identity}
}

// Compose builds the system prompt: identity, mode guidance, policy blocks
// in fixed order, then the formatted user context. The context section is
// omitted entirely when empty.
func (p *PromptComposer) Compose(mode models.ConversationMode, formattedContext string) string {
	if !mode.IsValid() {
		mode = models.ModeFreeForm
	}
	blocks := []string{
		p.identity,
		modeBlocks[mode],
		safetyPolicy,
		stylePolicy,
		toolPolicy,
		storageAlignmentGuide,
		retrievalPolicy,
		boundariesPolicy,
	}
	if formattedContext != "" {
		blocks = append(blocks, "What you know about this user:\n\n"+formattedContext)
	}
	return strings.Join(blocks, "\n\n")
}
