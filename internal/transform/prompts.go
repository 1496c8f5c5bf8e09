// AngelaMos | 2026
// prompts.go

package transform

import (
	"regexp"
	"strings"

	"github.com/carterperez-dev/promptcraft/internal/usage"
)

const rewriteSystemPrompt = `You are a professional prompt rewriting assistant. Rewrite the user's prompt into this exact structure:

You are a [ROLE].

Task:
[TASK]

Context:
[BACKGROUND / INPUT / CONSTRAINTS]

Objective:
[WHAT A GOOD ANSWER SHOULD ACHIEVE]

Format:
[OUTPUT STRUCTURE]

Rules:
- [RULE 1]
- [RULE 2]
- [RULE 3]

If something is unclear, ask clarifying questions before answering.

Keep the original intent. Infer reasonable values for sections the prompt leaves out.
Return ONLY the rewritten prompt, with no label such as "Improved Prompt:" or "Rewritten:".`

const grammarSystemPrompt = `You are a professional grammar and spelling correction assistant. Correct grammar, spelling and punctuation, and improve clarity while keeping the original meaning, tone and structure.
Return ONLY the corrected text, with no label such as "Corrected:" or "Grammarized:".`

const emailSystemPrompt = `You are a professional email formatting assistant. Turn the given content into a grammatically correct, professional email with this structure and blank lines between sections:

Subject: [Clear and concise subject line]

Dear [Recipient Name/Title],

[Opening paragraph]

[Body paragraph(s)]

[Closing paragraph]

Best regards,
[Your Name]

Keep the original intent and key information.
Return ONLY the formatted email, with no label such as "Formatted Email:" or "Email:".`

var systemPrompts = map[usage.Action]string{
	usage.ActionRewrite:     rewriteSystemPrompt,
	usage.ActionGrammarize:  grammarSystemPrompt,
	usage.ActionFormatEmail: emailSystemPrompt,
}

// Models sometimes echo a heading before the answer despite being told not
// to. Each label is accepted plain or wrapped in markdown bold.
var labels = map[usage.Action][]string{
	usage.ActionRewrite: {
		"Improved Prompt", "Rewritten Prompt", "Rewritten", "Enhanced Prompt",
	},
	usage.ActionGrammarize: {
		"Corrected Text", "Grammarized", "Corrected",
	},
	usage.ActionFormatEmail: {
		"Formatted Email", "Email", "Formatted",
	},
}

var labelPatterns = compileLabels(labels)

func compileLabels(in map[usage.Action][]string) map[usage.Action][]*regexp.Regexp {
	out := make(map[usage.Action][]*regexp.Regexp, len(in))
	for action, names := range in {
		patterns := make([]*regexp.Regexp, 0, len(names)*2)
		for _, name := range names {
			quoted := regexp.QuoteMeta(name)
			patterns = append(patterns,
				regexp.MustCompile(`(?i)^\*\*`+quoted+`:\*\*\s*`),
				regexp.MustCompile(`(?i)^`+quoted+`:\s*`),
			)
		}
		out[action] = patterns
	}
	return out
}

// Clean trims the completion and strips any leading label for action.
// Patterns run in order, so at most one label of each form is removed.
func Clean(action usage.Action, text string) string {
	cleaned := strings.TrimSpace(text)
	for _, re := range labelPatterns[action] {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}
