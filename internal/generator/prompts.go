package generator

import (
	"fmt"
	"strings"

	"github.com/draftforge/draftforge/internal/catalog"
)

// buildPrompt wraps the user input in the instruction template for the
// given tool. Unknown tool keys pass the input through untouched; the
// gateway validates tool keys before calling the generator, so this is a
// fallback rather than an error.
func buildPrompt(toolKey, input string) string {
	text := strings.TrimSpace(input)

	switch toolKey {
	case catalog.ToolSummarizer:
		return fmt.Sprintf(`Summarize the text below into:
- 5 bullet key points
- 3 action items
- 1 short TL;DR line

Text:
"""%s"""`, text)

	case catalog.ToolEmailWriter:
		return fmt.Sprintf(`Write a professional email based on the request below.
Return ONLY the email body.

Request:
"""%s"""`, text)

	case catalog.ToolMarketingCopy:
		return fmt.Sprintf(`Write marketing copy based on the details below:
- 1 headline
- 1 subheadline
- 5 benefit bullets
- 1 short CTA

Details:
"""%s"""`, text)

	case catalog.ToolActionPlan:
		return fmt.Sprintf(`You are an assistant that converts meeting notes into a clean action plan.

Return in this exact format:

1) Summary (3 bullets)
2) Decisions (bullets)
3) Action items (checkbox list). Each item must include:
   - Owner (if unknown, write "Unassigned")
   - Due date (if unknown, write "No date")
4) Risks / blockers (bullets)
5) Next meeting agenda (bullets)

Meeting notes:
"""%s"""`, text)

	default:
		return text
	}
}
