package catalog

// Tool keys. These appear in usage log rows, so renaming one is a data
// migration, not just a code change.
const (
	ToolSummarizer    = "summarizer"
	ToolEmailWriter   = "email_writer"
	ToolMarketingCopy = "marketing_copy"
	ToolActionPlan    = "action_plan"
)

// ToolDefinition describes a generative text tool and its credit cost.
type ToolDefinition struct {
	Key         string
	Name        string
	Description string
	Cost        int64
}

var tools = []ToolDefinition{
	{
		Key:         ToolSummarizer,
		Name:        "Summarizer",
		Description: "Turn long text into key points.",
		Cost:        5,
	},
	{
		Key:         ToolEmailWriter,
		Name:        "Email Writer",
		Description: "Write professional emails with tone control.",
		Cost:        8,
	},
	{
		Key:         ToolMarketingCopy,
		Name:        "Marketing Copy",
		Description: "Generate product descriptions and ad copy.",
		Cost:        10,
	},
	{
		Key:         ToolActionPlan,
		Name:        "Action Plan Generator",
		Description: "Turn meeting notes into decisions, action items, and next steps.",
		Cost:        6,
	},
}

var toolsByKey = buildToolIndex()

func buildToolIndex() map[string]ToolDefinition {
	index := make(map[string]ToolDefinition, len(tools))
	for _, t := range tools {
		index[t.Key] = t
	}
	return index
}

// ToolByKey looks up a tool definition by its key.
func ToolByKey(key string) (ToolDefinition, bool) {
	t, ok := toolsByKey[key]
	return t, ok
}

// Tools returns all tool definitions in display order.
func Tools() []ToolDefinition {
	return append([]ToolDefinition(nil), tools...)
}
