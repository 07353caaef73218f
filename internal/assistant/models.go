package assistant

// Answer sources, recorded alongside each assistant history row.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Answer is one assistant reply plus where it came from.
type Answer struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}
