package config

// DomainConfig holds placement and presentation tunables for response nodes
type DomainConfig struct {
	// Offset of the response node relative to the trigger node's bottom edge
	ResponseOffsetX float64
	ResponseOffsetY float64

	// Initial extent of the response node
	ResponseNodeWidth  float64
	ResponseNodeHeight float64

	// Placeholder text shown while the completion streams in
	LoadingText string

	// Label written on the trigger→response edge
	EdgeLabel string

	// Upper bound on prompt length accepted at submission time
	MaxPromptLength int
}

// DefaultDomainConfig returns the configuration used when the host supplies
// no overrides
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		ResponseOffsetX:    0,
		ResponseOffsetY:    150,
		ResponseNodeWidth:  400,
		ResponseNodeHeight: 300,
		LoadingText:        "⏳ AI 正在思考中...",
		EdgeLabel:          "AI",
		MaxPromptLength:    20000,
	}
}
