package domain

// CompletionRequest is what the answer service hands to the language-model
// provider boundary.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	ContextText  string
	Question     string
}
