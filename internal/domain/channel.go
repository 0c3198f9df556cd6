package domain

// ChannelConfig is the resolved configuration of one archived channel.
// Immutable once loaded; one instance per channel for the process lifetime.
type ChannelConfig struct {
	ID               string
	StorePath        string // path to the channel's SQLite archive
	Model            string // chat model name for this channel
	MaxContextLength int    // prompt context budget in characters
	MaxResults       int    // ranking cutoff
	SystemPrompt     string // empty means the service default
}
