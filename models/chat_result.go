package models

// ChatResult is the final outcome of a chat request. The caller always receives
// a well-formed result: on generation failure Success is false and Error is set,
// never a partial or fabricated answer.
type ChatResult struct {
	Success bool     `json:"success"`
	Answer  string   `json:"answer,omitempty"`
	Sources []Source `json:"sources"`
	Error   string   `json:"error,omitempty"`
}
