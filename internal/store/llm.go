package store

import (
	"time"
)

// LLMExchange represents a prompt/response pair for caching
type LLMExchange struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"` // e.g. "deepseek"
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
}

// SaveLLMExchange writes exchange to the llm step directory.
// Returns the path to the saved file.
func (c *Cache) SaveLLMExchange(exchange LLMExchange) (string, error) {
	if exchange.Timestamp.IsZero() {
		exchange.Timestamp = time.Now()
	}
	return SaveStepOutput(c, StepLLM, exchange)
}
