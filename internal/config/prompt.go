package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// FallbackSystemPrompt primes conversations when the prompt file is unusable.
const FallbackSystemPrompt = "You are a helpful assistant."

// LoadSystemPrompt reads the system prompt from path. Any failure is logged
// and the fallback prompt is returned, so the result is never empty.
func LoadSystemPrompt(path string, logger *log.Logger) string {
	prompt, err := readSystemPrompt(path)
	if err != nil {
		logger.Error("system prompt unavailable, using fallback", "path", path, "err", err)
		return FallbackSystemPrompt
	}
	return prompt
}

func readSystemPrompt(path string) (string, error) {
	content, err := os.ReadFile(path) // #nosec G304 - path comes from config
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}

	prompt := string(content)
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("system prompt %s is empty", path)
	}
	return prompt, nil
}
