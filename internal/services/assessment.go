package services

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Assessment is the gamemaster's ruling on a player action: an odds label
// plus narration hints for each branch.
type Assessment struct {
	Odds           string `json:"odds"`
	SuccessMessage string `json:"success_message"`
	FailureMessage string `json:"failure_message"`
}

// ParseAssessment extracts the assessment JSON from a meta response. Models
// sometimes wrap the object in a code fence or prose; the parser takes the
// outermost braces.
func ParseAssessment(content string) (*Assessment, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in assessment response: %q", content)
	}

	var a Assessment
	if err := json.Unmarshal([]byte(content[start:end+1]), &a); err != nil {
		return nil, fmt.Errorf("failed to parse assessment: %w", err)
	}
	if a.Odds == "" {
		return nil, fmt.Errorf("assessment missing odds")
	}
	return &a, nil
}
