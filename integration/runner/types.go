package runner

import (
	"time"

	"github.com/google/uuid"
)

// TestSuite defines a complete integration test scenario.
// Can either be a regular test with Steps, or a suite that references other Cases.
type TestSuite struct {
	Name     string     `json:"name"`
	Scenario string     `json:"scenario,omitempty"` // Used for regular tests
	Steps    []TestStep `json:"steps,omitempty"`    // Used for regular tests
	Cases    []string   `json:"cases,omitempty"`    // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single turn and its expected outcomes.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	UserPrompt   string       `json:"user_prompt"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes.
type Expectations struct {
	// Session state - aligned with pkg/state
	Location  *string           `json:"location,omitempty"`
	Mode      *string           `json:"mode,omitempty"`    // "narrative" or "dialogue"
	Partner   *string           `json:"partner,omitempty"` // dialogue partner id
	Inventory []string          `json:"inventory,omitempty"`
	Flags     map[string]string `json:"flags,omitempty"`
	Chapter   *int              `json:"chapter,omitempty"`
	// Character locations (character id -> location key)
	CharacterLocations map[string]string `json:"character_locations,omitempty"`

	// Response analysis
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
	ResponseMinLength   *int     `json:"response_min_length,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // ID of the session used for this test
}
