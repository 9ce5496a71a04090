package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/pkg/chat"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running narrative-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	ScenarioOverride  string // If set, overrides the scenario for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 3 * time.Minute},
		ErrorHandlingMode: ErrorHandlingContinue,
		Logger:            func(format string, args ...interface{}) {},
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence.
// Returns a list of actual test suites (expanded from the sequence if needed).
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite against a fresh session.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	scenarioFile := suite.Scenario
	if r.ScenarioOverride != "" {
		scenarioFile = r.ScenarioOverride
	}

	session, err := r.createSession(ctx, scenarioFile)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.Session = session.ID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, session.ID, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep sends one turn and checks expectations against the response and the
// refreshed session.
func (r *Runner) runStep(ctx context.Context, sessionID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{
		StepName: step.Name,
	}

	turnResp, err := r.sendTurn(ctx, sessionID, step.UserPrompt)
	if err != nil {
		result.Error = fmt.Errorf("failed to send turn: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	result.ResponseText = turnResp.Text

	session, err := r.getSession(ctx, sessionID)
	if err != nil {
		result.Error = fmt.Errorf("failed to get session after turn: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	if err := checkExpectations(step.Expectations, session, turnResp); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) createSession(ctx context.Context, scenarioFile string) (*state.Session, error) {
	body, err := json.Marshal(map[string]string{"scenario": scenarioFile})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.BaseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("create session returned %d: %s", resp.StatusCode, string(data))
	}

	var session state.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func (r *Runner) sendTurn(ctx context.Context, sessionID uuid.UUID, input string) (*chat.TurnResponse, error) {
	body, err := json.Marshal(chat.TurnRequest{Input: input})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/sessions/%s/turn", r.BaseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("turn returned %d: %s", resp.StatusCode, string(data))
	}

	var turnResp chat.TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&turnResp); err != nil {
		return nil, fmt.Errorf("failed to decode turn response: %w", err)
	}
	return &turnResp, nil
}

func (r *Runner) getSession(ctx context.Context, sessionID uuid.UUID) (*state.Session, error) {
	url := fmt.Sprintf("%s/v1/sessions/%s", r.BaseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get session returned %d: %s", resp.StatusCode, string(data))
	}

	var session state.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// checkExpectations validates the test expectations against the post-turn
// session and the turn response.
func checkExpectations(exp Expectations, session *state.Session, turnResp *chat.TurnResponse) error {
	if exp.Location != nil {
		if session.World.Location != *exp.Location {
			return fmt.Errorf("expected location %s, got %s", *exp.Location, session.World.Location)
		}
	}

	if exp.Mode != nil {
		if turnResp.Mode != *exp.Mode {
			return fmt.Errorf("expected mode %s, got %s", *exp.Mode, turnResp.Mode)
		}
	}

	if exp.Partner != nil {
		if turnResp.Partner != *exp.Partner {
			return fmt.Errorf("expected partner %s, got %s", *exp.Partner, turnResp.Partner)
		}
	}

	// Full inventory check (order independent)
	if len(exp.Inventory) > 0 {
		expected := make(map[string]bool)
		for _, item := range exp.Inventory {
			expected[item] = true
		}

		actual := make(map[string]bool)
		for _, item := range session.World.Inventory {
			actual[item] = true
		}

		for expectedItem := range expected {
			if !actual[expectedItem] {
				return fmt.Errorf("expected inventory to contain '%s', but it's missing. Actual inventory: %v", expectedItem, session.World.Inventory)
			}
		}
		for actualItem := range actual {
			if !expected[actualItem] {
				return fmt.Errorf("inventory contains unexpected item '%s'. Expected: %v, Actual: %v", actualItem, exp.Inventory, session.World.Inventory)
			}
		}
	}

	if len(exp.Flags) > 0 {
		for key, expectedValue := range exp.Flags {
			actualValue, exists := session.World.Flags[key]
			if !exists {
				return fmt.Errorf("expected flag %s to be set, but it doesn't exist", key)
			}
			if actualValue != expectedValue {
				return fmt.Errorf("expected flag %s to be %s, got %s", key, expectedValue, actualValue)
			}
		}
	}

	if exp.Chapter != nil {
		if session.World.Chapter != *exp.Chapter {
			return fmt.Errorf("expected chapter %d, got %d", *exp.Chapter, session.World.Chapter)
		}
	}

	if len(exp.CharacterLocations) > 0 {
		byID := make(map[string]string)
		for _, c := range session.Characters {
			byID[c.ID] = c.Location
		}
		for id, expectedLocation := range exp.CharacterLocations {
			actualLocation, exists := byID[id]
			if !exists {
				return fmt.Errorf("expected character %s to exist, but it doesn't", id)
			}
			if actualLocation != expectedLocation {
				return fmt.Errorf("expected character %s to be at %s, got %s", id, expectedLocation, actualLocation)
			}
		}
	}

	if len(exp.ResponseContains) > 0 {
		lowerResponse := strings.ToLower(turnResp.Text)
		for _, expectedText := range exp.ResponseContains {
			if !strings.Contains(lowerResponse, strings.ToLower(expectedText)) {
				return fmt.Errorf("expected response to contain '%s', but it didn't", expectedText)
			}
		}
	}

	if len(exp.ResponseNotContains) > 0 {
		lowerResponse := strings.ToLower(turnResp.Text)
		for _, unexpectedText := range exp.ResponseNotContains {
			if strings.Contains(lowerResponse, strings.ToLower(unexpectedText)) {
				return fmt.Errorf("expected response to NOT contain '%s', but it did", unexpectedText)
			}
		}
	}

	if exp.ResponseRegex != "" {
		matched, err := regexp.MatchString(exp.ResponseRegex, turnResp.Text)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("response didn't match regex pattern: %s", exp.ResponseRegex)
		}
	}

	if exp.ResponseMinLength != nil {
		if len(turnResp.Text) < *exp.ResponseMinLength {
			return fmt.Errorf("expected response length >= %d, got %d", *exp.ResponseMinLength, len(turnResp.Text))
		}
	}

	return nil
}
