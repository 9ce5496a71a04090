package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/internal/services"
	"github.com/jwebster45206/narrative-engine/internal/storage"
	"github.com/jwebster45206/narrative-engine/pkg/actor"
	"github.com/jwebster45206/narrative-engine/pkg/chat"
	"github.com/jwebster45206/narrative-engine/pkg/outcome"
	"github.com/jwebster45206/narrative-engine/pkg/prompts"
	"github.com/jwebster45206/narrative-engine/pkg/scenario"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("a turn is already in flight for this session")
)

const (
	defaultHistoryLimit = 20

	// maxGenerations bounds the generate/process loop within one turn so a
	// model that keeps emitting requests cannot spin forever.
	maxGenerations = 4
)

// Engine drives turns: it assesses the player's action, runs the generative
// loop, applies structured requests through the processor, and persists the
// session. One ProcessTurn call owns its session end to end, so history
// pairs are always appended atomically.
type Engine struct {
	llm          services.LLMService
	store        storage.Storage
	resolver     *outcome.Resolver
	rng          *rand.Rand
	logger       *slog.Logger
	historyLimit int
}

func New(llm services.LLMService, store storage.Storage, rng *rand.Rand, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		llm:          llm,
		store:        store,
		resolver:     outcome.NewResolver(rng),
		rng:          rng,
		logger:       logger,
		historyLimit: defaultHistoryLimit,
	}
}

// NewSession creates and persists a session for the given scenario file,
// seeding the scenario's characters.
func (e *Engine) NewSession(ctx context.Context, scenarioFile string) (*state.Session, error) {
	s, err := e.store.GetScenario(ctx, scenarioFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}

	world := state.NewWorldState(s)
	registry := actor.NewRegistry(s.ArchetypeConfig(), e.rng)
	for _, seed := range s.Characters {
		if _, err := registry.Create(actor.CreateParams{
			ID:           seed.ID,
			Name:         seed.Name,
			Description:  seed.Description,
			Archetype:    seed.Archetype,
			Location:     seed.Location,
			Traits:       seed.Traits,
			Inventory:    seed.Inventory,
			InitialTrust: seed.Trust,
			Following:    seed.Following,
		}); err != nil {
			return nil, fmt.Errorf("failed to seed character %s: %w", seed.ID, err)
		}
	}

	session := state.NewSession(s.FileName, world)
	session.Characters = registry.Snapshot()

	if err := e.store.SaveSession(ctx, session.ID, session); err != nil {
		return nil, err
	}

	e.logger.Info("Created session",
		"session_id", session.ID,
		"scenario", s.FileName,
		"characters", registry.Len())
	return session, nil
}

// GetSession loads a session, failing with ErrSessionNotFound when missing.
func (e *Engine) GetSession(ctx context.Context, id uuid.UUID) (*state.Session, error) {
	session, err := e.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession removes a session from storage.
func (e *Engine) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return e.store.DeleteSession(ctx, id)
}

// ProcessTurn runs one full player turn against a session. Turns on the same
// session are serialized: a second call while one is in flight fails with
// ErrSessionBusy.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID uuid.UUID, input string) (*chat.TurnResponse, error) {
	token, err := e.store.AcquireTurnLock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire turn lock: %w", err)
	}
	if token == "" {
		return nil, ErrSessionBusy
	}
	defer func() {
		if err := e.store.ReleaseTurnLock(ctx, sessionID, token); err != nil {
			e.logger.Error("Failed to release turn lock", "session_id", sessionID, "error", err.Error())
		}
	}()

	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s, err := e.store.GetScenario(ctx, session.Scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}

	registry := actor.NewRegistry(s.ArchetypeConfig(), e.rng)
	registry.Restore(session.Characters)
	index := state.NewLocationIndex(registry, s)
	world := session.World

	processor := state.NewProcessor(world, registry, index, e.logger).
		WithSummarizer(&metaSummarizer{llm: e.llm})

	// Narrative turns pass through the gamemaster gate; dialogue is
	// conversation and always proceeds.
	tc := state.TurnContext{}
	outcomeHint := ""
	if !world.Mode.IsDialogue() {
		assessment := e.assess(ctx, world, s, registry, input)
		tc, outcomeHint = e.resolve(assessment)
	}

	e.recordUserInput(session, registry, input)

	var (
		turnText    string
		lastControl = state.Continue
	)

	for i := 0; i < maxGenerations; i++ {
		inDialogue := world.Mode.IsDialogue()

		messages, err := e.buildMessages(world, s, registry, session, outcomeHint)
		if err != nil {
			return nil, err
		}
		outcomeHint = "" // only the first generation gets the hint

		result, err := e.llm.Generate(ctx, messages, prompts.ToolsForMode(world.Mode))
		if err != nil {
			return nil, fmt.Errorf("generation failed: %w", err)
		}

		e.recordAgentOutput(session, registry, world, result, inDialogue)
		if result.Text != "" {
			if turnText != "" {
				turnText += "\n\n"
			}
			turnText += result.Text
		}

		if result.Request == nil {
			break
		}

		res := processor.Process(ctx, result, tc)
		lastControl = res.Control

		// The result message follows its request immediately, in the same
		// history the request was recorded in.
		resultMsg := chat.ChatMessage{
			Role:      chat.ChatRoleUser,
			Content:   res.Feedback,
			ResultFor: result.Request.ID,
		}
		if inDialogue {
			session.AppendDialogue(resultMsg)
		} else {
			session.AppendNarrative(resultMsg)
		}

		if inDialogue && !world.Mode.IsDialogue() {
			// Dialogue just ended; its content lives on as the summary.
			session.ResetDialogueHistory()
		}

		if res.Control == state.StopTurn {
			break
		}
	}

	e.expireStatuses(registry)

	placeholders := ""
	if !world.Mode.IsDialogue() && lastControl != state.StopTurn && turnText != "" {
		placeholders = e.placeholder(ctx, turnText)
	}

	world.LastInput = input
	session.Characters = registry.Snapshot()
	if err := e.store.SaveSession(ctx, session.ID, session); err != nil {
		return nil, err
	}

	resp := &chat.TurnResponse{
		SessionID:    session.ID,
		Text:         turnText,
		Placeholders: placeholders,
		Mode:         world.Mode.String(),
	}
	if partner, ok := world.Mode.Partner(); ok {
		resp.Partner = partner
	}
	return resp, nil
}

// recordUserInput appends the player's input to the active history and, in
// dialogue, to the partner's memory.
func (e *Engine) recordUserInput(session *state.Session, registry *actor.Registry, input string) {
	msg := chat.ChatMessage{Role: chat.ChatRoleUser, Content: input}
	if partner, ok := session.World.Mode.Partner(); ok {
		session.AppendDialogue(msg)
		if err := registry.AddDialogue(partner, actor.DialogueEntry{Speaker: "player", Utterance: input}); err != nil {
			e.logger.Warn("Failed to record player utterance", "character_id", partner, "error", err.Error())
		}
		return
	}
	session.AppendNarrative(msg)
}

// recordAgentOutput appends the generation to the history it was produced
// in, carrying the request for pairing, and mirrors spoken text into the
// partner's memory.
func (e *Engine) recordAgentOutput(session *state.Session, registry *actor.Registry, world *state.WorldState, result *chat.GenerateResult, inDialogue bool) {
	msg := chat.ChatMessage{
		Role:    chat.ChatRoleAgent,
		Content: result.Text,
		Request: result.Request,
	}
	if inDialogue {
		session.AppendDialogue(msg)
		if partner, ok := world.Mode.Partner(); ok && result.Text != "" {
			if err := registry.AddDialogue(partner, actor.DialogueEntry{Speaker: partner, Utterance: result.Text}); err != nil {
				e.logger.Warn("Failed to record partner utterance", "character_id", partner, "error", err.Error())
			}
		}
		return
	}
	session.AppendNarrative(msg)
}

func (e *Engine) buildMessages(world *state.WorldState, s *scenario.Scenario, registry *actor.Registry, session *state.Session, outcomeHint string) ([]chat.ChatMessage, error) {
	builder := prompts.New().
		WithWorld(world).
		WithScenario(s).
		WithRegistry(registry).
		WithHistory(session.ActiveHistory()).
		WithHistoryLimit(e.historyLimit).
		WithOutcomeHint(outcomeHint)

	if partner, ok := world.Mode.Partner(); ok {
		c, err := registry.Get(partner)
		if err != nil {
			return nil, fmt.Errorf("dialogue partner missing: %w", err)
		}
		builder = builder.WithPartner(c)
	}

	return builder.Build()
}

// assess asks the gamemaster model to rate the attempted action. Any failure
// degrades to Accept so a flaky meta model cannot block play.
func (e *Engine) assess(ctx context.Context, world *state.WorldState, s *scenario.Scenario, registry *actor.Registry, input string) *services.Assessment {
	accept := &services.Assessment{Odds: outcome.OddsAccept}

	messages, err := prompts.AssessmentMessages(world, s, registry, input)
	if err != nil {
		e.logger.Warn("Failed to build assessment prompt", "error", err.Error())
		return accept
	}
	content, err := e.llm.Meta(ctx, messages)
	if err != nil {
		e.logger.Warn("Assessment call failed, accepting action", "error", err.Error())
		return accept
	}
	assessment, err := services.ParseAssessment(content)
	if err != nil {
		e.logger.Warn("Unparseable assessment, accepting action", "error", err.Error())
		return accept
	}
	return assessment
}

// resolve draws against the assessed odds and prepares the turn context plus
// the narrator's outcome hint.
func (e *Engine) resolve(assessment *services.Assessment) (state.TurnContext, string) {
	succeeded, err := e.resolver.Resolve(assessment.Odds)
	if err != nil {
		e.logger.Warn("Invalid odds label, accepting action", "odds", assessment.Odds)
		return state.TurnContext{}, ""
	}

	if assessment.Odds == outcome.OddsAccept {
		return state.TurnContext{}, ""
	}

	e.logger.Debug("Resolved action outcome", "odds", assessment.Odds, "succeeded", succeeded)
	tc := state.TurnContext{ActionFailed: !succeeded, SkipOnFailure: true}
	if succeeded {
		return tc, fmt.Sprintf(prompts.OutcomeSuccessTemplate, assessment.SuccessMessage)
	}
	return tc, fmt.Sprintf(prompts.OutcomeFailureTemplate, assessment.FailureMessage)
}

// expireStatuses ticks every character's temporary statuses down one turn.
func (e *Engine) expireStatuses(registry *actor.Registry) {
	for _, c := range registry.All() {
		removed, err := registry.DecrementStatuses(c.ID)
		if err != nil {
			continue
		}
		if len(removed) > 0 {
			e.logger.Debug("Statuses expired", "character_id", c.ID, "statuses", removed)
		}
	}
}

// placeholder asks the meta model for image placeholder text. Failures
// degrade to an empty placeholder.
func (e *Engine) placeholder(ctx context.Context, sceneText string) string {
	text, err := e.llm.Meta(ctx, prompts.PlaceholderMessages(sceneText))
	if err != nil {
		e.logger.Warn("Placeholder generation failed", "error", err.Error())
		return ""
	}
	return text
}

// metaSummarizer adapts the meta model to the processor's Summarizer.
type metaSummarizer struct {
	llm services.LLMService
}

func (m *metaSummarizer) Summarize(ctx context.Context, partnerName string, entries []actor.DialogueEntry) (string, error) {
	return m.llm.Meta(ctx, prompts.SummarizationMessages(partnerName, entries))
}
