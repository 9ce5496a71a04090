package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/narrative-engine/pkg/actor"
	"github.com/jwebster45206/narrative-engine/pkg/chat"
)

// Control tells the orchestrator whether to keep driving the turn after a
// request has been handled.
type Control int

const (
	// Continue lets the turn proceed (record the result, resume generation).
	Continue Control = iota
	// StopTurn ends processing for this turn after the result is recorded.
	StopTurn
)

func (c Control) String() string {
	if c == StopTurn {
		return "stop_turn"
	}
	return "continue"
}

// TurnContext carries per-turn facts the processor needs but does not own.
type TurnContext struct {
	// ActionFailed is true when the outcome resolver ruled the player's
	// attempted action a failure this turn.
	ActionFailed bool

	// SkipOnFailure marks state updates that only make sense if the action
	// succeeded. It gates update_state requests only; dialogue transitions
	// and character effects always apply.
	SkipOnFailure bool
}

// RequestOutcome records what happened to one action request, for logging and
// for the paired result message in history.
type RequestOutcome struct {
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
	Detail  string `json:"detail,omitempty"`
}

// Result is the processor's verdict on a generate result: feedback text to
// record as the request's result message, and whether the turn continues.
type Result struct {
	Feedback string
	Control  Control
	Outcome  *RequestOutcome
}

// Summarizer condenses a dialogue history into a short narrative summary.
// It is consulted on dialogue exit; failures degrade to skipping the summary.
type Summarizer interface {
	Summarize(ctx context.Context, partnerName string, entries []actor.DialogueEntry) (string, error)
}

// Processor applies structured action requests to session state. It validates
// every request against the current mode and world before mutating anything;
// a rejected request leaves state untouched and reports in-fiction feedback.
type Processor struct {
	world      *WorldState
	registry   *actor.Registry
	index      *LocationIndex
	summarizer Summarizer
	logger     *slog.Logger
}

func NewProcessor(world *WorldState, registry *actor.Registry, index *LocationIndex, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		world:    world,
		registry: registry,
		index:    index,
		logger:   logger,
	}
}

// WithSummarizer attaches a dialogue summarizer. Without one, dialogue exits
// skip the summary step.
func (p *Processor) WithSummarizer(s Summarizer) *Processor {
	p.summarizer = s
	return p
}

// Process handles the structured request attached to a generate result. A
// result with no request is a no-op that lets the turn continue.
func (p *Processor) Process(ctx context.Context, gr *chat.GenerateResult, tc TurnContext) Result {
	if gr == nil || gr.Request == nil {
		return Result{Control: Continue}
	}
	req := gr.Request

	var res Result
	switch req.Name {
	case RequestStartDialogue:
		res = p.startDialogue(req)
	case RequestEndDialogue:
		res = p.endDialogue(ctx, req)
	case RequestUpdateState:
		res = p.updateState(req, tc)
	case RequestCreateCharacter:
		res = p.createCharacter(req)
	case RequestExchangeItem:
		res = p.exchangeItem(req)
	case RequestUpdateRelationship:
		res = p.updateRelationship(req)
	default:
		p.logger.Warn("Rejecting unknown action request",
			"name", req.Name,
			"request_id", req.ID)
		res = Result{
			Feedback: fmt.Sprintf("(The request %q is not recognized and was ignored.)", req.Name),
			Control:  StopTurn,
			Outcome:  &RequestOutcome{Name: req.Name, Detail: "unknown request"},
		}
	}

	p.logger.Debug("Processed action request",
		"name", req.Name,
		"request_id", req.ID,
		"applied", res.Outcome == nil || res.Outcome.Applied,
		"control", res.Control.String())
	return res
}

func (p *Processor) startDialogue(req *chat.ActionRequest) Result {
	var params StartDialogueParams
	if err := json.Unmarshal(req.Input, &params); err != nil || params.CharacterID == "" {
		return p.reject(req, "malformed input",
			"(You look around, but it's unclear who you meant to address.)")
	}

	if partner, ok := p.world.Mode.Partner(); ok {
		if partner == params.CharacterID {
			return p.reject(req, "already in dialogue with this partner",
				"(You are already talking with them.)")
		}
		return p.reject(req, "already in dialogue",
			"(You are already in a conversation. End it before starting another.)")
	}

	c, err := p.registry.Get(params.CharacterID)
	if err != nil {
		return p.reject(req, "unknown character",
			"(There is no one by that name here.)")
	}
	if c.Location != p.world.Location {
		p.logger.Warn("Rejecting start_dialogue for absent character",
			"character_id", c.ID,
			"character_location", c.Location,
			"player_location", p.world.Location)
		return p.reject(req, "character not present",
			fmt.Sprintf("(%s is not here.)", c.Name))
	}

	p.world.Mode = Dialogue(c.ID)
	return Result{
		Feedback: fmt.Sprintf("(You begin a conversation with %s.)", c.Name),
		Control:  StopTurn,
		Outcome:  &RequestOutcome{Name: req.Name, Applied: true, Detail: c.ID},
	}
}

func (p *Processor) endDialogue(ctx context.Context, req *chat.ActionRequest) Result {
	partner, ok := p.world.Mode.Partner()
	if !ok {
		return p.reject(req, "not in dialogue",
			"(There is no conversation to end.)")
	}

	c, err := p.registry.Get(partner)
	if err != nil {
		// The partner record vanished out from under the mode. Recover by
		// dropping back to narrative.
		p.logger.Error("Dialogue partner missing from registry", "character_id", partner)
		p.world.Mode = Narrative()
		return Result{
			Feedback: "(The conversation ends.)",
			Control:  StopTurn,
			Outcome:  &RequestOutcome{Name: req.Name, Applied: true, Detail: "partner missing"},
		}
	}

	p.summarizeDialogue(ctx, c)
	p.world.Mode = Narrative()
	return Result{
		Feedback: fmt.Sprintf("(The conversation with %s ends.)", c.Name),
		Control:  StopTurn,
		Outcome:  &RequestOutcome{Name: req.Name, Applied: true, Detail: c.ID},
	}
}

// summarizeDialogue condenses the partner's dialogue history into the rolling
// world summary. Summarizer failures are logged and the summary is skipped;
// the mode transition must not hinge on a generative call.
func (p *Processor) summarizeDialogue(ctx context.Context, c *actor.Character) {
	if p.summarizer == nil || len(c.Dialogue) == 0 {
		return
	}
	summary, err := p.summarizer.Summarize(ctx, c.Name, c.Dialogue)
	if err != nil {
		p.logger.Warn("Dialogue summarization failed, skipping summary",
			"character_id", c.ID,
			"error", err.Error())
		return
	}
	if summary == "" {
		return
	}
	p.world.AppendSummary(fmt.Sprintf("[Summary of conversation with %s: %s]", c.Name, summary))
}

func (p *Processor) updateState(req *chat.ActionRequest, tc TurnContext) Result {
	if tc.SkipOnFailure && tc.ActionFailed {
		p.logger.Info("Skipping state update after failed action", "request_id", req.ID)
		return Result{
			Feedback: "(Nothing changes.)",
			Control:  Continue,
			Outcome:  &RequestOutcome{Name: req.Name, Detail: "skipped: action failed"},
		}
	}

	var params UpdateStateParams
	if err := json.Unmarshal(req.Input, &params); err != nil {
		return p.reject(req, "malformed input", "(Nothing changes.)")
	}

	var applied, rejected []string

	if params.Location != "" {
		if !p.index.KnownLocation(params.Location) {
			p.logger.Warn("Rejecting move to unknown location", "location", params.Location)
			rejected = append(rejected, fmt.Sprintf("location %q is unknown", params.Location))
		} else if params.Location != p.world.Location {
			p.world.Location = params.Location
			applied = append(applied, "location="+params.Location)
			if moved := p.index.PropagateFollow(params.Location); len(moved) > 0 {
				applied = append(applied, "followers="+strings.Join(moved, ","))
			}
		}
	}

	if params.TimeOfDay != "" {
		p.world.TimeOfDay = params.TimeOfDay
		applied = append(applied, "time_of_day="+params.TimeOfDay)
	}

	for _, item := range params.InventoryAdd {
		p.world.AddItem(item)
		applied = append(applied, "+"+item)
	}
	for _, item := range params.InventoryRemove {
		if p.world.RemoveItem(item) {
			applied = append(applied, "-"+item)
		} else {
			rejected = append(rejected, fmt.Sprintf("player has no %q", item))
		}
	}

	for k, v := range params.FlagsSet {
		if p.world.Flags == nil {
			p.world.Flags = make(map[string]string)
		}
		p.world.Flags[k] = v
		applied = append(applied, "flag:"+k)
	}
	for _, k := range params.FlagsClear {
		delete(p.world.Flags, k)
		applied = append(applied, "unflag:"+k)
	}

	if params.AdvanceChapter {
		p.world.Chapter++
		applied = append(applied, fmt.Sprintf("chapter=%d", p.world.Chapter))
	}

	for _, r := range rejected {
		p.logger.Warn("Rejected state update field", "reason", r, "request_id", req.ID)
	}

	// Feedback must not claim success for rejected fields: the model treats
	// the result text as ground truth for what the world now looks like.
	var feedback string
	switch {
	case len(applied) == 0 && len(rejected) == 0:
		feedback = "(Nothing changes.)"
	case len(applied) == 0:
		feedback = fmt.Sprintf("(Nothing changes: %s.)", strings.Join(rejected, "; "))
	case len(rejected) == 0:
		feedback = "(State updated.)"
	default:
		feedback = fmt.Sprintf("(State updated, except: %s.)", strings.Join(rejected, "; "))
	}

	detail := strings.Join(applied, " ")
	if len(rejected) > 0 {
		if detail != "" {
			detail += " "
		}
		detail += "rejected: " + strings.Join(rejected, "; ")
	}

	return Result{
		Feedback: feedback,
		Control:  Continue,
		Outcome: &RequestOutcome{
			Name:    req.Name,
			Applied: len(applied) > 0,
			Detail:  detail,
		},
	}
}

func (p *Processor) createCharacter(req *chat.ActionRequest) Result {
	var params CreateCharacterParams
	if err := json.Unmarshal(req.Input, &params); err != nil || params.Archetype == "" {
		return Result{
			Feedback: "(No one new arrives.)",
			Control:  Continue,
			Outcome:  &RequestOutcome{Name: req.Name, Detail: "malformed input"},
		}
	}

	location := params.Location
	if location == "" {
		location = p.world.Location
	}
	if !p.index.KnownLocation(location) {
		p.logger.Warn("Rejecting character creation at unknown location", "location", location)
		return Result{
			Feedback: "(No one new arrives.)",
			Control:  Continue,
			Outcome:  &RequestOutcome{Name: req.Name, Detail: "unknown location: " + location},
		}
	}

	c, err := p.registry.Generate(params.Archetype, location, params.NameHint)
	if err != nil {
		p.logger.Warn("Character generation failed",
			"archetype", params.Archetype,
			"error", err.Error())
		return Result{
			Feedback: "(No one new arrives.)",
			Control:  Continue,
			Outcome:  &RequestOutcome{Name: req.Name, Detail: err.Error()},
		}
	}

	p.logger.Info("Created character",
		"character_id", c.ID,
		"archetype", c.Archetype,
		"location", c.Location)
	return Result{
		Feedback: fmt.Sprintf("(%s joins the scene. Refer to them as %s.)", c.Name, c.ID),
		Control:  StopTurn,
		Outcome:  &RequestOutcome{Name: req.Name, Applied: true, Detail: c.ID},
	}
}

func (p *Processor) exchangeItem(req *chat.ActionRequest) Result {
	partner, ok := p.world.Mode.Partner()
	if !ok {
		return p.rejectContinue(req, "not in dialogue",
			"(There is no one to trade with.)")
	}

	var params ExchangeItemParams
	if err := json.Unmarshal(req.Input, &params); err != nil || params.Item == "" {
		return p.rejectContinue(req, "malformed input", "(The exchange does not happen.)")
	}

	c, err := p.registry.Get(partner)
	if err != nil {
		return p.rejectContinue(req, "partner missing", "(The exchange does not happen.)")
	}

	// Check possession before touching either inventory so a failed exchange
	// cannot leave the item half-moved.
	switch params.Direction {
	case DirectionToPartner:
		if !p.world.HasItem(params.Item) {
			return p.rejectContinue(req, "player lacks item",
				fmt.Sprintf("(You do not have the %s.)", params.Item))
		}
		p.world.RemoveItem(params.Item)
		if err := p.registry.AddItem(partner, params.Item); err != nil {
			// Unreachable after the Get above; restore and report.
			p.world.AddItem(params.Item)
			return p.rejectContinue(req, err.Error(), "(The exchange does not happen.)")
		}
		return Result{
			Feedback: fmt.Sprintf("(You give the %s to %s.)", params.Item, c.Name),
			Control:  Continue,
			Outcome:  &RequestOutcome{Name: req.Name, Applied: true, Detail: params.Item + " to " + partner},
		}

	case DirectionToPlayer:
		if err := p.registry.RemoveItem(partner, params.Item); err != nil {
			p.logger.Warn("Rejecting exchange: partner lacks item",
				"character_id", partner,
				"item", params.Item)
			return p.rejectContinue(req, "partner lacks item",
				fmt.Sprintf("(%s does not have the %s.)", c.Name, params.Item))
		}
		p.world.AddItem(params.Item)
		return Result{
			Feedback: fmt.Sprintf("(%s gives you the %s.)", c.Name, params.Item),
			Control:  Continue,
			Outcome:  &RequestOutcome{Name: req.Name, Applied: true, Detail: params.Item + " from " + partner},
		}

	default:
		return p.rejectContinue(req, "invalid direction: "+params.Direction,
			"(The exchange does not happen.)")
	}
}

func (p *Processor) updateRelationship(req *chat.ActionRequest) Result {
	partner, ok := p.world.Mode.Partner()
	if !ok {
		return p.rejectContinue(req, "not in dialogue", "(Nothing changes between you.)")
	}

	var params UpdateRelationshipParams
	if err := json.Unmarshal(req.Input, &params); err != nil {
		return p.rejectContinue(req, "malformed input", "(Nothing changes between you.)")
	}

	var details []string
	if params.TrustDelta != 0 {
		trust, err := p.registry.UpdateTrust(partner, params.TrustDelta)
		if err != nil {
			return p.rejectContinue(req, "partner missing", "(Nothing changes between you.)")
		}
		details = append(details, fmt.Sprintf("trust=%d", trust))
	}
	for status, duration := range params.StatusSet {
		if err := p.registry.SetStatus(partner, status, duration); err != nil {
			return p.rejectContinue(req, "partner missing", "(Nothing changes between you.)")
		}
		details = append(details, "status:"+status)
	}
	for _, status := range params.StatusClear {
		if err := p.registry.RemoveStatus(partner, status); err != nil {
			return p.rejectContinue(req, "partner missing", "(Nothing changes between you.)")
		}
		details = append(details, "clear:"+status)
	}

	return Result{
		Feedback: "(Noted.)",
		Control:  Continue,
		Outcome: &RequestOutcome{
			Name:    req.Name,
			Applied: len(details) > 0,
			Detail:  strings.Join(details, " "),
		},
	}
}

// reject builds a StopTurn rejection with a logged reason and in-fiction
// feedback. State is never touched on the rejection path.
func (p *Processor) reject(req *chat.ActionRequest, reason, feedback string) Result {
	p.logger.Warn("Rejecting action request",
		"name", req.Name,
		"request_id", req.ID,
		"reason", reason)
	return Result{
		Feedback: feedback,
		Control:  StopTurn,
		Outcome:  &RequestOutcome{Name: req.Name, Detail: reason},
	}
}

// rejectContinue is reject for requests whose failure should not end the turn.
func (p *Processor) rejectContinue(req *chat.ActionRequest, reason, feedback string) Result {
	res := p.reject(req, reason, feedback)
	res.Control = Continue
	return res
}
