package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/nimbus/internal/config"
	"github.com/sandevgo/nimbus/internal/core"
	"github.com/sandevgo/nimbus/internal/service/memory"
	"github.com/sandevgo/nimbus/internal/service/persona"
	"github.com/sandevgo/nimbus/internal/service/tools"
	"github.com/sandevgo/nimbus/pkg/log"
)

// Request is one chat request entering the loop.
type Request struct {
	UserID        string
	Message       string
	CityHint      string
	PersonaID     string
	Units         string
	ResponseStyle string
	Remember      *bool // nil means the configured default
	IncludeTrace  bool
}

// Result is the loop's output contract.
type Result struct {
	RunID         string
	FinalText     string
	PersonaID     string
	City          string
	Units         string
	ResponseStyle string
	Trace         []core.StepRecord
	MemoryWrites  []core.Fact
	MemoryWritten bool
	Degraded      bool
}

// Orchestrator runs the plan / act / observe / reflect loop for one request
// at a time. Runs are independent; the memory service is the only shared
// state between them.
type Orchestrator struct {
	cfg       *config.AppConfig
	registry  *tools.Registry
	driver    core.Driver // nil when no driver is configured
	memory    *memory.Service
	extractor *memory.Extractor
}

func NewOrchestrator(
	cfg *config.AppConfig,
	registry *tools.Registry,
	driver core.Driver,
	mem *memory.Service,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		registry:  registry,
		driver:    driver,
		memory:    mem,
		extractor: memory.NewExtractor(),
	}
}

func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	runID := uuid.NewString()
	logger := log.FromCtx(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	userID := core.NormalizeUserID(req.UserID)
	remember := o.cfg.RememberDefault
	if req.Remember != nil {
		remember = *req.Remember
	}

	profile := core.DefaultProfile(userID)
	if remember {
		profile = o.memory.GetProfile(ctx, userID)
	}

	p := persona.Resolve(firstNonEmpty(req.PersonaID, profile.PersonaID))
	units := core.NormalizeUnits(firstNonEmpty(req.Units, profile.Units))
	style := core.NormalizeStyle(firstNonEmpty(req.ResponseStyle, profile.ResponseStyle))

	var memories []core.Fact
	memoryCity := ""
	if remember {
		memories = o.memory.GetRelevantMemories(ctx, userID, req.Message)
		memoryCity = profile.PreferredCity
		if memoryCity == "" {
			for _, f := range memories {
				if f.Type == core.FactCityPreference {
					memoryCity = f.Value
					break
				}
			}
		}
	}

	pl := newPlanner(req.Message, req.CityHint, memoryCity)
	turns := o.buildContext(ctx, userID, remember, profile, memories, req.Message)

	logger.Info().
		Str("user", userID).
		Str("persona", p.ID).
		Str("plan", pl.describePlan()).
		Bool("driver", o.driver != nil).
		Msg("agent run started")

	budget := o.cfg.StepBudget
	if budget <= 0 {
		budget = 4
	}

	driverActive := o.driver != nil
	var steps []core.StepRecord
	var observations []core.Observation
	finalText := ""

	for cycle := 0; cycle < budget; cycle++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("run %s abandoned: %w", runID, err)
		}

		// PLANNING
		action, fromDriver := o.plan(ctx, &driverActive, turns, pl)

		if action.Kind == core.ActionFinalAnswer {
			if fromDriver && !usableDriverAnswer(action.Text) {
				logger.Warn().Msg("driver answer rejected, switching to deterministic planner")
				driverActive = false
				continue
			}
			finalText = action.Text
			break
		}

		// ACTING: arguments must pass the schema registry before execution.
		if err := o.registry.Validate(action.ToolName, action.ToolArgs); err != nil {
			logger.Warn().Err(err).Str("tool", action.ToolName).Msg("tool call rejected")
			steps = append(steps, core.StepRecord{Index: len(steps), Action: action, Err: err.Error()})
			turns = append(turns, toolTurn(action.ToolName, "error: "+err.Error()))
			pl.noteArgumentError()
			continue
		}

		obs, err := o.registry.Execute(ctx, action.ToolName, action.ToolArgs)
		if err != nil {
			logger.Error().Err(err).Str("tool", action.ToolName).Msg("tool execution failed")
			steps = append(steps, core.StepRecord{Index: len(steps), Action: action, Err: err.Error()})
			continue
		}

		// OBSERVING: the observation becomes a tool turn visible to the next
		// planning iteration.
		steps = append(steps, core.StepRecord{Index: len(steps), Action: action, Observation: &obs})
		observations = append(observations, obs)
		turns = append(turns, toolTurn(obs.Tool, observationContent(obs)))

		// REFLECTING
		if obs.OK() {
			finalText = composeAnswer(obs, units)
			break
		}
		logger.Info().Str("tool", obs.Tool).Str("kind", string(obs.FailKind)).Msg("tool reported failure, replanning")
		pl.observe(obs)
	}

	resolvedCity := ""
	for _, obs := range observations {
		if city := observationCity(obs); city != "" {
			resolvedCity = city
		}
	}
	displayCity := firstNonEmpty(resolvedCity, pl.city, req.CityHint, memoryCity)

	degraded := false
	if finalText == "" {
		degraded = true
		finalText = composeDegraded(observations, displayCity)
	}

	adapted := persona.Adapt(finalText, p.ID, style)
	steps = append(steps, core.StepRecord{Index: len(steps), Action: core.FinalAnswerAction(adapted)})

	var written []core.Fact
	if remember {
		written = o.persistRun(ctx, userID, req.Message, adapted, resolvedCity, units, style, p.ID, profile)
	}
	memoryWritten := len(written) > 0

	logger.Info().
		Int("steps", len(steps)).
		Bool("degraded", degraded).
		Bool("memory_written", memoryWritten).
		Msg("agent run finished")

	result := Result{
		RunID:         runID,
		FinalText:     adapted,
		PersonaID:     p.ID,
		City:          firstNonEmpty(displayCity, "unknown"),
		Units:         units,
		ResponseStyle: style,
		MemoryWrites:  written,
		MemoryWritten: memoryWritten,
		Degraded:      degraded,
	}
	if o.cfg.TraceEnabled && req.IncludeTrace {
		result.Trace = steps
	}
	return result, nil
}

// plan asks the driver first; any driver failure silently (logged) switches
// the remainder of the run to the deterministic planner.
func (o *Orchestrator) plan(ctx context.Context, driverActive *bool, turns []core.Turn, pl *planner) (core.Action, bool) {
	if *driverActive {
		action, err := o.driver.ProposeAction(ctx, turns, o.registry.Schemas())
		if err == nil {
			return action, true
		}
		log.FromCtx(ctx).Warn().Err(err).Msg("driver failed, falling back to deterministic planner")
		*driverActive = false
	}
	return pl.nextAction(), false
}

// buildContext assembles the working turns for a run: a system turn carrying
// profile and memory hints, the recent history window, then the new message.
func (o *Orchestrator) buildContext(ctx context.Context, userID string, remember bool, profile core.Profile, memories []core.Fact, message string) []core.Turn {
	now := time.Now().UTC()
	turns := []core.Turn{{
		Role:      core.RoleSystem,
		Content:   systemContent(profile, memories),
		CreatedAt: now,
	}}

	if remember {
		turns = append(turns, o.memory.RecentHistory(ctx, userID)...)
	}

	return append(turns, core.Turn{
		Role:      core.RoleUser,
		Content:   message,
		CreatedAt: now,
	})
}

func systemContent(profile core.Profile, memories []core.Fact) string {
	var b strings.Builder
	b.WriteString("You are a weather assistant. Answer using the provided tools; call a tool before answering any weather question.\n")
	fmt.Fprintf(&b, "Profile: units=%s, response_style=%s", profile.Units, profile.ResponseStyle)
	if profile.PreferredCity != "" {
		fmt.Fprintf(&b, ", preferred_city=%s", profile.PreferredCity)
	}
	b.WriteByte('\n')

	if len(memories) > 0 {
		b.WriteString("Known about the user:")
		for _, f := range memories {
			fmt.Fprintf(&b, " [%s: %s]", f.Type, f.Value)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// persistRun writes extracted facts, the refreshed profile and the two
// conversation turns, returning the facts that were committed. Failures are
// logged and never fail the response.
func (o *Orchestrator) persistRun(ctx context.Context, userID, message, answer, resolvedCity, units, style, personaID string, prior core.Profile) []core.Fact {
	logger := log.FromCtx(ctx)

	facts := o.extractor.Extract(userID, message, resolvedCity, units)
	if err := o.memory.WriteFacts(ctx, userID, facts); err != nil {
		logger.Warn().Err(err).Msg("skipping memory fact write")
		facts = nil
	}

	profile := core.Profile{
		UserID:        userID,
		PersonaID:     personaID,
		PreferredCity: firstNonEmpty(resolvedCity, prior.PreferredCity),
		Units:         units,
		ResponseStyle: style,
	}
	if err := o.memory.UpsertProfile(ctx, profile); err != nil {
		logger.Warn().Err(err).Msg("skipping profile update")
	}

	now := time.Now().UTC()
	userTurn := core.Turn{Role: core.RoleUser, Content: message, CreatedAt: now}
	assistantTurn := core.Turn{Role: core.RoleAssistant, Content: answer, CreatedAt: now}
	if err := o.memory.AppendHistory(ctx, userID, userTurn); err != nil {
		logger.Warn().Err(err).Msg("skipping history append")
	}
	if err := o.memory.AppendHistory(ctx, userID, assistantTurn); err != nil {
		logger.Warn().Err(err).Msg("skipping history append")
	}

	return facts
}

func toolTurn(tool, content string) core.Turn {
	return core.Turn{
		Role:      core.RoleTool,
		ToolName:  tool,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func observationContent(obs core.Observation) string {
	if obs.OK() {
		return string(obs.Payload)
	}
	return fmt.Sprintf("failure %s: %s", obs.FailKind, obs.Message)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
