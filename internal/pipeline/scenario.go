// Package pipeline orchestrates the scenario and safety-advisory flows. The
// orchestrators call composers and clients; nothing calls back up.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/danbi-studio/disaster-sim-service/internal/domain"
	"github.com/danbi-studio/disaster-sim-service/internal/observability"
)

// Generation stage names, used in error context and metric labels.
const (
	stageSituation   = "situation"
	stageChoices     = "choices"
	stageSurvival    = "survival"
	stageFeedback    = "feedback"
	stageSafetyGuide = "safety_guide"
)

// AuditPublisher records completed turns and issued guides. Implementations
// must tolerate being called concurrently.
type AuditPublisher interface {
	PublishScenarioTurn(ctx context.Context, audit domain.TurnAudit) error
	PublishSafetyGuide(ctx context.Context, audit domain.GuideAudit) error
}

// EmitFunc receives pipeline events in order. It must not block indefinitely;
// the pipeline calls it synchronously between stages.
type EmitFunc func(domain.ScenarioEvent)

// Scenario drives one turn of the simulation: stream the situation, then
// derive choices, survival odds, and, from the second turn on, feedback on
// the previous choice. Stages run strictly sequentially; each later prompt
// depends on the previous stage's output.
type Scenario struct {
	generator domain.Generator
	audit     AuditPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewScenario creates the scenario orchestrator. audit may be nil.
func NewScenario(g domain.Generator, audit AuditPublisher, logger *slog.Logger, metrics *observability.Metrics) *Scenario {
	return &Scenario{
		generator: g,
		audit:     audit,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness reports whether the generation backend is wired.
func (s *Scenario) CheckReadiness(_ context.Context) error {
	if s.generator == nil {
		return errors.New("generation backend not configured")
	}
	return nil
}

// Defaults substituted when the backend's structured output cannot be
// decoded. A degraded-but-complete turn beats a failed one.
func defaultSurvival() domain.SurvivalAssessment {
	return domain.SurvivalAssessment{Rate: 50, Change: "0"}
}

func defaultFeedback(chosenAction string) domain.ChoiceFeedback {
	return domain.ChoiceFeedback{
		ChosenAction:   chosenAction,
		Evaluation:     domain.EvalNeutral,
		Comment:        "선택을 완료했습니다.",
		SurvivalImpact: "0",
	}
}

// Run executes one turn and emits events to the sink as stages complete. A
// backend failure at any stage emits a single error event and stops; events
// already emitted stand, there is no rollback.
func (s *Scenario) Run(ctx context.Context, req domain.ScenarioRequest, emit EmitFunc) error {
	s.metrics.ScenarioRuns.Inc()
	s.metrics.StreamsActive.Inc()
	defer s.metrics.StreamsActive.Dec()

	situation, err := s.streamSituation(ctx, req, emit)
	if err != nil {
		return s.fail(stageSituation, err, emit)
	}

	choices, err := s.generateChoices(ctx, situation, req.History)
	if err != nil {
		return s.fail(stageChoices, err, emit)
	}
	for i, choice := range choices {
		emit(domain.ScenarioEvent{Type: domain.EventChoice, Index: i + 1, Content: choice})
	}

	survival, err := s.generateSurvival(ctx, req, situation)
	if err != nil {
		return s.fail(stageSurvival, err, emit)
	}
	emit(domain.ScenarioEvent{Type: domain.EventSurvival, Survival: &survival})

	var feedback *domain.ChoiceFeedback
	if len(req.History) > 0 {
		fb, err := s.generateFeedback(ctx, req, situation, choices)
		if err != nil {
			return s.fail(stageFeedback, err, emit)
		}
		feedback = &fb
		emit(domain.ScenarioEvent{Type: domain.EventFeedback, Feedback: feedback})
	}

	emit(domain.ScenarioEvent{Type: domain.EventDone})

	s.publishTurn(ctx, req, survival, feedback)
	return nil
}

// TurnResult is the aggregate response for non-streaming callers.
type TurnResult struct {
	Situation string                    `json:"situation"`
	Choices   []string                  `json:"choices"`
	Survival  domain.SurvivalAssessment `json:"survival_rate"`
	Feedback  *domain.ChoiceFeedback    `json:"feedback,omitempty"`
}

// Collect runs the turn and gathers all events into one response object.
func (s *Scenario) Collect(ctx context.Context, req domain.ScenarioRequest) (TurnResult, error) {
	var result TurnResult
	var situation strings.Builder

	err := s.Run(ctx, req, func(ev domain.ScenarioEvent) {
		switch ev.Type {
		case domain.EventSituation:
			situation.WriteString(ev.Content)
		case domain.EventChoice:
			result.Choices = append(result.Choices, ev.Content)
		case domain.EventSurvival:
			result.Survival = *ev.Survival
		case domain.EventFeedback:
			result.Feedback = ev.Feedback
		}
	})
	if err != nil {
		return TurnResult{}, err
	}

	result.Situation = situation.String()
	return result, nil
}

// streamSituation streams the narration, emitting each fragment as it
// arrives and returning the concatenated text.
func (s *Scenario) streamSituation(ctx context.Context, req domain.ScenarioRequest, emit EmitFunc) (string, error) {
	start := time.Now()
	prompt := domain.ComposeSituationPrompt(req)

	stream, err := s.generator.Stream(ctx, prompt.System, prompt.User)
	if err != nil {
		s.observeStage(stageSituation, start, err)
		return "", err
	}
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		fragment := stream.Current()
		full.WriteString(fragment)
		emit(domain.ScenarioEvent{Type: domain.EventSituation, Content: fragment})
	}
	if err := stream.Err(); err != nil {
		s.observeStage(stageSituation, start, err)
		return "", err
	}

	s.observeStage(stageSituation, start, nil)
	return full.String(), nil
}

// generateChoices always yields exactly three entries; when parsing degrades
// the full text becomes the first choice and the rest are empty.
func (s *Scenario) generateChoices(ctx context.Context, situation string, history []domain.TurnRecord) ([]string, error) {
	start := time.Now()
	prompt := domain.ComposeChoicesPrompt(situation, history)

	raw, err := s.generator.Invoke(ctx, prompt.System, prompt.User)
	s.observeStage(stageChoices, start, err)
	if err != nil {
		return nil, err
	}

	parsed := domain.ParseNumberedChoices(raw)
	return parsed[:], nil
}

func (s *Scenario) generateSurvival(ctx context.Context, req domain.ScenarioRequest, situation string) (domain.SurvivalAssessment, error) {
	start := time.Now()
	prompt := domain.ComposeSurvivalPrompt(req.Scenario.Title, situation, req.History)

	raw, err := s.generator.Invoke(ctx, prompt.System, prompt.User)
	s.observeStage(stageSurvival, start, err)
	if err != nil {
		return domain.SurvivalAssessment{}, err
	}

	survival := domain.DecodeOrDefault(raw, defaultSurvival())
	survival.Rate = clampScore(survival.Rate)
	if len(req.History) == 0 {
		// delta is meaningful only once a choice has been made
		survival.Change = "0"
	}
	return survival, nil
}

func (s *Scenario) generateFeedback(ctx context.Context, req domain.ScenarioRequest, situation string, choices []string) (domain.ChoiceFeedback, error) {
	start := time.Now()
	last := req.History[len(req.History)-1]
	prompt := domain.ComposeFeedbackPrompt(req.Scenario.Title, last.Choice, last.Situation, situation, choices)

	raw, err := s.generator.Invoke(ctx, prompt.System, prompt.User)
	s.observeStage(stageFeedback, start, err)
	if err != nil {
		return domain.ChoiceFeedback{}, err
	}

	feedback := domain.DecodeOrDefault(raw, defaultFeedback(last.Choice))
	if !domain.ValidEvaluation(feedback.Evaluation) {
		feedback.Evaluation = domain.EvalNeutral
	}
	return feedback, nil
}

// fail wraps the stage failure, emits the terminal error event, and counts
// the run as failed. Later stages are never attempted.
func (s *Scenario) fail(stage string, err error, emit EmitFunc) error {
	wrapped := &domain.GenerationError{Stage: stage, Err: err}
	s.logger.Error("scenario stage failed", "stage", stage, "error", err)
	s.metrics.ScenarioFailures.Inc()
	emit(domain.ScenarioEvent{Type: domain.EventError, Err: wrapped})
	return wrapped
}

// publishTurn records the completed turn on the audit topic. Failures are
// logged and never fail the request.
func (s *Scenario) publishTurn(ctx context.Context, req domain.ScenarioRequest, survival domain.SurvivalAssessment, feedback *domain.ChoiceFeedback) {
	if s.audit == nil {
		return
	}
	audit := domain.NewTurnAudit(req.Scenario.Title, len(req.History), survival, feedback)
	if err := s.audit.PublishScenarioTurn(ctx, audit); err != nil {
		s.logger.Warn("publish turn audit failed", "error", err, "scenario", req.Scenario.Title)
		s.metrics.AuditPublished.WithLabelValues("scenario_turn", "error").Inc()
		return
	}
	s.metrics.AuditPublished.WithLabelValues("scenario_turn", "success").Inc()
}

func (s *Scenario) observeStage(stage string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.GenerationRequests.WithLabelValues(stage, outcome).Inc()
	s.metrics.GenerationDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// clampScore bounds a model-supplied 0-100 score. The prompt only states the
// banding as rubric text, so the returned integer is not trusted.
func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
