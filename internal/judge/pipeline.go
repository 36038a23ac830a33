package judge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"sales-crm-workers/internal/agent"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/metrics"
	"sales-crm-workers/internal/intelligence"
	"sales-crm-workers/internal/models"
)

type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceExternal  Source = "external"
)

// Reason says why the heuristic result was kept.
type Reason string

const (
	ReasonDisabled Reason = "disabled"
	ReasonTimeout  Reason = "timeout"
	ReasonInvalid  Reason = "invalid"
	ReasonError    Reason = "error"
	ReasonLocked   Reason = "locked"
	ReasonRejected Reason = "rejected"
)

var (
	ErrInvalidResponse = errors.New("JUDGE_RESPONSE_INVALID")
	errLocked          = errors.New("heuristic result is final")
	errRejected        = errors.New("external result rejected")
)

// Outcome describes how a judgment was produced.
type Outcome struct {
	Source Source `json:"source"`
	Reason Reason `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

// Attempt refines a heuristic result. It must honour ctx.
type Attempt[T any] func(ctx context.Context, base T) (T, error)

// Resolve returns the attempt's refinement of heuristic if it finishes
// within timeout without error, and heuristic otherwise. A nil attempt
// always yields heuristic.
func Resolve[T any](ctx context.Context, timeout time.Duration, heuristic T, attempt Attempt[T]) (T, Outcome) {
	if attempt == nil {
		return heuristic, Outcome{Source: SourceHeuristic, Reason: ReasonDisabled}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := attempt(attemptCtx, heuristic)
		done <- result{value: v, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-attemptCtx.Done():
		r = result{err: attemptCtx.Err()}
	}

	if r.err == nil {
		return r.value, Outcome{Source: SourceExternal}
	}
	return heuristic, fallback(r.err, timeout)
}

func fallback(err error, timeout time.Duration) Outcome {
	out := Outcome{Source: SourceHeuristic, Err: err}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out.Reason = ReasonTimeout
		out.Err = apperrors.NewJudgeTimeoutError(timeout)
	case errors.Is(err, ErrInvalidResponse):
		out.Reason = ReasonInvalid
		out.Err = apperrors.NewJudgeResponseInvalidError(err.Error())
	case errors.Is(err, errLocked):
		out.Reason = ReasonLocked
	case errors.Is(err, errRejected):
		out.Reason = ReasonRejected
	default:
		out.Reason = ReasonError
	}
	return out
}

// Pipeline pairs the heuristic engine with an optional external backend.
type Pipeline struct {
	evaluator *intelligence.Evaluator
	agent     *agent.Agent
	backend   Backend
	timeout   time.Duration
	logger    logger.Logger
}

// NewPipeline builds a pipeline. A nil backend disables external judgment.
func NewPipeline(evaluator *intelligence.Evaluator, ag *agent.Agent, backend Backend, timeout time.Duration, log logger.Logger) *Pipeline {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Pipeline{
		evaluator: evaluator,
		agent:     ag,
		backend:   backend,
		timeout:   timeout,
		logger:    log,
	}
}

func (p *Pipeline) Backend() string {
	if p.backend == nil {
		return "none"
	}
	return p.backend.Name()
}

// Evaluate compiles heuristic guidance and, when a backend is configured,
// lets it refine the judgment fields.
func (p *Pipeline) Evaluate(ctx context.Context, lead *models.Lead, last models.Message) (intelligence.Guidance, Outcome) {
	if lead == nil {
		lead = &models.Lead{}
	}
	heuristic := p.evaluator.Evaluate(lead, last)

	var attempt Attempt[intelligence.Guidance]
	if p.backend != nil {
		name := p.agent.Params().Name
		attempt = func(ctx context.Context, base intelligence.Guidance) (intelligence.Guidance, error) {
			text, err := p.backend.Generate(ctx, GuidancePrompt(name, lead, last))
			if err != nil {
				return base, err
			}
			var ext externalGuidance
			if err := decode(text, guidanceSchema, &ext); err != nil {
				return base, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
			}
			return mergeGuidance(base, ext, p.evaluator.Params()), nil
		}
	}

	g, outcome := Resolve(ctx, p.timeout, heuristic, attempt)
	p.record("guidance", lead.ID, outcome)

	metrics.LeadEvaluations.WithLabelValues(string(g.PipelineStage), string(g.BranchKind), string(outcome.Source)).Inc()
	metrics.BuyerIntentScore.Observe(float64(g.SeriousBuyerScore))
	return g, outcome
}

// Decide runs the agent and, when a backend is configured, lets it phrase
// ordinary replies. Escalations and waits from the heuristic are final.
func (p *Pipeline) Decide(ctx context.Context, lead *models.Lead, content string) (agent.Decision, Outcome) {
	if lead == nil {
		lead = &models.Lead{}
	}
	heuristic := p.agent.Decide(ctx, lead, content)

	var attempt Attempt[agent.Decision]
	if p.backend != nil {
		attempt = func(ctx context.Context, base agent.Decision) (agent.Decision, error) {
			if base.Action != agent.ActionReply {
				return base, errLocked
			}
			text, err := p.backend.Generate(ctx, DecisionPrompt(p.agent.Params().Name, lead, content))
			if err != nil {
				return base, err
			}
			var ext externalDecision
			if err := decode(text, decisionSchema, &ext); err != nil {
				return base, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
			}
			return mergeDecision(base, ext, p.agent)
		}
	}

	d, outcome := Resolve(ctx, p.timeout, heuristic, attempt)
	p.record("decision", lead.ID, outcome)

	metrics.AgentActions.WithLabelValues(string(d.Action), string(d.Intent)).Inc()
	return d, outcome
}

func (p *Pipeline) record(kind, leadID string, outcome Outcome) {
	if outcome.Source == SourceExternal || outcome.Reason == ReasonDisabled {
		return
	}
	metrics.JudgeFallbacks.WithLabelValues(kind, string(outcome.Reason)).Inc()

	if outcome.Reason == ReasonLocked {
		return
	}
	p.logger.Warn("external judgment discarded", map[string]interface{}{
		"kind":    kind,
		"leadId":  leadID,
		"reason":  string(outcome.Reason),
		"backend": p.Backend(),
		"error":   fmt.Sprint(outcome.Err),
	})
}

// mergeGuidance takes the judgment fields from the external report and
// keeps everything derived from timing and history from the heuristic.
func mergeGuidance(base intelligence.Guidance, ext externalGuidance, params intelligence.Params) intelligence.Guidance {
	out := base

	score := int(math.Round(ext.SeriousBuyerScore))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	out.SeriousBuyerScore = score
	out.HeatColor = intelligence.HeatBand(score)
	out.LeadScore = ext.LeadScore

	if ext.Intent != "" {
		out.Intent = ext.Intent
	}
	if ext.CustomerType != "" {
		out.CustomerType = ext.CustomerType
	}
	if ext.ObjectionDetected != "" {
		out.ObjectionDetected = ext.ObjectionDetected
	}
	if s := strings.TrimSpace(ext.Summary); s != "" {
		out.Summary = s
	}
	if s := strings.TrimSpace(ext.NextStep); s != "" {
		out.NextStep = s
	}
	if s := strings.TrimSpace(ext.PersonaComment); s != "" {
		out.PersonaComment = s
	}

	if ext.EstimatedValue != "" {
		value := parseEstimatedValue(ext.EstimatedValue)
		out.OrderValue = intelligence.OrderValue{
			Display:   ext.EstimatedValue,
			Value:     value,
			HighValue: ext.IsHighValue || value > params.HighValueThreshold,
		}
	}

	out.Suggestions = mergeSuggestions(base, ext.Suggestions)
	return out
}

func mergeSuggestions(base intelligence.Guidance, ext []intelligence.SuggestedAction) []intelligence.SuggestedAction {
	var kept []intelligence.SuggestedAction
	if _, ok := base.Branch.(intelligence.Qualify); ok {
		for _, s := range base.Suggestions {
			if s.ActionType == intelligence.ActionLogQualification {
				kept = append(kept, s)
				break
			}
		}
	}

	external := 0
	for _, s := range ext {
		if offersDiscount(s) {
			continue
		}
		kept = append(kept, s)
		external++
	}
	if external == 0 {
		return base.Suggestions
	}

	if len(kept) > 4 {
		kept = kept[:4]
	}
	return kept
}

// concessionTerms mark text that offers a discount or opens a negotiation.
var concessionTerms = []string{
	"discount",
	"% off",
	"percent off",
	"negotiable",
	"negotiate",
	"reduce the price",
	"reduce the rate",
	"lower the price",
	"lower the rate",
	"special price",
	"best price",
}

func offersDiscount(s intelligence.SuggestedAction) bool {
	return offersConcession(s.Label + " " + s.Payload + " " + s.Description)
}

func offersConcession(text string) bool {
	text = strings.ToLower(text)
	for _, term := range concessionTerms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func mergeDecision(base agent.Decision, ext externalDecision, ag *agent.Agent) (agent.Decision, error) {
	out := base
	switch agent.Action(ext.Action) {
	case agent.ActionAlertBoss:
		out.Action = agent.ActionAlertBoss
		out.Escalation = agent.EscalationExternal
		out.Response = ""
		out.TypingDelayMs = 0
		out.ThoughtProcess = "External review flagged this conversation for the boss."
		if t := strings.TrimSpace(ext.ThoughtProcess); t != "" {
			out.ThoughtProcess = t
		}
		return out, nil

	case agent.ActionReply:
		if base.Intent == agent.IntentPrice {
			return base, fmt.Errorf("%w: price replies are computed", errRejected)
		}
		reply := strings.TrimSpace(ext.Response)
		if reply == "" {
			return base, fmt.Errorf("%w: empty reply", ErrInvalidResponse)
		}
		if offersConcession(reply) {
			return base, fmt.Errorf("%w: reply offers a concession", errRejected)
		}
		out.Response = reply
		out.TypingDelayMs = ag.TypingDelay(reply).Milliseconds()
		if t := strings.TrimSpace(ext.ThoughtProcess); t != "" {
			out.ThoughtProcess = t
		}
		if ext.DetectedLanguage != "" {
			out.Language = agent.Language(ext.DetectedLanguage)
		}
		return out, nil

	default:
		return base, fmt.Errorf("%w: %s", errRejected, ext.Action)
	}
}
