package validate

import (
	"fmt"
	"strings"

	"github.com/pauldevelopai/alibi-sub001/internal/config"
	"github.com/pauldevelopai/alibi-sub001/internal/incident"
	"github.com/pauldevelopai/alibi-sub001/internal/plan"
)

const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// ValidationResult is the designed outcome of a validator pass. A
// failed result is not an error: it is reported, logged, and blocks
// alert compilation.
type ValidationResult struct {
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations"`
	Status     string   `json:"status"`
}

// accusatoryTerms is the fixed denylist for rule 1. Matched
// case-insensitively anywhere in alert-bound text.
var accusatoryTerms = []string{
	"suspect",
	"criminal",
	"perpetrator",
	"intruder",
	"offender",
	"burglar",
	"thief",
	"identified as",
	"confirmed as",
	"caught",
	"guilty",
}

// identityClaims is the stricter rule-5 denylist: phrasings that state
// a resolved identity rather than a scored similarity.
var identityClaims = []string{
	"confirmed identity",
	"identity confirmed",
	"positively identified",
	"is a match for",
	"this is ",
	"match confirmed",
}

// qualifyingPhrases: at least one must appear in watchlist-derived text.
var qualifyingPhrases = []string{
	"possible match",
	"requires verification",
}

// Validator is the hard-rule engine. Pure and deterministic: no I/O,
// no clock, no randomness. Every rule is checked independently and all
// violations are collected so operators see the complete set.
type Validator struct {
	cfg config.ThresholdConfig
}

func NewValidator(cfg config.ThresholdConfig) *Validator {
	return &Validator{cfg: cfg}
}

func (v *Validator) Validate(p plan.IncidentPlan, in incident.Incident) ValidationResult {
	var violations []string

	violations = append(violations, v.checkAccusation(p.Summary)...)
	violations = append(violations, v.checkLowConfidence(p)...)
	violations = append(violations, v.checkHighRiskApproval(p, in)...)
	violations = append(violations, v.checkEvidence(p)...)
	violations = append(violations, v.checkWatchlistLanguage(p, in)...)

	res := ValidationResult{
		Passed:     len(violations) == 0,
		Violations: violations,
		Status:     StatusFail,
	}
	if res.Passed {
		res.Status = StatusPass
	}
	return res
}

// ScanText applies rules 1 and 5's denylists to arbitrary alert-bound
// text. The compiler uses this to re-scan external generator output.
func (v *Validator) ScanText(text string, identitySensitive bool) []string {
	violations := v.checkAccusation(text)
	if identitySensitive {
		violations = append(violations, scanIdentityClaims(text)...)
	}
	return violations
}

// Rule 1: no accusatory language anywhere in alert-bound text.
func (v *Validator) checkAccusation(text string) []string {
	var violations []string
	lower := strings.ToLower(text)
	for _, term := range accusatoryTerms {
		if strings.Contains(lower, term) {
			violations = append(violations,
				fmt.Sprintf("no-accusation rule: summary contains denylisted term %q", term))
		}
	}
	return violations
}

// Rule 2: below the confidence threshold, only monitor is permitted.
func (v *Validator) checkLowConfidence(p plan.IncidentPlan) []string {
	if p.Confidence >= v.cfg.NotifyConfidence {
		return nil
	}
	if p.RecommendedAction == plan.ActionMonitor {
		return nil
	}
	return []string{fmt.Sprintf(
		"low-confidence rule: confidence %.2f is below %.2f but recommended_action is %q, must be %q",
		p.Confidence, v.cfg.NotifyConfidence, p.RecommendedAction, plan.ActionMonitor)}
}

// Rule 3: high severity or an identity match demands pending review
// with human approval; bare dispatch is never acceptable here.
func (v *Validator) checkHighRiskApproval(p plan.IncidentPlan, in incident.Incident) []string {
	highRisk := p.Severity >= v.cfg.HighSeverity || in.HasIdentitySensitiveEvent()
	if !highRisk {
		return nil
	}
	// Low confidence takes precedence: a monitor-only plan is not a
	// dispatch and needs no approval gate.
	if p.Confidence < v.cfg.NotifyConfidence && p.RecommendedAction == plan.ActionMonitor {
		return nil
	}

	var violations []string
	if !p.RequiresHumanApproval {
		violations = append(violations, fmt.Sprintf(
			"high-risk approval rule: severity %d / identity-sensitive incident requires requires_human_approval=true",
			p.Severity))
	}
	if p.RecommendedAction != plan.ActionDispatchPendingReview {
		violations = append(violations, fmt.Sprintf(
			"high-risk approval rule: recommended_action must be %q for high-risk incidents, got %q",
			plan.ActionDispatchPendingReview, p.RecommendedAction))
	}
	return violations
}

// Rule 4: any action beyond monitor needs evidence, or an explicit
// statement that none exists.
func (v *Validator) checkEvidence(p plan.IncidentPlan) []string {
	switch p.RecommendedAction {
	case plan.ActionNotify, plan.ActionDispatch, plan.ActionDispatchPendingReview:
	default:
		return nil
	}
	if len(p.EvidenceRefs) > 0 {
		return nil
	}
	if strings.Contains(strings.ToLower(p.Summary), "no clip") {
		return nil
	}
	return []string{fmt.Sprintf(
		"evidence rule: evidence missing for recommended_action %q and summary does not state that no clip is available",
		p.RecommendedAction)}
}

// Rule 5: watchlist-derived plans must use qualifying language and may
// never state a resolved identity. Independent of rule 1's denylist.
func (v *Validator) checkWatchlistLanguage(p plan.IncidentPlan, in incident.Incident) []string {
	if !p.IdentitySensitive && !in.HasIdentitySensitiveEvent() {
		return nil
	}

	var violations []string
	lower := strings.ToLower(p.Summary)

	qualified := false
	for _, phrase := range qualifyingPhrases {
		if strings.Contains(lower, phrase) {
			qualified = true
			break
		}
	}
	if !qualified {
		violations = append(violations,
			"watchlist language rule: summary lacks qualifying language (\"possible match\" / \"requires verification\")")
	}

	violations = append(violations, scanIdentityClaims(p.Summary)...)
	return violations
}

func scanIdentityClaims(text string) []string {
	var violations []string
	lower := strings.ToLower(text)
	for _, claim := range identityClaims {
		if strings.Contains(lower, claim) {
			violations = append(violations,
				fmt.Sprintf("watchlist language rule: text contains identity claim %q", strings.TrimSpace(claim)))
		}
	}
	return violations
}
