package domain

import "time"

// TurnAudit is the record published to the audit topic after a scenario turn
// completes. It carries outcomes only, never prompt text.
type TurnAudit struct {
	ScenarioTitle string    `json:"scenario_title"`
	Turn          int       `json:"turn"`
	SurvivalRate  int       `json:"survival_rate"`
	Change        string    `json:"change"`
	Evaluation    string    `json:"evaluation,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// GuideAudit is the record published after a safety guide is issued.
type GuideAudit struct {
	ObsCode     string    `json:"obs_code"`
	Date        string    `json:"date"`
	RiskLevel   string    `json:"risk_level"`
	RiskScore   int       `json:"risk_score"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewTurnAudit builds a TurnAudit stamped with the active clock. The turn
// number is 1-based: history length plus one.
func NewTurnAudit(scenarioTitle string, historyLen int, survival SurvivalAssessment, feedback *ChoiceFeedback) TurnAudit {
	a := TurnAudit{
		ScenarioTitle: scenarioTitle,
		Turn:          historyLen + 1,
		SurvivalRate:  survival.Rate,
		Change:        survival.Change,
		GeneratedAt:   clock.Now().UTC(),
	}
	if feedback != nil {
		a.Evaluation = feedback.Evaluation
	}
	return a
}

// NewGuideAudit builds a GuideAudit stamped with the active clock.
func NewGuideAudit(station StationInfo, guide SafetyGuide) GuideAudit {
	return GuideAudit{
		ObsCode:     station.ObsCode,
		Date:        guide.Date,
		RiskLevel:   guide.RiskLevel,
		RiskScore:   guide.RiskScore,
		GeneratedAt: clock.Now().UTC(),
	}
}

// DefaultObservationDate returns today's date in the KHOA YYYYMMDD format.
func DefaultObservationDate() string {
	return clock.Now().UTC().Format("20060102")
}
