package domain

// Scenario describes the disaster drill the player is running.
type Scenario struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
}

// Report is the initial incident report that seeds the first situation.
type Report struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ReportedDate string  `json:"reported_date"`
}

// TurnRecord is one completed turn: the situation the player saw and the
// action they chose. The ordered sequence of records is the causal chain the
// model must stay consistent with; callers own it across requests.
type TurnRecord struct {
	Situation string `json:"situation"`
	Choice    string `json:"choice"`
}

// ScenarioRequest bundles the inputs for one scenario pipeline invocation.
type ScenarioRequest struct {
	Scenario Scenario     `json:"scenario"`
	Report   Report       `json:"report"`
	History  []TurnRecord `json:"history"`
}

// SurvivalAssessment is the model's estimate of the player's survival odds.
// Change is "0" on the first turn; afterwards it reflects the impact of the
// previous choice ("+15", "-10").
type SurvivalAssessment struct {
	Rate   int    `json:"survival_rate"`
	Change string `json:"change"`
}

// Choice evaluation literals.
const (
	EvalExcellent = "excellent"
	EvalGood      = "good"
	EvalNeutral   = "neutral"
	EvalRisky     = "risky"
	EvalDangerous = "dangerous"
)

// ChoiceFeedback grades the previous turn's choice. Produced only from the
// second turn onward.
type ChoiceFeedback struct {
	ChosenAction   string  `json:"chosen_action"`
	Evaluation     string  `json:"evaluation"`
	Comment        string  `json:"comment"`
	BetterChoice   *string `json:"better_choice"`
	SurvivalImpact string  `json:"survival_impact"`
}

// ValidEvaluation reports whether s is one of the five defined grades.
func ValidEvaluation(s string) bool {
	switch s {
	case EvalExcellent, EvalGood, EvalNeutral, EvalRisky, EvalDangerous:
		return true
	}
	return false
}

// StationInfo identifies the observation station resolved for a coordinate.
// DistanceKM is derived from the query coordinate, not station metadata.
type StationInfo struct {
	ObsCode    string  `json:"obs_code"`
	ObsName    string  `json:"obs_name,omitempty"`
	Latitude   float64 `json:"station_latitude"`
	Longitude  float64 `json:"station_longitude"`
	DistanceKM float64 `json:"distance_km"`
}

// TideReading is one (timestamp, level) pair from a station series.
type TideReading struct {
	Time  string `json:"time"`
	Level int    `json:"level"`
}

// Tide trend literals.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

// TideStats holds the aggregate statistics of a tide series in centimeters.
type TideStats struct {
	MaxCM     int     `json:"max_tide_cm"`
	MinCM     int     `json:"min_tide_cm"`
	AvgCM     float64 `json:"avg_tide_cm"`
	CurrentCM int     `json:"current_tide_cm"`
	Trend     string  `json:"trend"`
}

// TideSummary is the reduced form of a raw tide series fed to the generation
// backend. Note carries a diagnostic when the raw payload was unusable; the
// summary is still returned in that case.
type TideSummary struct {
	TotalRecords int           `json:"total_records"`
	Statistics   TideStats     `json:"statistics"`
	HighTides    []TideReading `json:"high_tides"`
	LowTides     []TideReading `json:"low_tides"`
	SampledData  []TideReading `json:"sampled_data"`
	Note         string        `json:"note,omitempty"`
}

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Risk level literals for safety guides.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// SafetyGuide is the structured marine safety advisory generated from a
// TideSummary.
type SafetyGuide struct {
	Location          Coordinate `json:"location"`
	Date              string     `json:"date"`
	RiskLevel         string     `json:"risk_level"`
	RiskScore         int        `json:"risk_score"`
	Summary           string     `json:"summary"`
	Warnings          []string   `json:"warnings"`
	Recommendations   []string   `json:"recommendations"`
	EmergencyContacts []string   `json:"emergency_contacts"`
}

// EventType tags a scenario pipeline event.
type EventType string

const (
	EventSituation EventType = "situation" // one streamed situation fragment
	EventChoice    EventType = "choice"    // one of the three candidate actions
	EventSurvival  EventType = "survival_rate"
	EventFeedback  EventType = "feedback"
	EventDone      EventType = "done"
	EventError     EventType = "error"
)

// ScenarioEvent is one tagged output of the scenario pipeline. Content holds
// the fragment or choice text; Index is 1-3 for choice events. Exactly one of
// Survival, Feedback, Err is set for the corresponding types.
type ScenarioEvent struct {
	Type     EventType
	Content  string
	Index    int
	Survival *SurvivalAssessment
	Feedback *ChoiceFeedback
	Err      error
}
