package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prompt is a (system instruction, user instruction) pair for one generation
// stage. Composition is pure: the same inputs always produce the same pair.
type Prompt struct {
	System string
	User   string
}

const (
	situationInitialSystem      = "당신은 재난 상황을 1인칭 시점으로 생생하게 전달하는 작가입니다. 사용자가 그 상황 속 당사자가 된 것처럼 느끼도록 묘사하세요."
	situationContinuationSystem = "당신은 재난 상황 시뮬레이션 작가입니다. 사용자의 모든 선택과 그 결과를 일관되게 유지하면서, 가장 최근 선택의 구체적인 결과를 보여주세요."
	choicesSystem               = "당신은 재난 상황 전문가입니다. 일반인이 그 상황에서 실제로 취할 수 있는 현실적인 행동 옵션을 제시하세요."
	survivalSystem              = "당신은 재난 안전 전문가입니다. 재난 상황의 심각성을 과소평가하지 말고, 매우 엄격하고 현실적인 기준으로 생존 확률을 평가하세요. 낙관적 편향을 배제하고 객관적으로 평가하세요."
	feedbackSystem              = "당신은 재난 안전 교육 전문가입니다. 사용자의 선택을 평가하고 건설적인 피드백을 제공하세요."
	safetyGuideSystem           = "당신은 해양 안전 전문가입니다.\n해양 데이터를 분석하여 일반인이 이해하기 쉬운 안전 가이드를 제공하세요.\n과학적 근거를 바탕으로 하되, 전문 용어는 최소화하고 구체적인 행동 지침을 제시하세요."
)

// ComposeSituationPrompt builds the situation-stage prompt. With no history it
// sets an initial scene from the report alone; otherwise it enumerates every
// prior turn so the backend keeps the full causal chain, and instructs it that
// the latest choice's effects dominate while earlier consequences remain in
// force. Full-history inclusion trades prompt size for narrative consistency.
func ComposeSituationPrompt(req ScenarioRequest) Prompt {
	if len(req.History) == 0 {
		user := fmt.Sprintf(`지금 당신은 다음 위치에 있습니다:
- 시각: %s
- 장소: 위도 %v, 경도 %v

당신이 직접 목격하고 있는 상황:
%s

이것은 '%s' 상황입니다. (%s)

당신이 바로 그 현장에서 겪고 있는 상황을 1인칭 시점으로 간결하게 묘사하세요.

다음을 포함하여 2-4문장으로 작성:
- 당신 주변에서 벌어지고 있는 일
- 당신이 느끼는 즉각적인 위험
- 당신이 지금 해야 할 것 같은 생각`,
			req.Report.ReportedDate, req.Report.Latitude, req.Report.Longitude,
			req.Report.Description, req.Scenario.Title, req.Scenario.Description)
		return Prompt{System: situationInitialSystem, User: user}
	}

	var history strings.Builder
	for i, turn := range req.History {
		fmt.Fprintf(&history, "\n[%d번째 상황]\n%s\n→ 당신의 선택: %s\n", i+1, turn.Situation, turn.Choice)
	}
	lastChoice := req.History[len(req.History)-1].Choice

	user := fmt.Sprintf(`=== 시나리오 정보 ===
재난 유형: %s
설명: %s
시작 시각: %s
현재 위치: 위도 %v, 경도 %v

=== 지금까지의 경과 ===
%s

=== 지침 ===
위 히스토리의 **모든 선택과 결과**를 고려하여, 가장 최근 선택("%s")의 직접적인 결과와 새로운 상황을 묘사하세요.

1인칭 시점으로 2-4문장으로 작성하되, 반드시 다음을 포함:
1. 가장 최근 선택한 행동의 실행 과정과 즉각적인 결과
2. 이전 선택들의 영향이 계속 유지되고 있음을 암시
3. 상황이 어떻게 변했는지 (개선/악화)
4. 새롭게 발생한 문제나 기회

**중요:** 이전에 선택한 행동들(예: 119 신고, 안전한 위치 확보 등)은 여전히 유효하며, 그 영향이 현재 상황에도 반영되어야 합니다.`,
		req.Scenario.Title, req.Scenario.Description, req.Scenario.StartDate,
		req.Report.Latitude, req.Report.Longitude, history.String(), lastChoice)
	return Prompt{System: situationContinuationSystem, User: user}
}

// ComposeChoicesPrompt builds the three-choices prompt. The requested output
// format is numbered plain text, not JSON; see ParseNumberedChoices.
func ComposeChoicesPrompt(situation string, history []TurnRecord) Prompt {
	var context strings.Builder
	if len(history) > 0 {
		context.WriteString("\n=== 지금까지의 경과 ===\n")
		for i, turn := range history {
			fmt.Fprintf(&context, "%d. %s → %s...\n", i+1, turn.Choice, truncateRunes(turn.Situation, 50))
		}
		context.WriteString("\n이전 선택들(예: 119 신고, 안전 확보 등)은 여전히 유효하며, 선택지는 이를 고려해야 합니다.\n")
	}

	user := fmt.Sprintf(`%s
=== 현재 상황 ===
%s

지금 당신이 직접 할 수 있는 구체적이고 현실적인 행동 3가지를 제시하세요.

반드시 다음 형식으로만 작성하세요:
1. [첫 번째 행동]
2. [두 번째 행동]
3. [세 번째 행동]

각 행동은:
- 일반인이 현장에서 직접 할 수 있는 것
- 현재 상황과 이전 행동들을 고려한 것
- 한 줄로 간결하게 작성
예: "119에 상황을 업데이트한다", "높은 곳으로 이동한다", "주변 사람들과 협력한다" 등`,
		context.String(), situation)
	return Prompt{System: choicesSystem, User: user}
}

// ComposeSurvivalPrompt builds the survival-rate prompt. The grading rubric is
// delivered as prose; the returned integer is still clamped by the pipeline.
func ComposeSurvivalPrompt(scenarioTitle, situation string, history []TurnRecord) Prompt {
	var context string
	if len(history) > 0 {
		last := history[len(history)-1]
		context = fmt.Sprintf("\n이전 상황: %s\n선택한 행동: %s\n", truncateRunes(last.Situation, 100), last.Choice)
	}

	user := fmt.Sprintf(`=== 시나리오 ===
재난 유형: %s
%s
=== 현재 상황 ===
%s

위 상황을 분석하여 다음을 JSON 형식으로 답하세요:
{
  "survival_rate": <0-100 사이의 정수>,
  "change": "<+/- 숫자>"
}

평가 기준 (매우 엄격하게 평가하세요):
- 90-100: 구조 완료 또는 완전히 안전한 장소 도착 (거의 불가능)
- 75-89: 전문 구조대와 함께 있고, 안전한 대피 경로 확보
- 60-74: 적절한 대응을 했으나 여전히 위험 요소 존재
- 45-59: 위험한 상황, 잘못된 선택 시 생명 위협
- 30-44: 매우 위험, 즉각적 대응 없으면 사망 가능
- 15-29: 극도로 위험, 생존 가능성 낮음
- 0-14: 거의 사망 확정 상황

**중요:** 이것은 재난 상황입니다. 낙관적으로 평가하지 마세요.
- 초기 상황: 대부분 30-50%%
- 좋은 선택 후: 50-70%%
- 최선의 대응: 70-85%%
- 100%%는 구조 완료 시에만 가능

예시:
- "물이 차오르는 지하 주차장": 35%% (매우 위험)
- "119 신고 완료, 5분 내 도착 예정": 55%% (여전히 위험)
- "구조대 도착, 안전한 곳으로 이동 중": 75%% (안정적)

change는:
- 첫 턴이면: "0"
- 이후 턴이면: 이전 선택이 생존률에 미친 영향 (+10, -5 등)

**JSON만 출력하세요. 다른 설명은 불필요합니다.**`,
		scenarioTitle, context, situation)
	return Prompt{System: survivalSystem, User: user}
}

// ComposeFeedbackPrompt builds the prompt grading the previous turn's choice
// against its outcome.
func ComposeFeedbackPrompt(scenarioTitle, chosenAction, previousSituation, currentSituation string, availableChoices []string) Prompt {
	user := fmt.Sprintf(`=== 시나리오 ===
재난 유형: %s

=== 이전 상황 ===
%s

=== 선택 가능했던 행동들 ===
%s

=== 사용자가 선택한 행동 ===
%s

=== 결과 (현재 상황) ===
%s

위 선택을 평가하여 다음을 JSON 형식으로 답하세요:
{
  "chosen_action": "%s",
  "evaluation": "<excellent/good/neutral/risky/dangerous>",
  "comment": "<1-2문장의 전문가 코멘트>",
  "better_choice": "<더 나은 선택이 있었다면 그것, 없으면 null>",
  "survival_impact": "<+/- 숫자>"
}

평가 기준:
- excellent: 최선의 선택, 생존률 크게 향상
- good: 적절한 선택, 생존률 향상
- neutral: 무난한 선택, 큰 변화 없음
- risky: 위험한 선택, 생존률 하락
- dangerous: 매우 위험한 선택, 생존률 크게 하락

comment는 짧고 명확하게, 왜 그런 평가인지 설명하세요.
better_choice는 선택한 것보다 더 나은 선택이 명백히 있었을 때만 제시하세요.

**JSON만 출력하세요. 다른 설명은 불필요합니다.**`,
		scenarioTitle, previousSituation, strings.Join(availableChoices, ", "),
		chosenAction, currentSituation, chosenAction)
	return Prompt{System: feedbackSystem, User: user}
}

// ComposeSafetyGuidePrompt builds the marine safety advisory prompt from a
// summarized tide series.
func ComposeSafetyGuidePrompt(lat, lon float64, date string, summary TideSummary) Prompt {
	trendKR := map[string]string{
		TrendRising:  "상승 중",
		TrendFalling: "하락 중",
		TrendStable:  "안정적",
	}[summary.Statistics.Trend]
	if trendKR == "" {
		trendKR = "알 수 없음"
	}

	summaryJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		summaryJSON = []byte("{}")
	}

	user := fmt.Sprintf(`=== 위치 정보 ===
위도: %v
경도: %v
날짜: %s

=== 조위 데이터 요약 ===
현재 조위: %dcm
조위 변화 추세: %s
최고 조위: %dcm
최저 조위: %dcm
평균 조위: %vcm

만조 시간대: %s
간조 시간대: %s

전체 데이터:
%s

위 해양 데이터를 분석하여 안전 가이드를 생성하세요.

다음 JSON 형식으로 답변하세요:
{
  "location": {
    "latitude": %v,
    "longitude": %v
  },
  "date": "%s",
  "risk_level": "<low/medium/high/critical>",
  "risk_score": <0-100 사이의 정수>,
  "summary": "<해양 상황 요약 (2-3문장)>",
  "warnings": ["<주의사항 1>", "<주의사항 2>", ...],
  "recommendations": ["<권장사항 1>", "<권장사항 2>", ...],
  "emergency_contacts": ["119", "해양경찰 122"]
}

위험도 평가 기준:
- critical (90-100): 즉시 대피 필요, 생명 위협
- high (70-89): 매우 위험, 해양 활동 금지
- medium (40-69): 주의 필요, 제한적 활동만 가능
- low (0-39): 안전, 일반적인 주의사항 준수

조위 데이터 분석 시 고려사항:
1. 만조/간조 시간과 현재 시각의 관계
2. 조위 높이의 변화 추세 (상승/하락)
3. 이상 조위 여부 (평균 대비)
4. 해양 활동 가능 시간대

warnings는 구체적인 위험 요소를 나열하세요 (예: "만조 시간대 접근 금지", "높은 파도 예상").
recommendations는 실행 가능한 행동 지침을 제시하세요 (예: "안전 거리 유지", "구명조끼 착용").

**JSON만 출력하세요. 다른 설명은 불필요합니다.**`,
		lat, lon, date,
		summary.Statistics.CurrentCM, trendKR,
		summary.Statistics.MaxCM, summary.Statistics.MinCM, summary.Statistics.AvgCM,
		tidesOrNone(summary.HighTides), tidesOrNone(summary.LowTides),
		summaryJSON, lat, lon, date)
	return Prompt{System: safetyGuideSystem, User: user}
}

// tidesOrNone renders up to three extrema readings as compact JSON, or the
// Korean "no data" marker when the list is empty.
func tidesOrNone(readings []TideReading) string {
	if len(readings) == 0 {
		return "데이터 없음"
	}
	if len(readings) > 3 {
		readings = readings[:3]
	}
	b, err := json.Marshal(readings)
	if err != nil {
		return "데이터 없음"
	}
	return string(b)
}

// truncateRunes cuts s to at most n runes. Korean text is multi-byte, so a
// byte slice would split characters.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
