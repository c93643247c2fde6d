package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testRequest = ScenarioRequest{
	Scenario: Scenario{
		Title:       "태풍 대비 훈련",
		Description: "여름철 태풍 대비 비상 대응 훈련",
		StartDate:   "2024-07-15",
	},
	Report: Report{
		Title:        "침수 피해 발생",
		Description:  "강남역 인근 지하 주차장 침수 발생, 차량 10대 이상 피해",
		Latitude:     37.5665,
		Longitude:    126.9780,
		ReportedDate: "2024-07-15T14:30:00",
	},
}

func TestComposeSituationPrompt_Initial(t *testing.T) {
	p := ComposeSituationPrompt(testRequest)

	assert.Contains(t, p.System, "1인칭 시점")
	assert.Contains(t, p.User, testRequest.Report.Description)
	assert.Contains(t, p.User, testRequest.Scenario.Title)
	assert.Contains(t, p.User, "37.5665")
	assert.Contains(t, p.User, "126.978")
	assert.NotContains(t, p.User, "지금까지의 경과")
}

func TestComposeSituationPrompt_Continuation(t *testing.T) {
	req := testRequest
	req.History = []TurnRecord{
		{Situation: "물이 빠르게 차오르고 있다.", Choice: "119에 신고한다"},
		{Situation: "119에 연락했다. 5분 내 도착 예정이라고 한다.", Choice: "차량 위로 올라간다"},
	}

	p := ComposeSituationPrompt(req)

	assert.Contains(t, p.System, "모든 선택과 그 결과")
	// every turn's situation and choice appears verbatim
	for i, turn := range req.History {
		assert.Contains(t, p.User, turn.Situation)
		assert.Contains(t, p.User, turn.Choice)
		assert.Contains(t, p.User, fmt.Sprintf("[%d번째 상황]", i+1))
	}
	// the latest choice is singled out
	assert.Contains(t, p.User, `가장 최근 선택("차량 위로 올라간다")`)
}

func TestComposeSituationPrompt_LongHistoryKeepsEveryTurn(t *testing.T) {
	req := testRequest
	for i := 0; i < 12; i++ {
		req.History = append(req.History, TurnRecord{
			Situation: fmt.Sprintf("상황 %d가 전개되었다.", i),
			Choice:    fmt.Sprintf("행동 %d를 선택했다", i),
		})
	}

	p := ComposeSituationPrompt(req)

	for _, turn := range req.History {
		assert.Contains(t, p.User, turn.Choice)
	}
}

func TestComposeChoicesPrompt(t *testing.T) {
	t.Run("no history", func(t *testing.T) {
		p := ComposeChoicesPrompt("지하 주차장에 물이 차오르고 있다.", nil)

		assert.Contains(t, p.User, "지하 주차장에 물이 차오르고 있다.")
		assert.Contains(t, p.User, "1. [첫 번째 행동]")
		assert.NotContains(t, p.User, "지금까지의 경과")
	})

	t.Run("with history", func(t *testing.T) {
		history := []TurnRecord{{Situation: "물이 차오른다.", Choice: "119에 신고한다"}}
		p := ComposeChoicesPrompt("구조대가 오고 있다.", history)

		assert.Contains(t, p.User, "지금까지의 경과")
		assert.Contains(t, p.User, "119에 신고한다")
	})

	t.Run("long situations are truncated in context", func(t *testing.T) {
		long := ""
		for i := 0; i < 30; i++ {
			long += "매우 긴 상황 설명이다. "
		}
		history := []TurnRecord{{Situation: long, Choice: "버틴다"}}
		p := ComposeChoicesPrompt("다음 상황", history)

		assert.NotContains(t, p.User, long)
		assert.Contains(t, p.User, "버틴다")
	})
}

func TestComposeSurvivalPrompt(t *testing.T) {
	t.Run("first turn has no previous context", func(t *testing.T) {
		p := ComposeSurvivalPrompt("태풍 대비 훈련", "물이 차오른다.", nil)

		assert.Contains(t, p.User, "태풍 대비 훈련")
		assert.Contains(t, p.User, "survival_rate")
		assert.NotContains(t, p.User, "이전 상황")
	})

	t.Run("later turns include the previous turn", func(t *testing.T) {
		history := []TurnRecord{{Situation: "물이 차오른다.", Choice: "119에 신고한다"}}
		p := ComposeSurvivalPrompt("태풍 대비 훈련", "구조를 기다린다.", history)

		assert.Contains(t, p.User, "이전 상황")
		assert.Contains(t, p.User, "119에 신고한다")
	})

	t.Run("carries the grading rubric and calibration examples", func(t *testing.T) {
		p := ComposeSurvivalPrompt("태풍 대비 훈련", "물이 차오른다.", nil)

		assert.Contains(t, p.User, "평가 기준")
		assert.Contains(t, p.User, "예시:")
		assert.Contains(t, p.User, `"물이 차오르는 지하 주차장": 35% (매우 위험)`)
		assert.Contains(t, p.User, `"구조대 도착, 안전한 곳으로 이동 중": 75% (안정적)`)
	})
}

func TestComposeFeedbackPrompt(t *testing.T) {
	choices := []string{"밖으로 나간다", "기다린다", "소리친다"}
	p := ComposeFeedbackPrompt("태풍 대비 훈련", "119에 신고한다", "물이 차오른다.", "구조대가 도착했다.", choices)

	assert.Contains(t, p.User, "119에 신고한다")
	assert.Contains(t, p.User, "물이 차오른다.")
	assert.Contains(t, p.User, "구조대가 도착했다.")
	assert.Contains(t, p.User, "밖으로 나간다, 기다린다, 소리친다")
	for _, eval := range []string{EvalExcellent, EvalGood, EvalNeutral, EvalRisky, EvalDangerous} {
		assert.Contains(t, p.User, eval)
	}
}

func TestComposeSafetyGuidePrompt(t *testing.T) {
	summary := TideSummary{
		TotalRecords: 48,
		Statistics: TideStats{
			MaxCM:     712,
			MinCM:     102,
			AvgCM:     401.5,
			CurrentCM: 695,
			Trend:     TrendRising,
		},
		HighTides: []TideReading{{Time: "2024-01-15 04:30:00", Level: 710}},
	}

	p := ComposeSafetyGuidePrompt(37.5665, 126.978, "20240115", summary)

	assert.Contains(t, p.System, "해양 안전 전문가")
	assert.Contains(t, p.User, "695cm")
	assert.Contains(t, p.User, "상승 중")
	assert.Contains(t, p.User, "712cm")
	assert.Contains(t, p.User, "20240115")
	assert.Contains(t, p.User, "2024-01-15 04:30:00")
	assert.Contains(t, p.User, "간조 시간대: 데이터 없음")
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"shorter than limit", "짧은 글", 50, "짧은 글"},
		{"exactly at limit", "abc", 3, "abc"},
		{"hangul cut at rune boundary", "가나다라마", 3, "가나다"},
		{"empty", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncateRunes(tt.input, tt.n))
		})
	}
}
