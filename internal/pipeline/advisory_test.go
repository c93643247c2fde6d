package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danbi-studio/disaster-sim-service/internal/domain"
	"github.com/danbi-studio/disaster-sim-service/internal/observability"
	"github.com/danbi-studio/disaster-sim-service/internal/pipeline"
)

// --- mocks ---

type recordingLocator struct {
	station domain.StationInfo
	err     error

	gotKind    string
	gotFilters domain.StationFilters
}

func (m *recordingLocator) Nearest(_ context.Context, kind string, _, _ float64, filters domain.StationFilters) (domain.StationInfo, error) {
	m.gotKind = kind
	m.gotFilters = filters
	return m.station, m.err
}

type recordingFetcher struct {
	payload any
	err     error

	gotKind string
	gotCode string
	gotDate string
}

func (m *recordingFetcher) FetchSeries(_ context.Context, kind, obsCode, date string) (any, error) {
	m.gotKind = kind
	m.gotCode = obsCode
	m.gotDate = date
	return m.payload, m.err
}

func incheonStation() domain.StationInfo {
	return domain.StationInfo{ObsCode: "DT_0001", ObsName: "인천", Latitude: 37.4519, Longitude: 126.5918, DistanceKM: 35.9}
}

func tidePayload() any {
	return map[string]any{
		"result": map[string]any{
			"data": []any{
				map[string]any{"record_time": "2026-08-30 00:00:00", "tide_level": "512"},
				map[string]any{"record_time": "2026-08-30 00:10:00", "tide_level": "498"},
				map[string]any{"record_time": "2026-08-30 00:20:00", "tide_level": "485"},
			},
		},
	}
}

func newAdvisory(locator *recordingLocator, fetcher *recordingFetcher, gen *scriptedGenerator, audit pipeline.AuditPublisher) *pipeline.Advisory {
	return pipeline.NewAdvisory(locator, fetcher, gen, audit, discardLogger(), observability.NewMetricsForTesting())
}

func seoulQuery() pipeline.OceanQuery {
	return pipeline.OceanQuery{Latitude: 37.5665, Longitude: 126.9780, Date: "20260830"}
}

// --- Tide ---

func TestAdvisoryTide(t *testing.T) {
	locator := &recordingLocator{station: incheonStation()}
	fetcher := &recordingFetcher{payload: tidePayload()}
	a := newAdvisory(locator, fetcher, &scriptedGenerator{}, nil)

	obs, err := a.Tide(context.Background(), seoulQuery())
	require.NoError(t, err)

	assert.Equal(t, "DT_0001", obs.Station.ObsCode)
	assert.NotNil(t, obs.Data)

	// tide queries resolve stations from the catalog endpoint with the full
	// tide preset
	assert.Equal(t, "ObsServiceObj", locator.gotKind)
	assert.Equal(t, []string{"조위관측소"}, locator.gotFilters.RequiredTypes)
	assert.Equal(t, []string{"DT_"}, locator.gotFilters.RequiredPrefixes)
	assert.Equal(t, []string{"조위"}, locator.gotFilters.RequiredTerms)

	assert.Equal(t, "tideObs", fetcher.gotKind)
	assert.Equal(t, "DT_0001", fetcher.gotCode)
	assert.Equal(t, "20260830", fetcher.gotDate)
}

func TestAdvisoryTide_StationKindForcedToCatalog(t *testing.T) {
	locator := &recordingLocator{station: incheonStation()}
	fetcher := &recordingFetcher{payload: tidePayload()}
	a := newAdvisory(locator, fetcher, &scriptedGenerator{}, nil)

	q := seoulQuery()
	q.DataKind = "tideObs"
	q.StationKind = "tideObs" // series endpoints carry no coordinates

	_, err := a.Tide(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "ObsServiceObj", locator.gotKind)
}

func TestAdvisoryTide_WaveAndFogPresets(t *testing.T) {
	tests := []struct {
		kind  string
		terms []string
	}{
		{"obsWaveHight", []string{"파고"}},
		{"seafogReal", []string{"해무"}},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			locator := &recordingLocator{station: incheonStation()}
			fetcher := &recordingFetcher{payload: tidePayload()}
			a := newAdvisory(locator, fetcher, &scriptedGenerator{}, nil)

			q := seoulQuery()
			q.DataKind = tt.kind

			_, err := a.Tide(context.Background(), q)
			require.NoError(t, err)
			assert.Equal(t, tt.terms, locator.gotFilters.RequiredTerms)
			assert.Empty(t, locator.gotFilters.RequiredTypes)
			assert.Empty(t, locator.gotFilters.RequiredPrefixes)
			assert.Equal(t, tt.kind, fetcher.gotKind)
		})
	}
}

func TestAdvisoryTide_DefaultDate(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	locator := &recordingLocator{station: incheonStation()}
	fetcher := &recordingFetcher{payload: tidePayload()}
	a := newAdvisory(locator, fetcher, &scriptedGenerator{}, nil)

	q := seoulQuery()
	q.Date = ""

	_, err := a.Tide(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "20260830", fetcher.gotDate)
}

func TestAdvisoryTide_LocatorErrorPropagates(t *testing.T) {
	locator := &recordingLocator{err: domain.ErrNoStationFound}
	a := newAdvisory(locator, &recordingFetcher{}, &scriptedGenerator{}, nil)

	_, err := a.Tide(context.Background(), seoulQuery())
	assert.ErrorIs(t, err, domain.ErrNoStationFound)
}

func TestAdvisoryTide_FetchErrorPropagates(t *testing.T) {
	locator := &recordingLocator{station: incheonStation()}
	fetcher := &recordingFetcher{err: &domain.StationFetchError{Kind: "tideObs", Err: errors.New("status 502")}}
	a := newAdvisory(locator, fetcher, &scriptedGenerator{}, nil)

	_, err := a.Tide(context.Background(), seoulQuery())
	require.Error(t, err)

	var fetchErr *domain.StationFetchError
	assert.True(t, errors.As(err, &fetchErr))
}

// --- SafetyGuide ---

func TestAdvisorySafetyGuide(t *testing.T) {
	locator := &recordingLocator{station: incheonStation()}
	fetcher := &recordingFetcher{payload: tidePayload()}
	gen := &scriptedGenerator{
		responses: []string{"```json\n" + `{
			"location": {"latitude": 37.5665, "longitude": 126.978},
			"date": "20260830",
			"risk_level": "high",
			"risk_score": 78,
			"summary": "조위가 높아 해안 접근이 위험합니다.",
			"warnings": ["만조 시간대 접근 금지"],
			"recommendations": ["안전 거리 유지"],
			"emergency_contacts": ["119", "해양경찰 122"]
		}` + "\n```"},
	}
	audit := &capturingPublisher{}
	a := newAdvisory(locator, fetcher, gen, audit)

	result, err := a.SafetyGuide(context.Background(), seoulQuery())
	require.NoError(t, err)

	assert.Equal(t, "DT_0001", result.Station.ObsCode)
	assert.Equal(t, 3, result.Summary.TotalRecords)
	assert.Equal(t, domain.RiskHigh, result.Guide.RiskLevel)
	assert.Equal(t, 78, result.Guide.RiskScore)
	assert.Equal(t, []string{"만조 시간대 접근 금지"}, result.Guide.Warnings)

	require.Len(t, audit.guides, 1)
	assert.Equal(t, "DT_0001", audit.guides[0].ObsCode)
	assert.Equal(t, domain.RiskHigh, audit.guides[0].RiskLevel)
	assert.Equal(t, 78, audit.guides[0].RiskScore)
}

func TestAdvisorySafetyGuide_DefaultsOnUnparsableOutput(t *testing.T) {
	locator := &recordingLocator{station: incheonStation()}
	fetcher := &recordingFetcher{payload: tidePayload()}
	gen := &scriptedGenerator{responses: []string{"조위 상황을 말로 설명드리면 다음과 같습니다."}}
	a := newAdvisory(locator, fetcher, gen, nil)

	result, err := a.SafetyGuide(context.Background(), seoulQuery())
	require.NoError(t, err)

	assert.Equal(t, domain.RiskMedium, result.Guide.RiskLevel)
	assert.Equal(t, 50, result.Guide.RiskScore)
	assert.Equal(t, 37.5665, result.Guide.Location.Latitude)
	assert.Equal(t, "20260830", result.Guide.Date)
	assert.Equal(t, []string{"119", "해양경찰 122"}, result.Guide.EmergencyContacts)
}

func TestAdvisorySafetyGuide_ClampsRiskScore(t *testing.T) {
	locator := &recordingLocator{station: incheonStation()}
	fetcher := &recordingFetcher{payload: tidePayload()}
	gen := &scriptedGenerator{responses: []string{`{"risk_level": "critical", "risk_score": 250}`}}
	a := newAdvisory(locator, fetcher, gen, nil)

	result, err := a.SafetyGuide(context.Background(), seoulQuery())
	require.NoError(t, err)
	assert.Equal(t, 100, result.Guide.RiskScore)
}

func TestAdvisorySafetyGuide_GenerationFailure(t *testing.T) {
	locator := &recordingLocator{station: incheonStation()}
	fetcher := &recordingFetcher{payload: tidePayload()}
	gen := &scriptedGenerator{invokeErr: map[int]error{0: errors.New("backend down")}}
	audit := &capturingPublisher{}
	a := newAdvisory(locator, fetcher, gen, audit)

	_, err := a.SafetyGuide(context.Background(), seoulQuery())
	require.Error(t, err)

	var genErr *domain.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "safety_guide", genErr.Stage)

	assert.Empty(t, audit.guides, "failed guides are not audited")
}
