package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danbi-studio/disaster-sim-service/internal/domain"
	"github.com/danbi-studio/disaster-sim-service/internal/observability"
)

// Data kinds with station filter presets.
const (
	KindTide    = "tideObs"
	KindWave    = "obsWaveHight"
	KindSeaFog  = "seafogReal"
	KindCatalog = "ObsServiceObj"
)

// OceanQuery is one location-based ocean data request.
type OceanQuery struct {
	Latitude    float64
	Longitude   float64
	Date        string // YYYYMMDD, defaults to today
	DataKind    string // series endpoint, defaults to tideObs
	StationKind string // station catalog endpoint, defaults to ObsServiceObj
}

// normalize fills defaults. The station listing kind falls back to the
// catalog endpoint when unset, and also when it equals a series kind, since
// series endpoints carry no station coordinates.
func (q OceanQuery) normalize() OceanQuery {
	if q.DataKind == "" {
		q.DataKind = KindTide
	}
	if q.StationKind == "" {
		q.StationKind = KindCatalog
	}
	switch q.DataKind {
	case KindTide, KindWave, KindSeaFog:
		if q.StationKind == q.DataKind {
			q.StationKind = KindCatalog
		}
	}
	if q.Date == "" {
		q.Date = domain.DefaultObservationDate()
	}
	return q
}

// FiltersForKind returns the station filter preset for a series kind.
// Unknown kinds get no filtering.
func FiltersForKind(kind string) domain.StationFilters {
	switch kind {
	case KindTide:
		return domain.StationFilters{
			RequiredTypes:    []string{"조위관측소"},
			RequiredPrefixes: []string{"DT_"},
			RequiredTerms:    []string{"조위"},
		}
	case KindWave:
		return domain.StationFilters{RequiredTerms: []string{"파고"}}
	case KindSeaFog:
		return domain.StationFilters{RequiredTerms: []string{"해무"}}
	default:
		return domain.StationFilters{}
	}
}

// TideObservation pairs the resolved station with the raw series payload.
type TideObservation struct {
	Station domain.StationInfo
	Data    any
}

// GuideResult is a generated safety guide with its supporting data.
type GuideResult struct {
	Station domain.StationInfo
	Summary domain.TideSummary
	Guide   domain.SafetyGuide
}

// Advisory drives location-based ocean lookups: resolve the nearest station,
// fetch its series, and optionally turn the summarized series into a safety
// guide.
type Advisory struct {
	locator   domain.StationLocator
	fetcher   domain.SeriesFetcher
	generator domain.Generator
	audit     AuditPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewAdvisory creates the advisory orchestrator. audit may be nil.
func NewAdvisory(locator domain.StationLocator, fetcher domain.SeriesFetcher, g domain.Generator, audit AuditPublisher, logger *slog.Logger, metrics *observability.Metrics) *Advisory {
	return &Advisory{
		locator:   locator,
		fetcher:   fetcher,
		generator: g,
		audit:     audit,
		logger:    logger,
		metrics:   metrics,
	}
}

// Tide resolves the nearest station for the query and returns its raw series.
func (a *Advisory) Tide(ctx context.Context, query OceanQuery) (TideObservation, error) {
	q := query.normalize()

	station, err := a.resolveStation(ctx, q)
	if err != nil {
		return TideObservation{}, err
	}

	data, err := a.fetchSeries(ctx, q, station)
	if err != nil {
		return TideObservation{}, err
	}

	return TideObservation{Station: station, Data: data}, nil
}

// SafetyGuide generates a safety guide for the query location from the
// summarized series. Generation output that cannot be decoded falls back to
// a medium-risk default; only backend failures surface as errors.
func (a *Advisory) SafetyGuide(ctx context.Context, query OceanQuery) (GuideResult, error) {
	start := time.Now()
	q := query.normalize()

	station, err := a.resolveStation(ctx, q)
	if err != nil {
		return GuideResult{}, err
	}

	data, err := a.fetchSeries(ctx, q, station)
	if err != nil {
		return GuideResult{}, err
	}
	summary := domain.SummarizeTideSeries(data)

	guide, err := a.generateGuide(ctx, q, summary)
	if err != nil {
		return GuideResult{}, err
	}

	a.metrics.AdvisoryLatency.Observe(time.Since(start).Seconds())
	a.publishGuide(ctx, station, guide)

	return GuideResult{Station: station, Summary: summary, Guide: guide}, nil
}

func (a *Advisory) resolveStation(ctx context.Context, q OceanQuery) (domain.StationInfo, error) {
	station, err := a.locator.Nearest(ctx, q.StationKind, q.Latitude, q.Longitude, FiltersForKind(q.DataKind))
	switch {
	case err == nil:
		a.metrics.StationLookups.WithLabelValues(q.DataKind, "success").Inc()
		return station, nil
	case errors.Is(err, domain.ErrNoStationFound), errors.Is(err, domain.ErrNoCoordinateData):
		a.metrics.StationLookups.WithLabelValues(q.DataKind, "not_found").Inc()
		return domain.StationInfo{}, err
	default:
		a.metrics.StationLookups.WithLabelValues(q.DataKind, "error").Inc()
		return domain.StationInfo{}, err
	}
}

func (a *Advisory) fetchSeries(ctx context.Context, q OceanQuery, station domain.StationInfo) (any, error) {
	data, err := a.fetcher.FetchSeries(ctx, q.DataKind, station.ObsCode, q.Date)
	if err != nil {
		a.metrics.TideFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	a.metrics.TideFetches.WithLabelValues("success").Inc()
	return data, nil
}

func (a *Advisory) generateGuide(ctx context.Context, q OceanQuery, summary domain.TideSummary) (domain.SafetyGuide, error) {
	start := time.Now()
	prompt := domain.ComposeSafetyGuidePrompt(q.Latitude, q.Longitude, q.Date, summary)

	raw, err := a.generator.Invoke(ctx, prompt.System, prompt.User)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	a.metrics.GenerationRequests.WithLabelValues(stageSafetyGuide, outcome).Inc()
	a.metrics.GenerationDuration.WithLabelValues(stageSafetyGuide).Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.SafetyGuide{}, &domain.GenerationError{Stage: stageSafetyGuide, Err: err}
	}

	guide := domain.DecodeOrDefault(raw, defaultGuide(q))
	guide.RiskScore = clampScore(guide.RiskScore)
	return guide, nil
}

// defaultGuide is the medium-risk fallback when guide decoding fails.
func defaultGuide(q OceanQuery) domain.SafetyGuide {
	return domain.SafetyGuide{
		Location:          domain.Coordinate{Latitude: q.Latitude, Longitude: q.Longitude},
		Date:              q.Date,
		RiskLevel:         domain.RiskMedium,
		RiskScore:         50,
		Summary:           "해양 데이터를 분석했습니다.",
		EmergencyContacts: []string{"119", "해양경찰 122"},
	}
}

// publishGuide records the issued guide on the audit topic. Failures are
// logged and never fail the request.
func (a *Advisory) publishGuide(ctx context.Context, station domain.StationInfo, guide domain.SafetyGuide) {
	if a.audit == nil {
		return
	}
	audit := domain.NewGuideAudit(station, guide)
	if err := a.audit.PublishSafetyGuide(ctx, audit); err != nil {
		a.logger.Warn("publish guide audit failed", "error", err, "obs_code", station.ObsCode)
		a.metrics.AuditPublished.WithLabelValues("safety_guide", "error").Inc()
		return
	}
	a.metrics.AuditPublished.WithLabelValues("safety_guide", "success").Inc()
}
