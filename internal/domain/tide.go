package domain

import (
	"math"
	"strconv"
	"strings"
)

// Reading field aliases in tide series payloads.
var (
	levelKeys = []string{"tide_level", "tideLevel"}
	timeKeys  = []string{"record_time", "recordTime"}
)

const (
	maxExtrema = 5
	maxSamples = 24
	// sampleWindow assumes the typical 48-reading half-day series; the stride
	// is total/sampleWindow so a full day still yields about one reading per
	// interval.
	sampleWindow = 48

	// trendWindow readings are compared against the preceding trendWindow;
	// a mean shift beyond trendThreshold centimeters classifies the trend.
	trendWindow    = 10
	trendThreshold = 5
)

// SummarizeTideSeries reduces a raw station series to statistics, trend,
// extrema, and a bounded sample. It never fails: a structurally unusable
// payload yields a partial summary with a diagnostic Note instead of an
// error, so the advisory pipeline can always continue.
func SummarizeTideSeries(payload any) TideSummary {
	records := extractReadingList(payload)
	if len(records) == 0 {
		return TideSummary{Note: "데이터 없음"}
	}

	levels := make([]int, 0, len(records))
	readings := make([]TideReading, 0, len(records))
	for _, record := range records {
		fields, ok := record.(map[string]any)
		if !ok {
			continue
		}
		level, ok := coerceLevel(firstValue(fields, levelKeys))
		if !ok {
			continue
		}
		levels = append(levels, level)
		if t := asString(firstValue(fields, timeKeys)); t != "" {
			readings = append(readings, TideReading{Time: t, Level: level})
		}
	}

	if len(levels) == 0 {
		return TideSummary{TotalRecords: len(records), Note: "조위 데이터 없음"}
	}

	stats := TideStats{
		MaxCM:     levels[0],
		MinCM:     levels[0],
		CurrentCM: levels[len(levels)-1],
		Trend:     classifyTrend(levels),
	}
	sum := 0
	for _, level := range levels {
		if level > stats.MaxCM {
			stats.MaxCM = level
		}
		if level < stats.MinCM {
			stats.MinCM = level
		}
		sum += level
	}
	avg := float64(sum) / float64(len(levels))
	stats.AvgCM = math.Round(avg*10) / 10

	highs, lows := findExtrema(readings, avg)

	return TideSummary{
		TotalRecords: len(records),
		Statistics:   stats,
		HighTides:    highs,
		LowTides:     lows,
		SampledData:  downsample(readings),
	}
}

// classifyTrend compares the mean of the last trendWindow levels against the
// mean of the preceding trendWindow. Fewer than two full windows reads as
// stable.
func classifyTrend(levels []int) string {
	if len(levels) < 2*trendWindow {
		return TrendStable
	}
	recent := meanOf(levels[len(levels)-trendWindow:])
	previous := meanOf(levels[len(levels)-2*trendWindow : len(levels)-trendWindow])
	switch {
	case recent > previous+trendThreshold:
		return TrendRising
	case recent < previous-trendThreshold:
		return TrendFalling
	default:
		return TrendStable
	}
}

// findExtrema collects local highs and lows in time order, capped at
// maxExtrema each. A high must exceed both neighbors strictly and sit at or
// above the overall mean; a low mirrors that below the mean. The comparison
// against the mean suppresses ripples within a rising or falling flank.
func findExtrema(readings []TideReading, avg float64) (highs, lows []TideReading) {
	for i := 1; i < len(readings)-1; i++ {
		level := readings[i].Level
		switch {
		case level > readings[i-1].Level && level > readings[i+1].Level && float64(level) >= avg:
			if len(highs) < maxExtrema {
				highs = append(highs, readings[i])
			}
		case level < readings[i-1].Level && level < readings[i+1].Level && float64(level) <= avg:
			if len(lows) < maxExtrema {
				lows = append(lows, readings[i])
			}
		}
	}
	return highs, lows
}

// downsample selects evenly spaced readings at stride max(1, n/sampleWindow),
// capped at maxSamples.
func downsample(readings []TideReading) []TideReading {
	if len(readings) == 0 {
		return nil
	}
	stride := len(readings) / sampleWindow
	if stride < 1 {
		stride = 1
	}
	sampled := make([]TideReading, 0, maxSamples)
	for i := 0; i < len(readings) && len(sampled) < maxSamples; i += stride {
		sampled = append(sampled, readings[i])
	}
	return sampled
}

// extractReadingList finds the reading array: a bare list, or nested under
// result.data or data.
func extractReadingList(payload any) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		if result, ok := v["result"].(map[string]any); ok {
			if list, ok := result["data"].([]any); ok {
				return list
			}
			return nil
		}
		if list, ok := v["data"].([]any); ok {
			return list
		}
	}
	return nil
}

// coerceLevel converts a reading level to an integer centimeter value.
// Levels arrive as JSON numbers or numeric strings; fractional values are
// truncated.
func coerceLevel(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

func meanOf(levels []int) float64 {
	if len(levels) == 0 {
		return 0
	}
	sum := 0
	for _, level := range levels {
		sum += level
	}
	return float64(sum) / float64(len(levels))
}
