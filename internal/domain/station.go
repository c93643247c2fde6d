package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// earthRadiusKM is the mean Earth radius used for great-circle distances.
const earthRadiusKM = 6371.0

// Known field aliases across KHOA data-kind endpoints. Exact keys are tried
// first, then normalized-key lookup (see normalizeKey).
var (
	codeKeys     = []string{"ObsCode", "obsCode", "obs_code", "obs_post_id", "obsPostId"}
	latKeys      = []string{"ObsLat", "obsLat", "obs_lat", "latitude", "lat"}
	lonKeys      = []string{"ObsLon", "obsLon", "obs_lon", "longitude", "lon"}
	nameKeys     = []string{"ObsName", "obsName", "obs_name", "name", "obs_post_name", "obsPostName"}
	objectKeys   = []string{"obs_object", "obsObject", "obsobject"}
	dataTypeKeys = []string{"data_type", "dataType"}
)

// StationFilters narrows station candidates before distance ranking.
// Zero-valued fields are not applied.
type StationFilters struct {
	// RequiredTypes accepts only candidates whose data_type field equals one
	// of these values (candidates without the field pass).
	RequiredTypes []string

	// RequiredPrefixes accepts only candidates whose code starts with one of
	// these prefixes.
	RequiredPrefixes []string

	// RequiredTerms accepts only candidates whose obs_object classification
	// contains every term (candidates without the field pass).
	RequiredTerms []string
}

// NearestStation resolves the listing candidate closest to (lat, lon) that
// survives the filters. The listing schema is untrusted: candidates are
// located by recursive descent, fields by alias and normalized-key lookup.
// Exact distance ties keep the first candidate in listing order.
func NearestStation(listing any, lat, lon float64, filters StationFilters) (StationInfo, error) {
	items := extractItems(listing)
	if len(items) == 0 {
		if msg := extractErrorMessage(listing); msg != "" {
			return StationInfo{}, fmt.Errorf("%w: %s", ErrNoStationFound, msg)
		}
		return StationInfo{}, ErrNoStationFound
	}

	var (
		nearest *StationInfo
		usable  int
	)
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}

		code := asString(firstValue(fields, codeKeys))
		latVal, latOK := asFloat(firstValue(fields, latKeys))
		lonVal, lonOK := asFloat(firstValue(fields, lonKeys))
		if code == "" || !latOK || !lonOK {
			continue
		}
		usable++

		if !matchesFilters(fields, code, filters) {
			continue
		}

		distance := HaversineKM(lat, lon, latVal, lonVal)
		if nearest == nil || distance < nearest.DistanceKM {
			nearest = &StationInfo{
				ObsCode:    code,
				ObsName:    asString(firstValue(fields, nameKeys)),
				Latitude:   latVal,
				Longitude:  lonVal,
				DistanceKM: distance,
			}
		}
	}

	switch {
	case nearest != nil:
		return *nearest, nil
	case usable == 0:
		return StationInfo{}, ErrNoCoordinateData
	default:
		return StationInfo{}, fmt.Errorf("%w: %d candidates rejected by filters", ErrNoStationFound, usable)
	}
}

func matchesFilters(fields map[string]any, code string, filters StationFilters) bool {
	if len(filters.RequiredTypes) > 0 {
		if dataType := asString(firstValue(fields, dataTypeKeys)); dataType != "" {
			if !containsString(filters.RequiredTypes, dataType) {
				return false
			}
		}
	}

	if len(filters.RequiredPrefixes) > 0 {
		matched := false
		for _, prefix := range filters.RequiredPrefixes {
			if strings.HasPrefix(code, prefix) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(filters.RequiredTerms) > 0 {
		if object := asString(firstValue(fields, objectKeys)); object != "" {
			for _, term := range filters.RequiredTerms {
				if !strings.Contains(object, term) {
					return false
				}
			}
		}
	}

	return true
}

// HaversineKM computes the great-circle distance between two coordinates.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// firstValue looks a field up by its alias list: exact keys first, then
// normalized keys. Values wrapped as {"value": x} are unwrapped. Returns nil
// when no alias carries a non-empty value.
func firstValue(fields map[string]any, keys []string) any {
	for _, key := range keys {
		if v, ok := fields[key]; ok && !isEmpty(v) {
			return unwrapValue(v)
		}
	}

	normalized := make(map[string]string, len(fields))
	for k := range fields {
		normalized[normalizeKey(k)] = k
	}
	for _, key := range keys {
		if orig, ok := normalized[normalizeKey(key)]; ok {
			if v := fields[orig]; !isEmpty(v) {
				return unwrapValue(v)
			}
		}
	}
	return nil
}

// unwrapValue handles the {"value": x} wrapping some endpoints apply.
func unwrapValue(v any) any {
	wrapper, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for _, key := range []string{"value", "Value", "val"} {
		if inner, ok := wrapper[key]; ok && !isEmpty(inner) {
			return inner
		}
	}
	return v
}

// normalizeKey lowercases and strips non-alphanumerics so "Obs_Code",
// "obsCode", and "OBSCODE" all collide.
func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// extractItems locates the candidate list inside an arbitrarily nested
// payload: a bare list, a single station-shaped object, a known wrapper key,
// or any nested value that itself yields items.
func extractItems(payload any) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		if looksLikeStation(v) {
			return []any{v}
		}
		for _, key := range []string{"data", "Data", "result", "Result", "item", "items", "list", "List"} {
			if nested, ok := v[key]; ok {
				if items := extractItems(nested); len(items) > 0 {
					return items
				}
			}
		}
		for _, nested := range v {
			if items := extractItems(nested); len(items) > 0 {
				return items
			}
		}
	}
	return nil
}

// looksLikeStation reports whether a payload object is itself a station
// record rather than a wrapper.
func looksLikeStation(fields map[string]any) bool {
	keys := make(map[string]bool, len(fields))
	for k := range fields {
		keys[normalizeKey(k)] = true
	}
	if keys["obspostid"] || keys["obscode"] {
		return true
	}
	return keys["obslat"] && keys["obslon"]
}

// extractErrorMessage pulls an upstream error description from a payload that
// yielded no stations, for diagnosis only.
func extractErrorMessage(payload any) string {
	fields, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"error", "Error", "message", "Message"} {
		if v, ok := fields[key]; ok && !isEmpty(v) {
			return asString(v)
		}
	}
	result, ok := fields["result"].(map[string]any)
	if !ok {
		result, ok = fields["Result"].(map[string]any)
	}
	if ok {
		for _, key := range []string{"msg", "message", "error", "Error", "code", "resultCode"} {
			if v, ok := result[key]; ok && !isEmpty(v) {
				return asString(v)
			}
		}
	}
	return ""
}

func isEmpty(v any) bool {
	return v == nil || v == ""
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
