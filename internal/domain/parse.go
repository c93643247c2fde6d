package domain

import (
	"encoding/json"
	"strings"
)

// ExtractFencedJSON isolates the structured portion of a model response.
// Precedence: the interior of the first ```json fence, then the interior of
// the first anonymous ``` fence, then the raw text unmodified.
func ExtractFencedJSON(raw string) string {
	if _, after, ok := strings.Cut(raw, "```json"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	if _, after, ok := strings.Cut(raw, "```"); ok {
		inner, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(inner)
	}
	return strings.TrimSpace(raw)
}

// DecodeOrDefault decodes a model response into T, substituting def on any
// failure. Decoding starts from def, so fields the model omits keep their
// default values; a response that is not valid JSON at all yields def
// unchanged. Parse failures are deliberately silent: a degraded-but-complete
// response beats failing the pipeline on an output-format miss.
func DecodeOrDefault[T any](raw string, def T) T {
	text := ExtractFencedJSON(raw)
	v := def
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return def
	}
	return v
}

// choiceMarkers are the accepted leading markers for the three-choices stage.
var choiceMarkers = []string{"1.", "1)", "2.", "2)", "3.", "3)"}

// ParseNumberedChoices extracts exactly three actions from numbered free
// text. Lines starting with "1."/"1)" through "3."/"3)" are collected in
// order with their markers stripped. If the count is not exactly three, the
// whole raw text becomes the first choice and the other two are empty;
// callers must tolerate empty choice strings.
func ParseNumberedChoices(raw string) [3]string {
	var found []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range choiceMarkers {
			if strings.HasPrefix(line, marker) {
				found = append(found, strings.TrimSpace(line[len(marker):]))
				break
			}
		}
	}

	if len(found) != 3 {
		return [3]string{raw, "", ""}
	}
	return [3]string{found[0], found[1], found[2]}
}
