package gemini

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/couchcryptid/outage-notice-etl/internal/domain"
)

type scheduleResponse struct {
	Notices []domain.RawSchedule `json:"notices"`
}

var fencedJSON = regexp.MustCompile("(?s)```json(.*?)```")

// DecodeSchedules pulls the schedule payload out of a model response.
// Models wrap JSON unpredictably, so three forms are tried in order:
// a ```json fenced block, the outermost brace-delimited substring, and
// the raw text. The second return is false when none decodes; callers
// treat that as zero schedules, not an error.
func DecodeSchedules(text string) ([]domain.RawSchedule, bool) {
	for _, candidate := range jsonCandidates(text) {
		var resp scheduleResponse
		if err := json.Unmarshal([]byte(candidate), &resp); err == nil {
			return resp.Notices, true
		}
	}
	return nil, false
}

func jsonCandidates(text string) []string {
	var candidates []string
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}
	return append(candidates, text)
}
