package pitch

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

const fenceMarker = "```json"

// Normalize extracts a JSON object from raw model output. If the text carries
// a fenced ```json block the slice between the markers is the candidate,
// otherwise the whole text is. Any parse failure returns the caller's
// fallback record unchanged; unstructured prose is a normal case here, not an
// error, so the caller logs and moves on.
func Normalize(raw string, fallback map[string]any) map[string]any {
	candidate := raw
	if idx := strings.Index(raw, fenceMarker); idx >= 0 {
		start := idx + len(fenceMarker)
		rest := raw[start:]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate = rest[:end]
		} else {
			candidate = rest
		}
	}
	candidate = strings.TrimSpace(candidate)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return fallback
	}
	if parsed == nil {
		return fallback
	}
	return parsed
}

// CoerceDisplayValue collapses the nested shapes models emit for market-size
// fields into a single display string. A {"value": ...} wrapper is
// stringified; an {"estimates": [...]} wrapper picks the estimate with the
// highest year and renders "{size} ({year}, {segment})", dropping trailing
// parts that are missing; any other non-empty mapping descends into its
// smallest key once. Nil or empty input renders "N/A".
func CoerceDisplayValue(v any) string {
	return coerceDisplayValue(v, 0)
}

func coerceDisplayValue(v any, depth int) string {
	switch t := v.(type) {
	case nil:
		return "N/A"
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		if len(t) == 0 {
			return "N/A"
		}
		if val, ok := t["value"]; ok {
			return stringify(val)
		}
		if est, ok := t["estimates"]; ok {
			if s := renderEstimates(est); s != "" {
				return s
			}
			return "N/A"
		}
		if depth >= 1 {
			return "N/A"
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return coerceDisplayValue(t[keys[0]], depth+1)
	default:
		return stringify(v)
	}
}

// renderEstimates picks the estimate with the highest year, first one winning
// ties, and formats it for display.
func renderEstimates(v any) string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	best := -1
	bestYear := 0
	for i, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		year := asYear(m["year"])
		if best == -1 || year > bestYear {
			best = i
			bestYear = year
		}
	}
	if best == -1 {
		return ""
	}
	m := list[best].(map[string]any)
	size := strings.TrimSpace(stringify(m["size"]))
	year := strings.TrimSpace(stringify(m["year"]))
	segment := strings.TrimSpace(stringify(m["segment"]))
	switch {
	case size != "" && year != "" && segment != "":
		return size + " (" + year + ", " + segment + ")"
	case size != "" && year != "":
		return size + " (" + year + ")"
	case size != "":
		return size
	default:
		return ""
	}
}

func asYear(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	default:
		return 0
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// TrendRecord accepts either a bare string or a mapping with a "trend" key.
type TrendRecord struct {
	Text string
}

func (t *TrendRecord) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Text = s
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Text = "N/A"
		return nil
	}
	if v, ok := m["trend"]; ok {
		t.Text = stringify(v)
		return nil
	}
	t.Text = CoerceDisplayValue(m)
	return nil
}

func (t TrendRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Text)
}

// CompetitorRecord accepts a bare string or a mapping keyed "name", "company"
// or "competitor", in that preference order.
type CompetitorRecord struct {
	Name string
}

func (c *CompetitorRecord) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Name = s
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		c.Name = "N/A"
		return nil
	}
	for _, key := range []string{"name", "company", "competitor"} {
		if v, ok := m[key]; ok {
			c.Name = stringify(v)
			return nil
		}
	}
	c.Name = CoerceDisplayValue(m)
	return nil
}

func (c CompetitorRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Name)
}
