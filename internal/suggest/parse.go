package suggest

import (
	"encoding/json"
	"strings"
)

// Chip is one proactive suggestion rendered as a tappable chip in the
// client.
type Chip struct {
	Text    string `json:"text"`
	Action  string `json:"action"`
	Payload string `json:"payload"`
}

const (
	ActionMessage   = "message"
	ActionCheckin   = "checkin"
	ActionResources = "resources"
	ActionBreathing = "breathing"
)

const (
	maxChips      = 3
	maxChipText   = 80
	maxChipLoad   = 300
)

func validAction(a string) bool {
	switch a {
	case ActionMessage, ActionCheckin, ActionResources, ActionBreathing:
		return true
	}
	return false
}

// parseChips extracts the JSON array from a model reply. Models wrap
// JSON in ``` fences or pad it with prose often enough that we scan for
// the outermost brackets instead of trusting the whole body. Anything
// unparseable yields an empty list.
func parseChips(raw string) []Chip {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "```") {
		var kept []string
		for _, line := range strings.Split(text, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		text = strings.Join(kept, "\n")
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil
	}

	var items []struct {
		Text    string `json:"text"`
		Action  string `json:"action"`
		Payload string `json:"payload"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
		return nil
	}

	chips := make([]Chip, 0, maxChips)
	for _, it := range items {
		label := truncateRunes(strings.TrimSpace(it.Text), maxChipText)
		action := strings.ToLower(strings.TrimSpace(it.Action))
		if label == "" || !validAction(action) {
			continue
		}
		chips = append(chips, Chip{
			Text:    label,
			Action:  action,
			Payload: truncateRunes(strings.TrimSpace(it.Payload), maxChipLoad),
		})
		if len(chips) == maxChips {
			break
		}
	}
	return chips
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
