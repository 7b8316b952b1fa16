package memory

import "encoding/json"

// NormalizeFragments flattens the memory service's permissive response
// schemas into one canonical fragment sequence, preserving service order.
// Recognized shapes: a wrapper object with a results collection of records
// holding a memory text field, a flat list of such records, or a flat list of
// plain strings. Anything else yields an empty sequence, never an error.
func NormalizeFragments(raw []byte) []string {
	var wrapper struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Results != nil {
		return fragmentsFromItems(wrapper.Results)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return fragmentsFromItems(items)
	}

	return []string{}
}

func fragmentsFromItems(items []json.RawMessage) []string {
	fragments := []string{}
	for _, item := range items {
		var record struct {
			Memory string `json:"memory"`
		}
		if err := json.Unmarshal(item, &record); err == nil && record.Memory != "" {
			fragments = append(fragments, record.Memory)
			continue
		}
		var plain string
		if err := json.Unmarshal(item, &plain); err == nil && plain != "" {
			fragments = append(fragments, plain)
		}
	}
	return fragments
}
