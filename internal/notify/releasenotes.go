package notify

import "strings"

// NoReleaseNotes is returned whenever release notes are missing,
// blank, or unparseable. Formatting never fails on bad notes.
const NoReleaseNotes = "No change information available"

// FormatReleaseNotes turns the authority's raw release notes into
// display text. The input is a ";"-delimited list of "key: value"
// pairs or bare keys. Segments whose value is "0" are dropped; bare
// keys are kept with no value. A duplicate key keeps its first
// position but takes the last value.
func FormatReleaseNotes(raw string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "\n", ""))
	if cleaned == "" || cleaned == ";" {
		return NoReleaseNotes
	}
	cleaned = strings.TrimSuffix(cleaned, ";")

	type pair struct {
		key, value string
	}
	var pairs []pair
	index := make(map[string]int)

	add := func(key, value string) {
		if i, ok := index[key]; ok {
			pairs[i].value = value
			return
		}
		index[key] = len(pairs)
		pairs = append(pairs, pair{key, value})
	}

	for _, segment := range strings.Split(cleaned, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		key, value, found := strings.Cut(segment, ":")
		if !found {
			add(strings.TrimSpace(segment), "")
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if value == "0" {
			continue
		}
		add(key, value)
	}

	if len(pairs) == 0 {
		return NoReleaseNotes
	}

	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" {
			lines = append(lines, p.key)
		} else {
			lines = append(lines, p.key+": "+p.value)
		}
	}
	return strings.Join(lines, "\n")
}
