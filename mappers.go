package citui

import (
	"regexp"
	"strings"
)

// StatusMap returns a [StatusMapper] that looks raw statuses up in table,
// case-insensitively.
//
// Raw statuses missing from the table map to fallback. An empty fallback
// passes the raw status through lowercased, so unrecognised labels still
// show up on the dashboard.
//
// Example:
//
//	// Jenkins-style colours
//	mapper := citui.StatusMap(map[string]citui.Status{
//	    "blue":    citui.StatusSuccess,
//	    "red":     citui.StatusFailed,
//	    "aborted": citui.StatusCanceled,
//	}, citui.StatusUnknown)
func StatusMap(table map[string]Status, fallback Status) StatusMapper {
	lower := make(map[string]Status, len(table))
	for k, v := range table {
		lower[strings.ToLower(k)] = v
	}

	return func(raw string) Status {
		key := strings.ToLower(strings.TrimSpace(raw))
		if s, ok := lower[key]; ok {
			return s
		}
		if fallback == "" {
			if key == "" {
				return StatusUnknown
			}
			return Status(key)
		}
		return fallback
	}
}

// RegexStatusMapper returns a [StatusMapper] that matches the raw status
// against a regular expression pattern.
//
// The pattern must contain at least one capture group. The first capture group
// is compared (case-insensitively) against successMatch:
//   - If equal: [StatusSuccess]
//   - If not equal: [StatusFailed]
//   - If no match found: [StatusUnknown]
//
// Returns an error if the pattern is invalid.
//
// Example:
//
//	// "build #12: PASSED" -> success
//	mapper, err := citui.RegexStatusMapper(`:\s*(\w+)$`, "passed")
func RegexStatusMapper(pattern string, successMatch string) (StatusMapper, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	return func(raw string) Status {
		matches := re.FindStringSubmatch(raw)
		if len(matches) < 2 {
			return StatusUnknown
		}
		if strings.EqualFold(matches[1], successMatch) {
			return StatusSuccess
		}
		return StatusFailed
	}, nil
}

// MustRegexStatusMapper is like [RegexStatusMapper] but panics if the
// pattern is invalid.
func MustRegexStatusMapper(pattern string, successMatch string) StatusMapper {
	mapper, err := RegexStatusMapper(pattern, successMatch)
	if err != nil {
		panic("citui: invalid regex pattern: " + err.Error())
	}
	return mapper
}

// FirstMatch returns a [StatusMapper] that tries multiple mappers in order,
// returning the first result that is not [StatusUnknown].
//
// If all mappers return [StatusUnknown], FirstMatch returns [StatusUnknown].
//
// Example:
//
//	mapper := citui.FirstMatch(
//	    citui.StatusMap(map[string]citui.Status{"green": citui.StatusSuccess}, citui.StatusUnknown),
//	    citui.MustRegexStatusMapper(`^(ok)`, "ok"),
//	)
func FirstMatch(mappers ...StatusMapper) StatusMapper {
	return func(raw string) Status {
		for _, m := range mappers {
			if s := m(raw); s != StatusUnknown {
				return s
			}
		}
		return StatusUnknown
	}
}
