package citui

// Label returns the display label of s among the registered sources.
//
// When no other source in registry shares s's name, or s is a CCTray source,
// the bare name is used. Otherwise the name is qualified, workflow first and
// then branch:
//
//	org/repo (build)
//	org/repo (build on main)
//	org/repo (on main)
//
// If that label still matches a source of another provider kind, the kind is
// appended to the qualifier, e.g. "org/repo (build, github)".
//
// Label is a pure function of its arguments.
func Label(registry []Source, s Source) string {
	label := baseLabel(registry, s)
	if s.kind == KindCCTray {
		return label
	}
	for _, other := range registry {
		if other.kind != s.kind && baseLabel(registry, other) == label {
			return kindLabel(s)
		}
	}
	return label
}

func baseLabel(registry []Source, s Source) string {
	if s.kind == KindCCTray {
		return s.name
	}

	shared := 0
	for _, other := range registry {
		if other.name == s.name {
			shared++
		}
	}
	if shared <= 1 {
		return s.name
	}
	return FullLabel(s)
}

// kindLabel qualifies s with its provider kind as well.
func kindLabel(s Source) string {
	if q := qualifier(s); q != "" {
		return s.name + " (" + q + ", " + s.kind + ")"
	}
	return s.name + " (" + s.kind + ")"
}

// FullLabel returns the name of s qualified by its workflow and branch,
// regardless of other sources. Sources with neither use the bare name.
func FullLabel(s Source) string {
	q := qualifier(s)
	if q == "" {
		return s.name
	}
	return s.name + " (" + q + ")"
}

func qualifier(s Source) string {
	switch {
	case s.workflow != "" && s.branch != "":
		return s.workflow + " on " + s.branch
	case s.workflow != "":
		return s.workflow
	case s.branch != "":
		return "on " + s.branch
	default:
		return ""
	}
}

// Labels returns the display label of every registered source, in order.
func Labels(registry []Source) []string {
	out := make([]string, len(registry))
	for i, s := range registry {
		out[i] = Label(registry, s)
	}
	return out
}
