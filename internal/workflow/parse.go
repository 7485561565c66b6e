package workflow

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Tokenize splits an argument string on whitespace while keeping quoted
// substrings (single or double quotes) together, so arguments containing
// spaces survive.
func Tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	flush()
	return tokens
}

// ResolveTemplate substitutes every {name} token with its value from
// args. Unknown tokens stay literally as {name}, a visible signal of a
// misconfigured workflow rather than a silent drop.
func ResolveTemplate(template string, args map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if v, ok := args[name]; ok {
			return v
		}
		return tok
	})
}

// DetectArgs collects the distinct placeholder names across all step
// templates, in first-appearance order.
func DetectArgs(steps []StepSpec) []string {
	var names []string
	seen := make(map[string]bool)
	for _, step := range steps {
		for _, m := range placeholderRe.FindAllStringSubmatch(step.Command, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
	}
	return names
}

// ParseSteps extracts step commands from the raw tail of a
// `workflow create` command: quoted segments when present, otherwise
// pipe-separated.
func ParseSteps(raw string) []string {
	var steps []string
	quoted := regexp.MustCompile(`"([^"]+)"`).FindAllStringSubmatch(raw, -1)
	if len(quoted) > 0 {
		for _, m := range quoted {
			if s := strings.TrimSpace(m[1]); s != "" {
				steps = append(steps, s)
			}
		}
		return steps
	}
	for _, part := range strings.Split(raw, "|") {
		if s := strings.TrimSpace(part); s != "" {
			steps = append(steps, s)
		}
	}
	return steps
}
