package fs

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// IgnoreRule is one compiled line of an ignore file.
type IgnoreRule struct {
	Pattern  string // pattern text without the '!' and '/' markers
	Negation bool   // leading '!': a match re-includes the path
	Anchored bool   // leading '/': must match from the root
	DirOnly  bool   // trailing '/': matches only paths beneath a directory
	re       *regexp.Regexp
}

// CompileIgnoreRule parses a single pattern.
//
// '*' matches within one path segment, '?' matches one non-separator
// character and '**' crosses segments ("dir/**" also matches "dir" itself).
// A backslash makes the next character literal, so "\!" and "\#" start a
// pattern with '!' or '#' instead of negating or commenting it.
// Anchored rules match the whole path; unanchored rules match from any
// segment boundary up to the end of the path or a '/'. Matching is case
// insensitive.
func CompileIgnoreRule(raw string) (*IgnoreRule, error) {
	r := &IgnoreRule{}
	p := raw
	if strings.HasPrefix(p, "!") {
		r.Negation = true
		p = p[1:]
	}
	if strings.HasPrefix(p, "/") {
		r.Anchored = true
		p = p[1:]
	}
	if strings.HasSuffix(p, "/") {
		r.DirOnly = true
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return nil, fmt.Errorf("empty ignore pattern %q", raw)
	}
	r.Pattern = p

	var expr strings.Builder
	expr.WriteString("(?i)")
	if r.Anchored {
		expr.WriteString("^")
	} else {
		expr.WriteString("(?:^|/)")
	}
	expr.WriteString(globToRegexp(p))
	switch {
	case r.DirOnly:
		expr.WriteString("/")
	case r.Anchored:
		expr.WriteString("$")
	default:
		expr.WriteString("(?:$|/)")
	}

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("compiling ignore pattern %q: %w", raw, err)
	}
	r.re = re
	return r, nil
}

// Matches reports whether the rule's glob matches a normalized path.
func (r *IgnoreRule) Matches(path string) bool {
	return r.re.MatchString(path)
}

func globToRegexp(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); {
		rest := glob[i:]
		switch {
		case rest == "/**":
			b.WriteString("(?:/.*)?")
			i += 3
		case strings.HasPrefix(rest, "**/"):
			b.WriteString("(?:.*/)?")
			i += 3
		case strings.HasPrefix(rest, "**"):
			b.WriteString(".*")
			i += 2
		case rest[0] == '\\' && len(rest) > 1:
			b.WriteString(regexp.QuoteMeta(rest[1:2]))
			i += 2
		case rest[0] == '*':
			b.WriteString("[^/]*")
			i++
		case rest[0] == '?':
			b.WriteString("[^/]")
			i++
		case rest[0] == '[':
			end := strings.IndexByte(rest[1:], ']')
			if end <= 0 {
				b.WriteString(`\[`)
				i++
				continue
			}
			class := rest[1 : end+1]
			if class[0] == '!' {
				class = "^" + class[1:]
			}
			b.WriteString("[" + strings.ReplaceAll(class, `\`, `\\`) + "]")
			i += end + 2
		default:
			b.WriteString(regexp.QuoteMeta(rest[:1]))
			i++
		}
	}
	return b.String()
}

// IgnoreMatcher evaluates an ordered list of ignore rules.
type IgnoreMatcher struct {
	rules []*IgnoreRule
}

// NewIgnoreMatcher compiles raw pattern lines in order. Blank lines, lines
// starting with '#' and patterns that fail to compile are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var rules []*IgnoreRule
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		rule, err := CompileIgnoreRule(raw)
		if err != nil {
			continue
		}
		rules = append(rules, rule)
	}
	return &IgnoreMatcher{rules: rules}
}

// Rules returns the compiled rules in evaluation order.
func (m *IgnoreMatcher) Rules() []*IgnoreRule {
	return m.rules
}

// Match reports whether relativePath is ignored. Every matching rule
// overrides the decision of the rules before it; the default is false.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	normalized := strings.TrimLeft(strings.ReplaceAll(relativePath, `\`, "/"), "/")

	ignored := false
	for _, r := range m.rules {
		if r.Matches(normalized) {
			ignored = !r.Negation
		}
	}
	return ignored
}

// ParseIgnoreFile reads an ignore file and returns its raw lines.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
