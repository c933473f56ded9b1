package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCompileIgnoreRule(t *testing.T) {
	t.Run("strips negation and anchor markers", func(t *testing.T) {
		t.Parallel()
		r, err := CompileIgnoreRule("!/build/out")
		if err != nil {
			t.Fatalf("CompileIgnoreRule() error = %v", err)
		}
		if !r.Negation {
			t.Error("Negation = false, want true")
		}
		if !r.Anchored {
			t.Error("Anchored = false, want true")
		}
		if r.Pattern != "build/out" {
			t.Errorf("Pattern = %q, want %q", r.Pattern, "build/out")
		}
	})

	t.Run("trailing slash marks directory pattern", func(t *testing.T) {
		t.Parallel()
		r, err := CompileIgnoreRule("cache/")
		if err != nil {
			t.Fatalf("CompileIgnoreRule() error = %v", err)
		}
		if !r.DirOnly {
			t.Error("DirOnly = false, want true")
		}
		if r.Matches("cache") {
			t.Error("directory pattern matched a file named cache")
		}
		if !r.Matches("src/cache/entry.bin") {
			t.Error("directory pattern did not match a file beneath it")
		}
	})

	t.Run("escaped bang is not a negation", func(t *testing.T) {
		t.Parallel()
		r, err := CompileIgnoreRule(`\!important`)
		if err != nil {
			t.Fatalf("CompileIgnoreRule() error = %v", err)
		}
		if r.Negation {
			t.Error("Negation = true, want false")
		}
		if !r.Matches("!important") {
			t.Error("pattern did not match !important")
		}
	})

	t.Run("empty pattern is rejected", func(t *testing.T) {
		t.Parallel()
		for _, raw := range []string{"!", "/", "!/"} {
			if _, err := CompileIgnoreRule(raw); err == nil {
				t.Errorf("CompileIgnoreRule(%q) error = nil, want error", raw)
			}
		}
	})
}

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "  # indented comment", "*.log"})
		if len(m.Rules()) != 1 {
			t.Fatalf("expected 1 rule, got %d", len(m.Rules()))
		}
		if m.Rules()[0].Pattern != "*.log" {
			t.Errorf("expected *.log, got %s", m.Rules()[0].Pattern)
		}
	})

	t.Run("keeps file order", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.tmp", "!keep.tmp", "/build"})
		want := []string{"*.tmp", "keep.tmp", "build"}
		if len(m.Rules()) != len(want) {
			t.Fatalf("expected %d rules, got %d", len(want), len(m.Rules()))
		}
		for i, r := range m.Rules() {
			if r.Pattern != want[i] {
				t.Errorf("rule %d = %q, want %q", i, r.Pattern, want[i])
			}
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{name: "no rules", patterns: nil, relativePath: "a.txt", want: false},
		{name: "star matches file in root", patterns: []string{"*.txt"}, relativePath: "notes.txt", want: true},
		{name: "star matches file in subdirectory", patterns: []string{"*.log"}, relativePath: "sub/app.log", want: true},
		{name: "different extension", patterns: []string{"*.log"}, relativePath: "app.txt", want: false},
		{name: "star does not cross segments", patterns: []string{"src/*.cs"}, relativePath: "src/sub/Other.cs", want: false},
		{name: "star within segment", patterns: []string{"src/*.cs"}, relativePath: "src/Program.cs", want: true},
		{name: "question mark matches one character", patterns: []string{"file?.txt"}, relativePath: "file1.txt", want: true},
		{name: "question mark needs a character", patterns: []string{"file?.txt"}, relativePath: "file.txt", want: false},
		{name: "question mark does not match separator", patterns: []string{"a?b"}, relativePath: "a/b", want: false},
		{name: "lone negation never ignores", patterns: []string{"!app.log"}, relativePath: "app.log", want: false},
		{name: "anchored matches from root", patterns: []string{"/foo/bar.cs"}, relativePath: "foo/bar.cs", want: true},
		{name: "anchored does not match deeper", patterns: []string{"/foo/bar.cs"}, relativePath: "src/foo/bar.cs", want: false},
		{name: "anchored must match whole path", patterns: []string{"/foo"}, relativePath: "foo/bar.cs", want: false},
		{name: "unanchored matches at segment boundary", patterns: []string{"foo/bar.cs"}, relativePath: "src/foo/bar.cs", want: true},
		{name: "unanchored does not match inside a segment", patterns: []string{"bar.cs"}, relativePath: "src/foobar.cs", want: false},
		{name: "unanchored name matches a directory prefix", patterns: []string{"build"}, relativePath: "build/out/app.o", want: true},
		{name: "double star below directory", patterns: []string{"lib/**"}, relativePath: "lib/util/helper.cs", want: true},
		{name: "double star matches directory itself", patterns: []string{"/lib/**"}, relativePath: "lib", want: true},
		{name: "double star at any depth", patterns: []string{"lib/**"}, relativePath: "src/lib/util.cs", want: true},
		{name: "anchored double star stays at root", patterns: []string{"/lib/**"}, relativePath: "src/lib/util.cs", want: false},
		{name: "leading double star matches zero segments", patterns: []string{"**/temp"}, relativePath: "temp", want: true},
		{name: "leading double star matches several segments", patterns: []string{"/**/temp/*.bin"}, relativePath: "a/b/temp/x.bin", want: true},
		{name: "inner double star", patterns: []string{"/docs/**/draft.md"}, relativePath: "docs/draft.md", want: true},
		{name: "case insensitive", patterns: []string{"*.TXT"}, relativePath: "Readme.txt", want: true},
		{name: "character class", patterns: []string{"*.[oa]"}, relativePath: "lib.a", want: true},
		{name: "negated character class", patterns: []string{"file[!0-9]"}, relativePath: "file1", want: false},
		{name: "literal dot is escaped", patterns: []string{"a.b"}, relativePath: "axb", want: false},
		{name: "backslash path is normalized", patterns: []string{"/dir/*.txt"}, relativePath: `dir\a.txt`, want: true},
		{name: "leading slash in path is stripped", patterns: []string{"/a.txt"}, relativePath: "/a.txt", want: true},
		{name: "escaped star is literal", patterns: []string{`a\*b`}, relativePath: "a*b", want: true},
		{name: "escaped star does not glob", patterns: []string{`a\*b`}, relativePath: "axxb", want: false},
		{name: "escaped hash is a pattern", patterns: []string{`\#notes`}, relativePath: "#notes", want: true},
		{name: "escaped bang matches literally", patterns: []string{`\!important`}, relativePath: "!important", want: true},
		{name: "escaped bang is not a negation", patterns: []string{"*", `\!important`}, relativePath: "!important", want: true},
		{name: "trailing backslash is literal", patterns: []string{`dir\`}, relativePath: `dir`, want: false},
		{name: "last match wins re-include", patterns: []string{"*.tmp", "!foo.tmp"}, relativePath: "foo.tmp", want: false},
		{name: "last match wins other file", patterns: []string{"*.tmp", "!foo.tmp"}, relativePath: "bar.tmp", want: true},
		{name: "last match wins re-exclude", patterns: []string{"*.tmp", "!foo.tmp", "*.tmp"}, relativePath: "foo.tmp", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.relativePath); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

// The decision always equals the negation flag of the last matching rule.
func TestIgnoreMatcher_LastMatchProperty(t *testing.T) {
	t.Parallel()

	patterns := []string{"*.log", "!keep/*.log", "/keep/debug.log", "tmp/**", "!tmp/important", "*.TXT"}
	paths := []string{
		"app.log", "keep/app.log", "keep/debug.log", "tmp", "tmp/a", "tmp/important",
		"notes.txt", "src/keep/app.log", "main.go",
	}

	m := NewIgnoreMatcher(patterns)
	for _, p := range paths {
		want := false
		for _, r := range m.Rules() {
			if r.Matches(p) {
				want = !r.Negation
			}
		}
		if got := m.Match(p); got != want {
			t.Errorf("Match(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("missing file returns nil", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile(filepath.Join(t.TempDir(), ".cvignore"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if patterns != nil {
			t.Errorf("expected nil, got %v", patterns)
		}
	})

	t.Run("reads lines in order", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".cvignore")
		if err := os.WriteFile(path, []byte("# build output\n*.o\n\n!keep.o\n"), 0644); err != nil {
			t.Fatal(err)
		}
		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"# build output", "*.o", "", "!keep.o"}
		if len(patterns) != len(want) {
			t.Fatalf("got %d lines, want %d", len(patterns), len(want))
		}
		for i := range want {
			if patterns[i] != want[i] {
				t.Errorf("line %d = %q, want %q", i, patterns[i], want[i])
			}
		}

		m := NewIgnoreMatcher(patterns)
		if !m.Match("main.o") || m.Match("keep.o") {
			t.Error("parsed rules do not behave as expected")
		}
	})
}
