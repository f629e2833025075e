package pattern_test

import (
	"errors"
	"strings"
	"testing"

	"evscan/internal/pattern"
)

func mustRule(t *testing.T, name, expr string, flags pattern.Flags) pattern.Rule {
	t.Helper()
	r, err := pattern.NewRule(name, expr, flags)
	if err != nil {
		t.Fatalf("NewRule(%q) error = %v", name, err)
	}
	return r
}

func TestNewEngine(t *testing.T) {
	t.Run("empty rule set is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := pattern.NewEngine(nil)
		if !errors.Is(err, pattern.ErrEmptyRuleSet) {
			t.Fatalf("NewEngine(nil) error = %v, want ErrEmptyRuleSet", err)
		}
	})

	t.Run("invalid expression fails to compile", func(t *testing.T) {
		t.Parallel()
		if _, err := pattern.NewRule("bad", "(unclosed", 0); err == nil {
			t.Fatal("NewRule() error = nil, want compile error")
		}
	})
}

func TestEngine_ScanText(t *testing.T) {
	t.Run("context window is clamped to text bounds", func(t *testing.T) {
		t.Parallel()
		engine, err := pattern.NewEngine([]pattern.Rule{mustRule(t, "kw", "KEYWORD", 0)})
		if err != nil {
			t.Fatal(err)
		}

		text := "....KEYWORD...."
		matches := engine.ScanText(text, 40)
		if len(matches) != 1 {
			t.Fatalf("got %d matches, want 1", len(matches))
		}
		// window exceeds both sides, so the context is the whole text
		if matches[0].Context != text {
			t.Errorf("Context = %q, want %q", matches[0].Context, text)
		}
		if matches[0].Start != 4 || matches[0].End != 11 {
			t.Errorf("span = [%d,%d), want [4,11)", matches[0].Start, matches[0].End)
		}

		matches = engine.ScanText(text, 2)
		if matches[0].Context != "..KEYWORD.." {
			t.Errorf("Context = %q, want %q", matches[0].Context, "..KEYWORD..")
		}
	})

	t.Run("rules in declaration order, matches in document order", func(t *testing.T) {
		t.Parallel()
		engine, err := pattern.NewEngine([]pattern.Rule{
			mustRule(t, "digits", `\d+`, 0),
			mustRule(t, "word", `alpha`, 0),
		})
		if err != nil {
			t.Fatal(err)
		}

		matches := engine.ScanText("12 alpha 34", 5)
		got := make([]string, len(matches))
		for i, m := range matches {
			got[i] = m.RuleName + ":" + m.Value
		}
		want := []string{"digits:12", "digits:34", "word:alpha"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("matches = %v, want %v", got, want)
		}
	})

	t.Run("ignorecase flag", func(t *testing.T) {
		t.Parallel()
		engine, err := pattern.NewEngine([]pattern.Rule{mustRule(t, "kw", "secret", pattern.FlagIgnoreCase)})
		if err != nil {
			t.Fatal(err)
		}

		if got := engine.ScanText("SECRET plans", 10); len(got) != 1 {
			t.Fatalf("got %d matches, want 1", len(got))
		}
	})
}

func TestEngine_ScanTable(t *testing.T) {
	t.Run("stamps row and column location", func(t *testing.T) {
		t.Parallel()
		engine, err := pattern.NewEngine([]pattern.Rule{
			mustRule(t, "Email", `[A-Za-z0-9_.+-]+@[A-Za-z0-9-]+\.[A-Za-z0-9-.]+`, 0),
		})
		if err != nil {
			t.Fatal(err)
		}

		rows := []map[string]string{
			{"c": "none"},
			{"c": "contact x@y.com"},
		}
		matches := engine.ScanTable(rows, nil, 40)
		if len(matches) != 1 {
			t.Fatalf("got %d matches, want 1", len(matches))
		}
		if matches[0].Location != "row=1;column=c" {
			t.Errorf("Location = %q, want %q", matches[0].Location, "row=1;column=c")
		}
		if matches[0].Value != "x@y.com" {
			t.Errorf("Value = %q, want %q", matches[0].Value, "x@y.com")
		}
	})

	t.Run("column restriction substitutes empty string for absent columns", func(t *testing.T) {
		t.Parallel()
		engine, err := pattern.NewEngine([]pattern.Rule{mustRule(t, "kw", "match", 0)})
		if err != nil {
			t.Fatal(err)
		}

		rows := []map[string]string{
			{"a": "match here", "b": "match there"},
		}
		matches := engine.ScanTable(rows, []string{"a", "missing"}, 10)
		if len(matches) != 1 {
			t.Fatalf("got %d matches, want 1", len(matches))
		}
		if matches[0].Location != "row=0;column=a" {
			t.Errorf("Location = %q, want %q", matches[0].Location, "row=0;column=a")
		}
	})
}

func TestParseFlagNames(t *testing.T) {
	t.Run("recognized flags are combined", func(t *testing.T) {
		t.Parallel()
		flags, err := pattern.ParseFlagNames([]string{"ignorecase", "MULTILINE", "dotall", "unicode"})
		if err != nil {
			t.Fatalf("ParseFlagNames() error = %v", err)
		}
		want := pattern.FlagIgnoreCase | pattern.FlagMultiline | pattern.FlagDotAll | pattern.FlagUnicode
		if flags != want {
			t.Errorf("flags = %v, want %v", flags, want)
		}
	})

	t.Run("unknown flag name", func(t *testing.T) {
		t.Parallel()
		_, err := pattern.ParseFlagNames([]string{"verbose"})
		if !errors.Is(err, pattern.ErrUnsupportedFlag) {
			t.Fatalf("ParseFlagNames() error = %v, want ErrUnsupportedFlag", err)
		}
	})
}
