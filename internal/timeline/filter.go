package timeline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/roach88/akasha/internal/event"
)

// Filter selects events. The zero Filter matches everything.
type Filter struct {
	// Kinds keeps events whose kind is in the list.
	Kinds []string `json:"kinds,omitempty"`

	// Authors keeps events by any of the listed authors.
	Authors []string `json:"authors,omitempty"`

	// Since keeps events at or after the instant.
	Since time.Time `json:"since,omitzero"`

	// Until keeps events strictly before the instant.
	Until time.Time `json:"until,omitzero"`

	// Text keeps events whose summary or body contains the string, ignoring case.
	Text string `json:"text,omitempty"`

	// Where is a CEL boolean expression over id, parent, kind, summary, body,
	// author, email and timestamp (UTC milliseconds), e.g.
	//
	//	kind == "fix" && body.contains("parser")
	Where string `json:"where,omitempty"`
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return len(f.Kinds) == 0 && len(f.Authors) == 0 && f.Since.IsZero() &&
		f.Until.IsZero() && f.Text == "" && f.Where == ""
}

// Matcher is a compiled Filter.
type Matcher struct {
	f     Filter
	text  string
	where cel.Program
}

// Compile validates the filter and prepares its CEL program.
func (f Filter) Compile() (*Matcher, error) {
	m := &Matcher{f: f, text: strings.ToLower(f.Text)}
	if !f.Since.IsZero() && !f.Until.IsZero() && !f.Since.Before(f.Until) {
		return nil, fmt.Errorf("filter: since %s is not before until %s",
			f.Since.Format(time.RFC3339), f.Until.Format(time.RFC3339))
	}
	if f.Where != "" {
		prg, err := compileWhere(f.Where)
		if err != nil {
			return nil, err
		}
		m.where = prg
	}
	return m, nil
}

// Match reports whether ev passes the filter.
func (m *Matcher) Match(ev event.Event) (bool, error) {
	f := m.f
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, ev.Kind) {
		return false, nil
	}
	if len(f.Authors) > 0 && !slices.Contains(f.Authors, ev.Author) {
		return false, nil
	}
	if !f.Since.IsZero() && ev.Timestamp < f.Since.UnixMilli() {
		return false, nil
	}
	if !f.Until.IsZero() && ev.Timestamp >= f.Until.UnixMilli() {
		return false, nil
	}
	if m.text != "" &&
		!strings.Contains(strings.ToLower(ev.Summary()), m.text) &&
		!strings.Contains(strings.ToLower(ev.Body()), m.text) {
		return false, nil
	}
	if m.where != nil {
		return evalWhere(m.where, ev)
	}
	return true, nil
}

func whereEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("id", cel.UintType),
		cel.Variable("parent", cel.UintType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("summary", cel.StringType),
		cel.Variable("body", cel.StringType),
		cel.Variable("author", cel.StringType),
		cel.Variable("email", cel.StringType),
		cel.Variable("timestamp", cel.IntType),
		cel.CrossTypeNumericComparisons(true),
	)
}

func compileWhere(expr string) (cel.Program, error) {
	env, err := whereEnv()
	if err != nil {
		return nil, fmt.Errorf("where: create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("where: compile: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("where: expression must be boolean, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("where: program: %w", err)
	}
	return prg, nil
}

func evalWhere(prg cel.Program, ev event.Event) (bool, error) {
	out, _, err := prg.Eval(map[string]any{
		"id":        ev.ID,
		"parent":    ev.Parent,
		"kind":      ev.Kind,
		"summary":   ev.Summary(),
		"body":      ev.Body(),
		"author":    ev.Author,
		"email":     ev.AuthorEmail,
		"timestamp": ev.Timestamp,
	})
	if err != nil {
		return false, fmt.Errorf("where: eval on event %d: %w", ev.ID, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("where: expression returned %T, not bool", out.Value())
	}
	return b, nil
}
