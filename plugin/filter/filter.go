// Package filter compiles CEL expressions that select flashcards from a
// learner's deck, e.g. `mastery < 50 && lapses > 0`.
package filter

import (
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"github.com/hrygo/studyquest/plugin/gamification"
)

// Variables available to filter expressions.
var cardVariables = []cel.EnvOption{
	cel.Variable("card_id", cel.StringType),
	cel.Variable("ease", cel.DoubleType),
	cel.Variable("interval", cel.IntType),
	cel.Variable("repetition", cel.IntType),
	cel.Variable("mastery", cel.IntType),
	cel.Variable("lapses", cel.IntType),
	cel.Variable("mastered", cel.BoolType),
	cel.Variable("overdue_hours", cel.DoubleType),
}

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func cardEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(cardVariables...)
	})
	return env, envErr
}

// Filter is a compiled card filter. It is safe for concurrent use.
type Filter struct {
	source  string
	program cel.Program
}

// Compile parses and type-checks expr. The expression must evaluate to a bool.
func Compile(expr string) (*Filter, error) {
	e, err := cardEnv()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filter env")
	}
	ast, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid filter %q", expr)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Errorf("filter %q must return bool, got %s", expr, ast.OutputType())
	}
	program, err := e.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build filter program")
	}
	return &Filter{source: expr, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.source
}

// Match evaluates the filter against one card at the reference time now.
func (f *Filter) Match(cardID string, c gamification.CardState, now time.Time) (bool, error) {
	out, _, err := f.program.Eval(map[string]any{
		"card_id":       cardID,
		"ease":          c.EaseFactor,
		"interval":      int64(c.IntervalDays),
		"repetition":    int64(c.Repetition),
		"mastery":       int64(c.MasteryScore),
		"lapses":        int64(c.Lapses),
		"mastered":      c.IsMastered(),
		"overdue_hours": now.Sub(c.DueAt).Hours(),
	})
	if err != nil {
		return false, errors.Wrapf(err, "failed to evaluate filter on card %s", cardID)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("filter returned %T", out.Value())
	}
	return matched, nil
}

// Apply keeps the due cards matching f. A nil filter keeps everything.
func Apply(f *Filter, cards []gamification.DueCard, now time.Time) ([]gamification.DueCard, error) {
	if f == nil {
		return cards, nil
	}
	out := make([]gamification.DueCard, 0, len(cards))
	for _, c := range cards {
		ok, err := f.Match(c.CardID, c.State, now)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}
