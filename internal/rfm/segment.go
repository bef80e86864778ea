package rfm

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-retail/magpie/internal/domain"
)

// SegmentEngine assigns segments via ordered CEL rules over the tier
// scores. Thresholds are business policy, so they arrive as
// configuration instead of living in code.
type SegmentEngine struct {
	env      *cel.Env
	rules    []compiledSegmentRule
	fallback string
}

type compiledSegmentRule struct {
	segment string
	program cel.Program
}

// NewSegmentEngine compiles the ordered rule set. The first rule
// whose expression yields true assigns its segment; customers
// matching nothing fall back to Potential.
func NewSegmentEngine(rules []domain.SegmentRule) (*SegmentEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("r_score", cel.IntType),
		cel.Variable("f_score", cel.IntType),
		cel.Variable("m_score", cel.IntType),
		cel.Variable("recency_days", cel.IntType),
		cel.Variable("frequency", cel.IntType),
		cel.Variable("monetary", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &SegmentEngine{
		env:      env,
		fallback: domain.SegmentPotential,
	}

	for _, rule := range rules {
		compiled, err := e.compile(rule)
		if err != nil {
			return nil, err
		}
		e.rules = append(e.rules, compiled)
	}

	return e, nil
}

func (e *SegmentEngine) compile(rule domain.SegmentRule) (compiledSegmentRule, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return compiledSegmentRule{}, fmt.Errorf("failed to compile segment rule %q: %w", rule.Segment, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return compiledSegmentRule{}, fmt.Errorf("segment rule %q: expression must return bool, got %s", rule.Segment, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return compiledSegmentRule{}, fmt.Errorf("failed to create program for segment rule %q: %w", rule.Segment, err)
	}

	return compiledSegmentRule{segment: rule.Segment, program: program}, nil
}

// Assign evaluates the rules in order and returns the first matching
// segment. Evaluation errors skip the rule rather than aborting the
// run.
func (e *SegmentEngine) Assign(c *domain.CustomerRFM) string {
	activation := map[string]any{
		"r_score":      c.RScore,
		"f_score":      c.FScore,
		"m_score":      c.MScore,
		"recency_days": c.RecencyDays,
		"frequency":    c.Frequency,
		"monetary":     c.Monetary.InexactFloat64(),
	}

	for _, rule := range e.rules {
		out, _, err := rule.program.Eval(activation)
		if err != nil {
			continue
		}
		if b, ok := out.(types.Bool); ok && bool(b) {
			return rule.segment
		}
	}

	return e.fallback
}

// RuleCount returns the number of compiled rules.
func (e *SegmentEngine) RuleCount() int {
	return len(e.rules)
}
