package formula

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	identifier     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	integerLiteral = regexp.MustCompile(`(^|[^.\w])\d+(\.\d+)?\b`)
)

// CELEvaluator evaluates formulas as CEL expressions over double variables.
// Compiled programs are reused per formula text and variable set.
type CELEvaluator struct {
	mu       sync.Mutex
	programs map[string]cel.Program
}

func NewCELEvaluator() *CELEvaluator {
	return &CELEvaluator{programs: make(map[string]cel.Program)}
}

func (e *CELEvaluator) Evaluate(text string, vars map[string]float64) Result {
	names := make([]string, 0, len(vars))
	for name := range vars {
		if identifier.MatchString(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	prg, err := e.program(text, names)
	if err != nil {
		return Result{Code: CodeCompileError, Message: err.Error()}
	}

	input := make(map[string]any, len(names))
	for _, name := range names {
		input[name] = vars[name]
	}
	out, _, err := prg.Eval(input)
	if err != nil {
		return Result{Code: CodeRuntimeError, Message: err.Error()}
	}

	value, ok := toFloat(out.Value())
	if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
		return Result{Code: CodeNotANumber, Message: "formula did not produce a finite number"}
	}
	return Result{Value: value, Code: CodeOK}
}

func (e *CELEvaluator) program(text string, names []string) (cel.Program, error) {
	key := text + "\x00" + strings.Join(names, ",")

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.programs[key]; ok {
		return prg, nil
	}

	opts := make([]cel.EnvOption, 0, len(names))
	for _, name := range names {
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(asDoubles(text))
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.programs[key] = prg
	return prg, nil
}

// asDoubles rewrites integer literals as doubles, CEL has no mixed
// int/double arithmetic. Digits after a dot (".5") are left alone.
func asDoubles(text string) string {
	return integerLiteral.ReplaceAllStringFunc(text, func(lit string) string {
		if strings.Contains(lit, ".") {
			return lit
		}
		return lit + ".0"
	})
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
