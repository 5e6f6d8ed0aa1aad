package scorefunc

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Errors returned during expression compilation.
var (
	// ErrUnknownStage is returned in strict mode when an expression token
	// matches no recognized stage name.
	ErrUnknownStage = errors.New("unknown score function stage")
)

// MalformedExpressionError reports the offending token of an expression
// that failed strict compilation.
type MalformedExpressionError struct {
	// Expr is the full expression being compiled.
	Expr string
	// Token is the stage token that was not recognized.
	Token string
}

// Error implements the error interface.
func (e *MalformedExpressionError) Error() string {
	return fmt.Sprintf("malformed score function %q: %v: %q", e.Expr, ErrUnknownStage, e.Token)
}

// Unwrap returns ErrUnknownStage so callers can match with errors.Is.
func (e *MalformedExpressionError) Unwrap() error { return ErrUnknownStage }

// Mode selects how compilation treats unrecognized stage tokens.
type Mode int

const (
	// ModeLenient silently drops unrecognized tokens, the legacy behavior.
	ModeLenient Mode = iota
	// ModeStrict fails compilation with a MalformedExpressionError.
	ModeStrict
)

// Pipeline is a compiled score function: an ordered stage list that is
// always terminated by a sum reduction, so any expression - including the
// empty one - reduces a value list to a single integer. Pipelines are
// immutable after compilation and safe for concurrent use.
type Pipeline struct {
	expr   string
	stages []Stage
}

// Expr returns the expression this pipeline was compiled from.
func (p *Pipeline) Expr() string { return p.expr }

// Stages returns a copy of the pipeline's stages, excluding the implicit
// terminal sum.
func (p *Pipeline) Stages() []Stage {
	stages := make([]Stage, len(p.stages))
	copy(stages, p.stages)
	return stages
}

// Reduce runs the values, ordered by round ascending, through every stage
// left to right and sums whatever remains. An empty input reduces to zero.
// The input slice is not mutated.
func (p *Pipeline) Reduce(values []int) int {
	for _, stage := range p.stages {
		values = stage.apply(values)
	}
	return sum(values)
}

// Stage tokens are alphanumeric runs; everything between them (arrows,
// commas, whitespace) is connective text. The word "then" is connective
// too, so "max4 then sum" and "max4 -> sum" compile identically.
var (
	tokenPattern  = regexp.MustCompile(`[a-zA-Z0-9]+`)
	maxPattern    = regexp.MustCompile(`^max(\d+)$`)
	minPattern    = regexp.MustCompile(`^min(\d+)$`)
	padPattern    = regexp.MustCompile(`^pad(\d+)with(\d+)$`)
	newestPattern = regexp.MustCompile(`^newest(\d+)$`)
	oldestPattern = regexp.MustCompile(`^oldest(\d+)$`)
)

// parseStage recognizes a single stage token. The second return value is
// false for unrecognized tokens.
func parseStage(token string) (Stage, bool) {
	switch token {
	case "sum":
		return Stage{Kind: StageSum}, true
	case "average":
		return Stage{Kind: StageAverage}, true
	}
	if m := maxPattern.FindStringSubmatch(token); m != nil {
		return Stage{Kind: StageMax, N: mustAtoi(m[1])}, true
	}
	if m := minPattern.FindStringSubmatch(token); m != nil {
		return Stage{Kind: StageMin, N: mustAtoi(m[1])}, true
	}
	if m := padPattern.FindStringSubmatch(token); m != nil {
		return Stage{Kind: StagePad, N: mustAtoi(m[1]), V: mustAtoi(m[2])}, true
	}
	if m := newestPattern.FindStringSubmatch(token); m != nil {
		return Stage{Kind: StageNewest, N: mustAtoi(m[1])}, true
	}
	if m := oldestPattern.FindStringSubmatch(token); m != nil {
		return Stage{Kind: StageOldest, N: mustAtoi(m[1])}, true
	}
	return Stage{}, false
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		// Unreachable: the submatch is \d+.
		panic(err)
	}
	return n
}

// Compile parses an expression into a pipeline without caching.
// The empty expression compiles to the implicit sum alone.
func Compile(expr string, mode Mode) (*Pipeline, error) {
	var stages []Stage
	for _, token := range tokenPattern.FindAllString(expr, -1) {
		token = strings.ToLower(token)
		if token == "then" {
			continue
		}
		stage, ok := parseStage(token)
		if !ok {
			if mode == ModeStrict {
				return nil, &MalformedExpressionError{Expr: expr, Token: token}
			}
			continue
		}
		stages = append(stages, stage)
	}
	return &Pipeline{expr: expr, stages: stages}, nil
}

// MustCompile is like Compile but panics on error. It is intended for
// expressions known to be valid, such as literals in tests.
func MustCompile(expr string, mode Mode) *Pipeline {
	p, err := Compile(expr, mode)
	if err != nil {
		panic(err)
	}
	return p
}

// Compiler compiles expressions with a cache of previously compiled
// pipelines. Cached pipelines are shared between callers and must never be
// mutated; Pipeline exposes no mutating methods, so sharing is safe.
type Compiler struct {
	mu    sync.RWMutex
	cache map[string]*Pipeline
	// sf collapses concurrent compilations of the same expression.
	sf singleflight.Group
}

// NewCompiler creates a compiler with an empty cache.
func NewCompiler() *Compiler {
	return &Compiler{cache: make(map[string]*Pipeline)}
}

// Compile returns the pipeline for the expression, compiling it on first
// use. Compiling the same expression twice yields the identical pipeline;
// the compiler holds no state that could make compilation order-dependent.
func (c *Compiler) Compile(expr string, mode Mode) (*Pipeline, error) {
	key := fmt.Sprintf("%d:%s", mode, expr)

	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.cache[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		pipeline, err := Compile(expr, mode)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = pipeline
		c.mu.Unlock()
		return pipeline, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Pipeline), nil
}
