package script

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/compiler"
	"github.com/risor-io/risor/modules/all"
	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/parser"
)

// Names bound for every item a stage evaluates an expression against.
const (
	ItemGlobal  = "it"
	IndexGlobal = "index"
	EnvGlobal   = "env"
)

type RisorScript struct {
	engine *RisorEngine
	code   *compiler.Code
	source string
}

func (s *RisorScript) Evaluate(ctx context.Context, globals map[string]any) (Value, error) {
	combined := make(map[string]any, len(s.engine.globals)+len(globals))
	for name, value := range s.engine.globals {
		combined[name] = value
	}
	for name, value := range globals {
		combined[name] = value
	}
	value, err := risor.EvalCode(ctx, s.code, risor.WithGlobals(combined))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %q: %w", s.source, err)
	}
	return &RisorValue{obj: value}, nil
}

// RisorEngine compiles expressions against a fixed set of global names.
// Globals passed at evaluation time must be among those names.
type RisorEngine struct {
	globals map[string]any
}

func NewRisorEngine(globals map[string]any) *RisorEngine {
	return &RisorEngine{globals: globals}
}

// NewExpressionEngine returns an engine with the safe builtins plus the
// per-item names "it", "index" and "env".
func NewExpressionEngine() *RisorEngine {
	return NewRisorEngine(DefaultGlobals())
}

func (e *RisorEngine) Compile(ctx context.Context, code string) (Script, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	ast, err := parser.Parse(ctx, code)
	if err != nil {
		return nil, err
	}

	globalNames := make([]string, 0, len(e.globals))
	for name := range e.globals {
		globalNames = append(globalNames, name)
	}
	sort.Strings(globalNames)

	compiled, err := compiler.Compile(ast, compiler.WithGlobalNames(globalNames))
	if err != nil {
		return nil, err
	}
	return &RisorScript{engine: e, code: compiled, source: code}, nil
}

type RisorValue struct {
	obj object.Object
}

func (value *RisorValue) Value() any {
	return ConvertRisorValueToGo(value.obj)
}

func (value *RisorValue) IsTruthy() bool {
	return ConvertRisorValueToBool(value.obj)
}

func (value *RisorValue) String() string {
	switch v := value.obj.(type) {
	case *object.String:
		return v.Value()
	case *object.Int:
		return fmt.Sprintf("%d", v.Value())
	case *object.Float:
		return fmt.Sprintf("%g", v.Value())
	case *object.Bool:
		return fmt.Sprintf("%t", v.Value())
	case *object.Time:
		return v.Value().Format(time.RFC3339)
	case *object.NilType:
		return ""
	default:
		return value.obj.Inspect()
	}
}

// DefaultGlobals returns the safe builtins and placeholders for the per-item
// names.
func DefaultGlobals() map[string]any {
	safe := SafeBuiltins()
	globals := map[string]any{}
	for name, value := range all.Builtins() {
		if safe[name] {
			globals[name] = value
		}
	}
	globals[ItemGlobal] = object.Nil
	globals[IndexGlobal] = object.NewInt(0)
	globals[EnvGlobal] = object.NewMap(map[string]object.Object{})
	return globals
}
