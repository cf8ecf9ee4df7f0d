package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/pipeshell"
	"github.com/deepnoodle-ai/pipeshell/script"
)

// itemGlobals builds the names an expression sees for one item.
func itemGlobals(ctx pipeshell.Context, item pipeshell.Item, index int) (map[string]any, error) {
	value, err := plainValue(item)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		script.ItemGlobal:  value,
		script.IndexGlobal: index,
		script.EnvGlobal:   envMap(ctx.Env()),
	}, nil
}

// plainValue converts an item into the JSON value types expressions accept.
func plainValue(item pipeshell.Item) (any, error) {
	switch v := item.(type) {
	case nil, string, bool, int, int64, float64, map[string]any, []any:
		return v, nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("item cannot be used in an expression: %w", err)
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func compileExpression(ctx pipeshell.Context, args pipeshell.Args) (script.Script, error) {
	code := strings.TrimSpace(strings.Join(args.Positional(), " "))
	if code == "" {
		return nil, fmt.Errorf("an expression is required")
	}
	compiled, err := script.NewExpressionEngine().Compile(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", code, err)
	}
	return compiled, nil
}

const whereHelp = `Keep the items for which an expression is truthy.

Usage: where <expression>

The expression sees the item as "it", its position as "index" and the
environment as "env". Example: where it.size > 10`

type WhereCommand struct{}

func NewWhereCommand() pipeshell.Command {
	return &WhereCommand{}
}

func (c *WhereCommand) Name() string {
	return "where"
}

func (c *WhereCommand) Help() string {
	return whereHelp
}

func (c *WhereCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	code, err := compileExpression(ctx, args)
	if err != nil {
		return nil, err
	}
	index := 0
	return pipeshell.Pass(pipeshell.Filter(input, func(item pipeshell.Item) (bool, error) {
		globals, err := itemGlobals(ctx, item, index)
		index++
		if err != nil {
			return false, err
		}
		result, err := code.Evaluate(ctx, globals)
		if err != nil {
			return false, err
		}
		return result.IsTruthy(), nil
	})), nil
}

const mapHelp = `Replace each item with the value of an expression.

Usage: map <expression>

The expression sees the item as "it", its position as "index" and the
environment as "env". Example: map '{"name": it.name, "big": it.size > 10}'`

type MapCommand struct{}

func NewMapCommand() pipeshell.Command {
	return &MapCommand{}
}

func (c *MapCommand) Name() string {
	return "map"
}

func (c *MapCommand) Help() string {
	return mapHelp
}

func (c *MapCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	code, err := compileExpression(ctx, args)
	if err != nil {
		return nil, err
	}
	index := 0
	return pipeshell.Pass(pipeshell.Map(input, func(item pipeshell.Item) (pipeshell.Item, error) {
		globals, err := itemGlobals(ctx, item, index)
		index++
		if err != nil {
			return nil, err
		}
		result, err := code.Evaluate(ctx, globals)
		if err != nil {
			return nil, err
		}
		return result.Value(), nil
	})), nil
}

const formatHelp = `Render each item through a template.

Usage: format <template>

Text inside ${...} is evaluated as an expression with "it", "index" and
"env" available. Example: format '${it.name} is ${it.size} bytes'`

type FormatCommand struct{}

func NewFormatCommand() pipeshell.Command {
	return &FormatCommand{}
}

func (c *FormatCommand) Name() string {
	return "format"
}

func (c *FormatCommand) Help() string {
	return formatHelp
}

func (c *FormatCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	raw := strings.Join(args.Positional(), " ")
	if raw == "" {
		return nil, fmt.Errorf("a template is required")
	}
	tmpl, err := script.NewTemplate(script.NewExpressionEngine(), raw)
	if err != nil {
		return nil, err
	}
	index := 0
	return pipeshell.Pass(pipeshell.Map(input, func(item pipeshell.Item) (pipeshell.Item, error) {
		globals, err := itemGlobals(ctx, item, index)
		index++
		if err != nil {
			return nil, err
		}
		text, err := tmpl.Eval(ctx, globals)
		if err != nil {
			return nil, err
		}
		return text, nil
	})), nil
}
