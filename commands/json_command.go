package commands

import (
	"encoding/json"
	"fmt"

	"github.com/deepnoodle-ai/pipeshell"
	"github.com/tidwall/jsonc"
)

const jsonHelp = `Decode string items as JSON.

Usage: json [--jsonc] [--flatten]

Non-string items pass through unchanged. With --jsonc, comments and trailing
commas are accepted. With --flatten, decoded arrays are emitted element by
element.`

type JSONCommand struct{}

func NewJSONCommand() pipeshell.Command {
	return &JSONCommand{}
}

func (c *JSONCommand) Name() string {
	return "json"
}

func (c *JSONCommand) Help() string {
	return jsonHelp
}

func (c *JSONCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	lenient, err := args.Bool("jsonc")
	if err != nil {
		return nil, fmt.Errorf("--jsonc: %w", err)
	}
	flatten, err := args.Bool("flatten")
	if err != nil {
		return nil, fmt.Errorf("--flatten: %w", err)
	}
	items := func(yield func(pipeshell.Item, error) bool) {
		index := 0
		for item, err := range input {
			if err != nil {
				yield(nil, err)
				return
			}
			index++
			text, ok := item.(string)
			if !ok {
				if !yield(item, nil) {
					return
				}
				continue
			}
			data := []byte(text)
			if lenient {
				data = jsonc.ToJSON(data)
			}
			var value any
			if err := json.Unmarshal(data, &value); err != nil {
				yield(nil, fmt.Errorf("item %d is not valid json: %w", index, err))
				return
			}
			if list, ok := value.([]any); ok && flatten {
				for _, v := range list {
					if !yield(v, nil) {
						return
					}
				}
				continue
			}
			if !yield(value, nil) {
				return
			}
		}
	}
	return &pipeshell.Output{Items: items}, nil
}
