package commands

import (
	"cmp"
	"slices"

	"github.com/deepnoodle-ai/pipeshell"
)

const sortHelp = `Sort items.

Usage: sort [--key FIELD] [--desc]

Numbers sort numerically and strings lexically. Values of different kinds
sort by kind: null, booleans, numbers, strings, then everything else by its
JSON text. The sort is stable.`

type SortCommand struct{}

func NewSortCommand() pipeshell.Command {
	return &SortCommand{}
}

func (c *SortCommand) Name() string {
	return "sort"
}

func (c *SortCommand) Help() string {
	return sortHelp
}

func (c *SortCommand) Run(ctx pipeshell.Context, input pipeshell.Stream, args pipeshell.Args) (*pipeshell.Output, error) {
	key, byKey := args.String("key")
	desc, err := args.Bool("desc")
	if err != nil {
		return nil, err
	}
	items := func(yield func(pipeshell.Item, error) bool) {
		collected, err := pipeshell.Collect(input)
		if err != nil {
			yield(nil, err)
			return
		}
		sortKey := func(item pipeshell.Item) any {
			if !byKey {
				return item
			}
			v, _ := field(item, key)
			return v
		}
		slices.SortStableFunc(collected, func(a, b pipeshell.Item) int {
			n := compareValues(sortKey(a), sortKey(b))
			if desc {
				return -n
			}
			return n
		})
		for _, item := range collected {
			if !yield(item, nil) {
				return
			}
		}
	}
	return &pipeshell.Output{Items: items}, nil
}

func kindRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int, int64, float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func compareValues(a, b any) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case 1:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case 2:
		return cmp.Compare(toFloat(a), toFloat(b))
	case 3:
		return cmp.Compare(a.(string), b.(string))
	case 4:
		at, _ := itemText(a)
		bt, _ := itemText(b)
		return cmp.Compare(at, bt)
	}
	return 0
}
