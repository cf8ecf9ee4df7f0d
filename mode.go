package pipeshell

import "fmt"

// Mode selects how a run's result is presented.
type Mode string

const (
	// ModeHuman prints items for a person and lets commands render directly.
	ModeHuman Mode = "human"

	// ModeTool emits exactly one JSON envelope per invocation.
	ModeTool Mode = "tool"
)

// ParseMode validates a mode name. An empty name means ModeHuman.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case "", ModeHuman:
		return ModeHuman, nil
	case ModeTool:
		return ModeTool, nil
	}
	return "", fmt.Errorf("invalid mode %q (expected %q or %q)", name, ModeHuman, ModeTool)
}
