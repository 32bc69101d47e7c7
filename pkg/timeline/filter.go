package timeline

import (
	"strings"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
)

// Filter selects a category of actions.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterFiles    Filter = "files"
	FilterCommands Filter = "commands"
	FilterText     Filter = "text"
)

// ParseFilter validates a filter name. An empty name means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterFiles, FilterCommands, FilterText:
		return f, nil
	default:
		return "", errors.InvalidInput("filter", "must be one of files, commands, text, all").
			WithDetail("value", s)
	}
}

// Match reports whether an action belongs to the category.
func (f Filter) Match(a models.TimelineAction) bool {
	switch f {
	case FilterFiles:
		return a.Kind.IsFileKind()
	case FilterCommands:
		return a.Kind == models.ActionCommand
	case FilterText:
		return a.Kind == models.ActionText
	default:
		return true
	}
}

// Apply returns the matching actions in order. The input is not modified.
func (f Filter) Apply(actions []models.TimelineAction) []models.TimelineAction {
	if f == FilterAll || f == "" {
		return actions
	}
	out := make([]models.TimelineAction, 0, len(actions))
	for _, a := range actions {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}
