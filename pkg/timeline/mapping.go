package timeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/transcripts"
)

const (
	editExcerptLen   = 80
	commandLen       = 200
	patternLen       = 60
	toolInputLen     = 150
	textLen          = 120
	toolUseBlockType = "tool_use"
	textBlockType    = "text"
)

// toolInput holds the tool input fields the mapping reads.
type toolInput struct {
	FilePath     string  `json:"file_path"`
	NotebookPath string  `json:"notebook_path"`
	Path         string  `json:"path"`
	OldString    *string `json:"old_string"`
	NewString    *string `json:"new_string"`
	Edits        []struct {
		OldString *string `json:"old_string"`
		NewString *string `json:"new_string"`
	} `json:"edits"`
	Command string `json:"command"`
	Pattern string `json:"pattern"`
}

func (in toolInput) target() string {
	if in.FilePath != "" {
		return in.FilePath
	}
	return in.NotebookPath
}

// mapper turns content blocks into actions.
type mapper struct {
	short Shortener
}

// toolAction maps one tool_use block. Every tool produces exactly one action.
func (m mapper) toolAction(b transcripts.Block) models.TimelineAction {
	var in toolInput
	if len(b.Input) > 0 {
		_ = json.Unmarshal(b.Input, &in)
	}

	switch b.Name {
	case "Read":
		return models.TimelineAction{
			Kind:        models.ActionFileRead,
			Description: "Read " + m.short.Shorten(in.target()),
			FilePath:    in.target(),
		}
	case "Write":
		return models.TimelineAction{
			Kind:        models.ActionFileWrite,
			Description: "Created " + m.short.Shorten(in.target()),
			FilePath:    in.target(),
		}
	case "Edit", "MultiEdit", "NotebookEdit":
		return models.TimelineAction{
			Kind:        models.ActionFileEdit,
			Description: "Edited " + m.short.Shorten(in.target()),
			FilePath:    in.target(),
			Detail:      editPreview(in),
		}
	case "Bash":
		return models.TimelineAction{
			Kind:        models.ActionCommand,
			Description: "Ran command",
			Detail:      Truncate(OneLine(in.Command), commandLen),
		}
	case "Grep", "Glob":
		return models.TimelineAction{
			Kind:        models.ActionFileRead,
			Description: `Searched for "` + Truncate(OneLine(in.Pattern), patternLen) + `"`,
			FilePath:    in.Path,
		}
	default:
		detail := strings.TrimSpace(string(b.Input))
		if detail == "" || detail == "null" {
			detail = "{}"
		}
		return models.TimelineAction{
			Kind:        models.ActionCommand,
			Description: "Tool: " + b.Name,
			Detail:      Truncate(compactJSON(detail), toolInputLen),
		}
	}
}

// editPreview renders "- old\n+ new" when both strings are present.
func editPreview(in toolInput) string {
	oldStr, newStr := in.OldString, in.NewString
	if (oldStr == nil || newStr == nil) && len(in.Edits) > 0 {
		oldStr, newStr = in.Edits[0].OldString, in.Edits[0].NewString
	}
	if oldStr == nil || newStr == nil {
		return ""
	}
	return "- " + Truncate(OneLine(*oldStr), editExcerptLen) + "\n+ " + Truncate(OneLine(*newStr), editExcerptLen)
}

func compactJSON(raw string) string {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return OneLine(raw)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return OneLine(raw)
	}
	return string(data)
}

// idSet tracks action IDs already issued within one session.
type idSet map[string]struct{}

// assign returns the block id when present and unused, else the positional
// "lineIndex-ordinal" form.
func (ids idSet) assign(blockID string, lineIndex, ordinal int) string {
	id := blockID
	if id == "" {
		id = fmt.Sprintf("%d-%d", lineIndex, ordinal)
	} else if _, dup := ids[id]; dup {
		id = fmt.Sprintf("%d-%d", lineIndex, ordinal)
	}
	ids[id] = struct{}{}
	return id
}

// recordActions maps the content blocks of one assistant record.
func (m mapper) recordActions(r *transcripts.Record, lineIndex int, ids idSet) []models.TimelineAction {
	var actions []models.TimelineAction
	for ordinal, b := range r.Blocks() {
		var a models.TimelineAction
		switch b.Type {
		case toolUseBlockType:
			a = m.toolAction(b)
		case textBlockType:
			text := strings.TrimSpace(b.Text)
			if text == "" {
				continue
			}
			kind := models.ActionText
			if r.IsAPIError {
				kind = models.ActionError
			}
			a = models.TimelineAction{Kind: kind, Description: Truncate(text, textLen)}
		default:
			continue
		}
		a.ID = ids.assign(b.ID, lineIndex, ordinal)
		actions = append(actions, a)
	}

	// API errors sometimes carry string content instead of blocks.
	if len(actions) == 0 && r.IsAPIError {
		if text, ok := r.PlainText(); ok && strings.TrimSpace(text) != "" {
			actions = append(actions, models.TimelineAction{
				ID:          ids.assign("", lineIndex, 0),
				Kind:        models.ActionError,
				Description: Truncate(strings.TrimSpace(text), textLen),
			})
		}
	}
	return actions
}
