package process

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/telemetry/command"
	"github.com/grovetools/telemetry/errors"
)

// lstartLayout is the ps lstart format once its fields are single-spaced.
const lstartLayout = "Mon Jan 2 15:04:05 2006"

// Info describes one host process.
type Info struct {
	PID       int       `json:"pid"`
	StartTime time.Time `json:"start_time"`
	Command   string    `json:"command"`
}

// Lister enumerates host processes with ps.
type Lister struct {
	runner *command.Runner
}

// NewLister creates a Lister running ps through runner. A nil runner uses the
// real executor.
func NewLister(runner *command.Runner) *Lister {
	if runner == nil {
		runner = command.NewRunner()
	}
	return &Lister{runner: runner}
}

// List returns every process visible to the current user.
func (l *Lister) List(ctx context.Context) ([]Info, error) {
	out, err := l.runner.Output(ctx, "ps", "-axo", "pid=,lstart=,args=")
	if err != nil {
		return nil, errors.EnumerationFailed("process list", err)
	}
	return ParsePS(out), nil
}

// ParsePS parses "pid lstart args" lines. Lines that do not parse are dropped;
// an unparseable start time leaves StartTime zero.
func ParsePS(out []byte) []Info {
	var infos []Info
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		info, ok := parsePSLine(scanner.Text())
		if ok {
			infos = append(infos, info)
		}
	}
	return infos
}

func parsePSLine(line string) (Info, bool) {
	tokens, rest := splitFields(line, 6)
	if len(tokens) < 6 || rest == "" {
		return Info{}, false
	}
	pid, err := strconv.Atoi(tokens[0])
	if err != nil || pid <= 0 {
		return Info{}, false
	}
	start, err := time.ParseInLocation(lstartLayout, strings.Join(tokens[1:6], " "), time.Local)
	if err != nil {
		start = time.Time{}
	}
	return Info{PID: pid, StartTime: start, Command: rest}, true
}

// splitFields returns the first n whitespace-separated fields of s and the
// remainder with its inner spacing intact.
func splitFields(s string, n int) ([]string, string) {
	var fields []string
	for len(fields) < n {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return fields, ""
		}
		end := strings.IndexAny(s, " \t")
		if end < 0 {
			fields = append(fields, s)
			return fields, ""
		}
		fields = append(fields, s[:end])
		s = s[end:]
	}
	return fields, strings.TrimSpace(s)
}
