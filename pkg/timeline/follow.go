package timeline

import (
	"context"
	"io"
	stdlog "log"
	"os"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/transcripts"
	"github.com/hpcloud/tail"
)

// FollowOptions configures Follow.
type FollowOptions struct {
	// FromStart replays the existing content before following.
	FromStart bool
	// Poll uses stat polling instead of inotify.
	Poll bool
	// Filter drops non-matching actions.
	Filter Filter
}

// Follow tails a transcript and emits an action for every appended assistant
// block, using the same mapping and IDs as ParseDetail. The channel closes
// when ctx is cancelled.
func (p *Parser) Follow(ctx context.Context, path string, opts FollowOptions) (<-chan models.TimelineAction, error) {
	offset, lineIndex := int64(0), 0
	if !opts.FromStart {
		var err error
		offset, lineIndex, err = countLines(path)
		if err != nil {
			return nil, err
		}
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    false,
		MustExist: true,
		Poll:      opts.Poll,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "failed to follow transcript").WithDetail("path", path)
	}

	out := make(chan models.TimelineAction, 64)
	go func() {
		defer close(out)
		defer t.Cleanup()
		defer t.Stop()

		ids := idSet{}
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-t.Lines:
				if !ok {
					return
				}
				index := lineIndex
				lineIndex++
				if line.Err != nil || transcripts.IsBlank([]byte(line.Text)) {
					continue
				}
				r, err := transcripts.ParseRecord([]byte(line.Text))
				if err != nil || r.Type != transcripts.TypeAssistant {
					continue
				}
				ts, ok := r.Time()
				if !ok {
					ts = line.Time
				}
				for _, a := range p.mapper.recordActions(r, index, ids) {
					if opts.Filter != "" && !opts.Filter.Match(a) {
						continue
					}
					a.Timestamp = ts
					select {
					case out <- a:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

// countLines returns the byte size of path and the number of lines in it.
func countLines(path string) (int64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, openError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to stat transcript").WithDetail("path", path)
	}

	lines := 0
	err = transcripts.ScanLines(io.LimitReader(f, info.Size()), func(int, []byte) bool {
		lines++
		return true
	})
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to read transcript").WithDetail("path", path)
	}
	return info.Size(), lines, nil
}
