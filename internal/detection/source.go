package detection

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"
)

// ErrBadFrame marks a frame that could not be decoded. The loop skips it.
var ErrBadFrame = errors.New("bad frame")

// Frame is one evaluated video frame.
type Frame struct {
	At    time.Time `json:"ts"`
	Faces []Face    `json:"faces"`
}

// FrameSource yields frames until it returns io.EOF.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// LineSource reads frames encoded as one JSON object per line, the output
// format of the external face detector.
type LineSource struct {
	r       io.Reader
	scanner *bufio.Scanner
}

// NewLineSource wraps r. If r is an io.Closer, Close closes it.
func NewLineSource(r io.Reader) *LineSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &LineSource{r: r, scanner: sc}
}

// Next returns the next frame. Blank lines are skipped.
func (s *LineSource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Frame{}, errors.Wrap(err, "read frame")
			}
			return Frame{}, io.EOF
		}
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var f Frame
		if err := json.Unmarshal(line, &f); err != nil {
			return Frame{}, errors.Wrap(ErrBadFrame, err.Error())
		}
		return f, nil
	}
}

// Close releases the underlying reader.
func (s *LineSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
