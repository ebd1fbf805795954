package testjson

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// DefaultBufferSize is the maximum line length accepted by [NewParser].
const DefaultBufferSize = 1024 * 1024

// Parser reads go test -json NDJSON.
//
// Malformed lines are counted and skipped, so a stream mixed with plain build
// output still yields every valid event.
type Parser struct {
	// BufferSize is the maximum size in bytes for a single line. Lines longer
	// than this stop parsing with an error. Defaults to [DefaultBufferSize].
	BufferSize int
}

// NewParser creates a [Parser] with default settings.
func NewParser() *Parser {
	return &Parser{BufferSize: DefaultBufferSize}
}

type scanResult struct {
	line []byte
	err  error
}

// Stream parses events line by line and calls fn for each one. It stops on
// EOF or when ctx is cancelled, and returns the number of malformed lines
// skipped.
//
// The scanner runs in a background goroutine. On cancel, Stream closes r if it
// implements io.Closer to unblock the scanner.
func (p *Parser) Stream(ctx context.Context, r io.Reader, fn ProcessFunc) (int, error) {
	bufSize := p.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, bufSize)), bufSize)

	lines := make(chan scanResult)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			// Scanner reuses its buffer
			cp := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- scanResult{line: cp}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case lines <- scanResult{err: err}:
			case <-ctx.Done():
			}
		}
	}()

	var malformed int
	for {
		select {
		case <-ctx.Done():
			if c, ok := r.(io.Closer); ok {
				_ = c.Close()
			}
			return malformed, ctx.Err()
		case res, ok := <-lines:
			if !ok {
				return malformed, nil
			}
			if res.err != nil {
				return malformed, fmt.Errorf("scanning test output: %w", res.err)
			}
			if len(res.line) == 0 {
				continue
			}
			event, err := parseEvent(res.line)
			if err != nil {
				malformed++
				continue
			}
			fn(event)
		}
	}
}

// parseEvent decodes one line into a [TestEvent]. A line without an Action is
// not a test event.
func parseEvent(line []byte) (TestEvent, error) {
	var event TestEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return TestEvent{}, err
	}
	if event.Action == "" {
		return TestEvent{}, fmt.Errorf("test event has no Action")
	}
	return event, nil
}
