package dify

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Stream iterates the server-sent events of one streaming completion call.
// Consume it with Next/Current and check Err afterwards, the same way SDK
// streams are consumed:
//
//	for stream.Next() {
//		ev := stream.Current()
//		...
//	}
//	if err := stream.Err(); err != nil { ... }
//
// The stream ends after a message_end or error event and closes its
// connection at that point. A consumer that stops early must call Close (or
// cancel the call context) to release the connection. A Stream is not
// restartable; issue a new call instead.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc

	closeOnce sync.Once
	cur       StreamEvent
	err       error
	done      bool
}

func newStream(body io.ReadCloser, cancel context.CancelFunc) *Stream {
	s := bufio.NewScanner(body)
	s.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return &Stream{body: body, scanner: s, cancel: cancel}
}

// Next advances to the next event. It returns false when the stream is
// exhausted or failed; terminal events (message_end, error) are still
// yielded before Next starts returning false.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var ev StreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil || ev.Event == "" {
			// Every received chunk maps to at most one event; an
			// undecodable chunk becomes a terminal error event.
			s.cur = StreamEvent{
				Event:   EventError,
				Code:    codeParseError,
				Message: fmt.Sprintf("failed to parse stream chunk: %.200s", data),
			}
			s.finish()
			return true
		}

		s.cur = ev
		if ev.Event == EventMessageEnd || ev.Event == EventError {
			s.finish()
		}
		return true
	}

	if err := s.scanner.Err(); err != nil {
		s.err = &APIError{Code: codeRequestError, Message: fmt.Sprintf("stream read failed: %v", err)}
	}
	s.finish()
	return false
}

// Current returns the event yielded by the last successful Next.
func (s *Stream) Current() StreamEvent {
	return s.cur
}

// Err reports a transport-level failure of the stream. Endpoint-signalled
// errors arrive as EventError events instead.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the underlying connection. Safe to call multiple times and
// after normal completion.
func (s *Stream) Close() error {
	s.finish()
	return nil
}

func (s *Stream) finish() {
	s.done = true
	s.closeOnce.Do(func() {
		s.body.Close()
		if s.cancel != nil {
			s.cancel()
		}
	})
}
