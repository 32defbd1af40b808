package dify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sseHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	}
}

func collect(t *testing.T, stream *Stream) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	for stream.Next() {
		events = append(events, stream.Current())
	}
	return events
}

func TestCompleteStreamingEvents(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`data: {"event": "message", "message_id": "msg-1", "answer": "Hel"}`,
		`data: {"event": "message", "message_id": "msg-1", "answer": "lo"}`,
		`data: {"event": "message_end", "message_id": "msg-1", "metadata": {"usage": {"total_tokens": 7}}}`,
	))
	defer srv.Close()

	client := New(srv.URL, "test-key")
	stream, err := client.CompleteStreaming(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("CompleteStreaming: %v", err)
	}

	events := collect(t, stream)
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	var text string
	for _, ev := range events[:2] {
		if ev.Event != EventMessage {
			t.Errorf("event = %q, want message", ev.Event)
		}
		text += ev.Answer
	}
	if text != "Hello" {
		t.Errorf("concatenated text = %q, want Hello", text)
	}

	end := events[2]
	if end.Event != EventMessageEnd {
		t.Fatalf("last event = %q, want message_end", end.Event)
	}
	if u := end.Usage(); u == nil || u.TotalTokens != 7 {
		t.Errorf("usage = %+v, want total 7", u)
	}

	// A finished stream stays finished.
	if stream.Next() {
		t.Error("Next returned true after message_end")
	}
}

func TestStreamErrorEventIsTerminal(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`data: {"event": "message", "answer": "partial"}`,
		`data: {"event": "error", "status": 400, "code": "invalid_param", "message": "bad inputs"}`,
		`data: {"event": "message", "answer": "never seen"}`,
	))
	defer srv.Close()

	client := New(srv.URL, "test-key")
	stream, err := client.CompleteStreaming(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("CompleteStreaming: %v", err)
	}

	events := collect(t, stream)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].Event != EventError || events[1].Code != "invalid_param" {
		t.Errorf("terminal event = %+v, want invalid_param error", events[1])
	}
}

func TestStreamMalformedChunkBecomesErrorEvent(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`data: {"event": "message", "answer": "ok"}`,
		`data: {not json`,
	))
	defer srv.Close()

	client := New(srv.URL, "test-key")
	stream, err := client.CompleteStreaming(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("CompleteStreaming: %v", err)
	}

	events := collect(t, stream)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	last := events[1]
	if last.Event != EventError {
		t.Fatalf("last event = %q, want error", last.Event)
	}
	if last.Code != codeParseError {
		t.Errorf("code = %q, want %q", last.Code, codeParseError)
	}
}

func TestStreamSkipsNonDataLines(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`: keepalive comment`,
		`event: message`,
		`data: {"event": "ping"}`,
		`data: {"event": "message_end", "message_id": "msg-1"}`,
	))
	defer srv.Close()

	client := New(srv.URL, "test-key")
	stream, err := client.CompleteStreaming(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("CompleteStreaming: %v", err)
	}

	events := collect(t, stream)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Event != EventPing || events[1].Event != EventMessageEnd {
		t.Errorf("events = %v, %v; want ping, message_end", events[0].Event, events[1].Event)
	}
}

func TestStreamEndpointRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code": "app_unavailable", "message": "app is stopped"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := New(srv.URL, "test-key")
	_, err := client.CompleteStreaming(context.Background(), Request{Query: "q"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != "app_unavailable" {
		t.Errorf("code = %q, want app_unavailable", apiErr.Code)
	}
}

func TestStreamEarlyCloseReleasesConnection(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"event\": \"message\", \"answer\": \"first\"}\n\n")
		flusher.Flush()
		<-r.Context().Done()
		close(released)
	}))
	defer srv.Close()

	client := New(srv.URL, "test-key")
	stream, err := client.CompleteStreaming(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("CompleteStreaming: %v", err)
	}

	if !stream.Next() {
		t.Fatalf("expected a first event, err = %v", stream.Err())
	}
	if stream.Current().Answer != "first" {
		t.Errorf("answer = %q, want first", stream.Current().Answer)
	}

	stream.Close()

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not released after Close")
	}
}

func TestStreamNormalCompletionReleasesConnection(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"event\": \"message_end\", \"message_id\": \"msg-1\"}\n\n")
		flusher.Flush()
		<-r.Context().Done()
		close(released)
	}))
	defer srv.Close()

	client := New(srv.URL, "test-key")
	stream, err := client.CompleteStreaming(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("CompleteStreaming: %v", err)
	}
	for stream.Next() {
	}

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not released after message_end")
	}
}
