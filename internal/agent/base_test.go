package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"scribe/internal/dify"
)

// capture records decoded request bodies across calls.
type capture struct {
	mu     sync.Mutex
	bodies []capturedBody
}

type capturedBody struct {
	Inputs       map[string]any `json:"inputs"`
	ResponseMode string         `json:"response_mode"`
	User         string         `json:"user"`
}

func (c *capture) push(r *http.Request) capturedBody {
	var body capturedBody
	json.NewDecoder(r.Body).Decode(&body)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies = append(c.bodies, body)
	return body
}

func (c *capture) body(i int) capturedBody {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.bodies) {
		return capturedBody{}
	}
	return c.bodies[i]
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func answerHandler(c *capture, answer string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.push(r)
		json.NewEncoder(w).Encode(map[string]any{
			"message_id": "msg-1",
			"answer":     answer,
			"metadata":   map[string]any{"usage": map[string]any{"total_tokens": 3}},
		})
	}
}

func streamingHandler(c *capture, chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.push(r)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range chunks {
			payload, _ := json.Marshal(map[string]any{"event": "message", "message_id": "msg-1", "answer": chunk})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
		fmt.Fprint(w, `data: {"event": "message_end", "message_id": "msg-1", "metadata": {"usage": {"total_tokens": 3}}}`+"\n\n")
		flusher.Flush()
	}
}

func newValidator(srv *httptest.Server) *ContentValidator {
	return NewContentValidator(dify.New(srv.URL, "test-key"), nil)
}

func TestProcessSuccessEnvelope(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(answerHandler(c, "looks good"))
	defer srv.Close()

	resp := newValidator(srv).Process(context.Background(), Params{Query: "check this"})

	if !resp.Success {
		t.Fatalf("success = false, error = %q", resp.ErrorMessage)
	}
	if resp.Content != "looks good" {
		t.Errorf("content = %q, want looks good", resp.Content)
	}
	if resp.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty", resp.ErrorMessage)
	}
	if got := resp.Metadata["message_id"]; got != "msg-1" {
		t.Errorf("metadata message_id = %v, want msg-1", got)
	}
	if _, ok := resp.Metadata["usage"]; !ok {
		t.Error("metadata is missing usage")
	}
}

func TestProcessRecoversTransportFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code": "internal_error", "message": "boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	resp := newValidator(srv).Process(context.Background(), Params{Query: "check this"})

	if resp.Success {
		t.Fatal("success = true, want recovered failure")
	}
	if resp.ErrorMessage == "" {
		t.Fatal("error message is empty")
	}
	if resp.Content != "" {
		t.Errorf("content = %q, want empty", resp.Content)
	}
}

func TestProcessAppliesSystemPromptAndDefaults(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(answerHandler(c, "ok"))
	defer srv.Close()

	newValidator(srv).Process(context.Background(), Params{Query: "check this"})

	body := c.body(0)
	query, _ := body.Inputs["query"].(string)
	if query == "check this" {
		t.Error("query was not framed with the system prompt")
	}
	if _, ok := body.Inputs["validation_criteria"]; !ok {
		t.Error("default inputs were not merged")
	}
	if body.User != string(TypeContentValidator) {
		t.Errorf("user = %q, want %q", body.User, TypeContentValidator)
	}
}

func TestProcessStreamingContentEquivalence(t *testing.T) {
	blockC := &capture{}
	blockSrv := httptest.NewServer(answerHandler(blockC, "Hello world"))
	defer blockSrv.Close()

	streamC := &capture{}
	streamSrv := httptest.NewServer(streamingHandler(streamC, "Hello", " world"))
	defer streamSrv.Close()

	blocking := newValidator(blockSrv).Process(context.Background(), Params{Query: "q"})

	var chunks string
	var final Response
	for resp := range newValidator(streamSrv).ProcessStreaming(context.Background(), Params{Query: "q"}) {
		if !resp.Success {
			t.Fatalf("streaming failed: %s", resp.ErrorMessage)
		}
		if ev, _ := resp.Metadata["event"].(string); ev == "message_end" {
			final = resp
			continue
		}
		chunks += resp.Content
	}

	if chunks != blocking.Content {
		t.Errorf("streamed chunks = %q, blocking answer = %q", chunks, blocking.Content)
	}
	if final.Content != blocking.Content {
		t.Errorf("final aggregated content = %q, want %q", final.Content, blocking.Content)
	}
	if _, ok := final.Metadata["usage"]; !ok {
		t.Error("final envelope is missing usage metadata")
	}
}

func TestProcessStreamingErrorEventEndsSequence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, `data: {"event": "message", "answer": "partial"}`+"\n\n")
		fmt.Fprint(w, `data: {"event": "error", "status": 500, "code": "completion_request_error", "message": "upstream failed"}`+"\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	var responses []Response
	for resp := range newValidator(srv).ProcessStreaming(context.Background(), Params{Query: "q"}) {
		responses = append(responses, resp)
	}

	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}
	last := responses[len(responses)-1]
	if last.Success {
		t.Fatal("terminal response reports success after error event")
	}
	if last.ErrorMessage == "" {
		t.Fatal("terminal response has no error message")
	}
}

func TestProcessStreamingAbandonReleasesConnection(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, `data: {"event": "message", "answer": "first"}`+"\n\n")
		flusher.Flush()
		<-r.Context().Done()
		close(released)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := newValidator(srv).ProcessStreaming(ctx, Params{Query: "q"})

	resp, ok := <-ch
	if !ok || !resp.Success {
		t.Fatalf("first response = %+v, ok = %v", resp, ok)
	}
	cancel()

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not released after abandoning the stream")
	}

	// The producer goroutine closes the channel after cancellation.
	for range ch {
	}
}
