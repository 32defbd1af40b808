// Package dify is a client for the Dify completion-messages API. It supports
// blocking calls, which return one full result, and streaming calls, which
// yield server-sent events as the answer is generated.
package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL = "https://api.dify.ai/v1"
	defaultUser    = "default_user"
)

const (
	modeBlocking  = "blocking"
	modeStreaming = "streaming"
)

// Client issues completion requests against a single Dify application.
// It is safe for concurrent use; per-call state lives on the stack.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a per-call deadline. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New builds a client for the application behind apiKey. An empty baseURL
// selects the public endpoint.
func New(baseURL, apiKey string, opts ...Option) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	c := &Client{
		baseURL: base,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request carries the arguments of one completion call. Query is copied into
// the inputs map under the "query" key; an empty Query is passed through
// untouched, business validation is the endpoint's concern.
type Request struct {
	Query  string
	Inputs map[string]any
	User   string
	Files  []FileInfo
}

type requestBody struct {
	Inputs       map[string]any `json:"inputs"`
	ResponseMode string         `json:"response_mode"`
	User         string         `json:"user"`
	Files        []FileInfo     `json:"files,omitempty"`
}

type completionPayload struct {
	MessageID string `json:"message_id"`
	Answer    string `json:"answer"`
	Usage     *Usage `json:"usage"`
	Metadata  struct {
		Usage              *Usage              `json:"usage"`
		RetrieverResources []RetrieverResource `json:"retriever_resources"`
	} `json:"metadata"`
	RetrieverResources []RetrieverResource `json:"retriever_resources"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	TaskID  string `json:"task_id"`
}

// CompleteBlocking performs a blocking completion call and decodes the full
// response. It returns *APIError on endpoint rejection, undecodable
// payloads, timeouts and transport failures.
func (c *Client) CompleteBlocking(ctx context.Context, req Request) (*CompletionResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.post(ctx, req, modeBlocking)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeErrorResponse(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	var payload completionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       codeParseError,
			Message:    fmt.Sprintf("failed to parse response: %v", err),
		}
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	result := &CompletionResult{
		MessageID: payload.MessageID,
		Answer:    payload.Answer,
		Raw:       raw,
	}
	switch {
	case payload.Metadata.Usage != nil:
		result.Usage = *payload.Metadata.Usage
	case payload.Usage != nil:
		result.Usage = *payload.Usage
	}
	result.RetrieverResources = payload.RetrieverResources
	if len(payload.Metadata.RetrieverResources) > 0 {
		result.RetrieverResources = payload.Metadata.RetrieverResources
	}
	return result, nil
}

// CompleteStreaming opens a streaming completion call. The returned Stream
// must be consumed on the calling goroutine and closed when abandoned early;
// it closes itself after a terminal event. Cancelling ctx also releases the
// connection.
func (c *Client) CompleteStreaming(ctx context.Context, req Request) (*Stream, error) {
	ctx, cancel := streamContext(ctx, c.timeout)

	resp, err := c.post(ctx, req, modeStreaming)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := decodeErrorResponse(resp)
		cancel()
		return nil, err
	}
	return newStream(resp.Body, cancel), nil
}

func streamContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Client) post(ctx context.Context, req Request, mode string) (*http.Response, error) {
	payload, err := json.Marshal(buildBody(req, mode))
	if err != nil {
		return nil, &APIError{Code: codeRequestError, Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completion-messages", bytes.NewReader(payload))
	if err != nil {
		return nil, &APIError{Code: codeRequestError, Message: err.Error()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if mode == modeStreaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	return resp, nil
}

func buildBody(req Request, mode string) requestBody {
	inputs := make(map[string]any, len(req.Inputs)+1)
	for k, v := range req.Inputs {
		inputs[k] = v
	}
	if _, ok := inputs["query"]; !ok || req.Query != "" {
		inputs["query"] = req.Query
	}

	user := req.User
	if user == "" {
		user = defaultUser
	}

	return requestBody{
		Inputs:       inputs,
		ResponseMode: mode,
		User:         user,
		Files:        req.Files,
	}
}

func transportError(ctx context.Context, err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &APIError{Code: codeTimeout, Message: "request timed out"}
	}
	return &APIError{Code: codeRequestError, Message: fmt.Sprintf("request failed: %v", err)}
}

func decodeErrorResponse(resp *http.Response) *APIError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       codeParseError,
			Message:    fmt.Sprintf("failed to parse error response: %s", strings.TrimSpace(string(body))),
		}
	}
	if payload.Code == "" {
		payload.Code = codeUnknownError
	}
	if payload.Message == "" {
		payload.Message = unknownErrMessage
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       payload.Code,
		Message:    payload.Message,
		TaskID:     payload.TaskID,
	}
}
