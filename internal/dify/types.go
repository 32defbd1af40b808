package dify

import "fmt"

// File types accepted by the completion endpoint.
const (
	FileTypeImage = "image"
)

// Transfer methods for attached files.
const (
	TransferRemoteURL = "remote_url"
	TransferLocalFile = "local_file"
)

// FileInfo describes a file attached to a request, either by remote URL or
// by the id of a previously uploaded file. Exactly one of URL and
// UploadFileID is set, matching TransferMethod.
type FileInfo struct {
	Type           string `json:"type"`
	TransferMethod string `json:"transfer_method"`
	URL            string `json:"url,omitempty"`
	UploadFileID   string `json:"upload_file_id,omitempty"`
}

// RemoteImage builds a FileInfo for an image fetched by the endpoint.
func RemoteImage(url string) FileInfo {
	return FileInfo{Type: FileTypeImage, TransferMethod: TransferRemoteURL, URL: url}
}

// UploadedImage builds a FileInfo for an image already uploaded to the
// endpoint.
func UploadedImage(id string) FileInfo {
	return FileInfo{Type: FileTypeImage, TransferMethod: TransferLocalFile, UploadFileID: id}
}

// Usage reports model token consumption for a completed message.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// RetrieverResource is a citation segment attached by the endpoint's
// knowledge retrieval.
type RetrieverResource struct {
	Position       int     `json:"position"`
	DatasetID      string  `json:"dataset_id"`
	DatasetName    string  `json:"dataset_name"`
	DocumentID     string  `json:"document_id"`
	DocumentName   string  `json:"document_name"`
	DataSourceType string  `json:"data_source_type"`
	SegmentID      string  `json:"segment_id"`
	Score          float64 `json:"score"`
	Content        string  `json:"content"`
}

// CompletionResult is the decoded payload of a blocking completion call.
// Immutable after construction.
type CompletionResult struct {
	MessageID          string
	Answer             string
	Usage              Usage
	RetrieverResources []RetrieverResource
	Raw                map[string]any
}

// EventType discriminates streaming events.
type EventType string

const (
	EventMessage        EventType = "message"
	EventMessageEnd     EventType = "message_end"
	EventMessageReplace EventType = "message_replace"
	EventTTSMessage     EventType = "tts_message"
	EventTTSMessageEnd  EventType = "tts_message_end"
	EventError          EventType = "error"
	EventPing           EventType = "ping"
)

// StreamEvent is one decoded server-sent event from a streaming call.
// Which fields are populated depends on Event.
type StreamEvent struct {
	Event     EventType     `json:"event"`
	TaskID    string        `json:"task_id"`
	MessageID string        `json:"message_id"`
	Answer    string        `json:"answer"`
	Audio     string        `json:"audio"`
	CreatedAt int64         `json:"created_at"`
	Metadata  eventMetadata `json:"metadata"`

	// Populated for error events.
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type eventMetadata struct {
	Usage              *Usage              `json:"usage"`
	RetrieverResources []RetrieverResource `json:"retriever_resources"`
}

// Usage returns the usage carried by a message_end event, if any.
func (e StreamEvent) Usage() *Usage {
	return e.Metadata.Usage
}

// RetrieverResources returns the citations carried by a message_end event.
func (e StreamEvent) RetrieverResources() []RetrieverResource {
	return e.Metadata.RetrieverResources
}

// APIError is returned when the endpoint rejects a call or a payload cannot
// be decoded. StatusCode is 0 when the request never reached the endpoint.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	TaskID     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// Error codes the client itself produces.
const (
	codeRequestError  = "request_error"
	codeParseError    = "response_parse_error"
	codeTimeout       = "timeout"
	codeUnknownError  = "unknown_error"
	unknownErrMessage = "Unknown error occurred"
)
