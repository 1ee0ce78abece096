package engine

import (
	apperrors "github.com/conneroisu/randomall/internal/errors"
	"github.com/conneroisu/randomall/internal/i18n"
)

// Status tags the outcome of a test or save.
type Status string

const (
	StatusSave  Status = "save"
	StatusTest  Status = "test"
	StatusError Status = "error"
)

// Response is a result of Test, Create or Edit: a *TestResponse, a
// *SaveResponse or an *ErrorResponse.
type Response interface {
	ResponseStatus() Status
}

// GenerateResponse carries one escaped generation result.
type GenerateResponse struct {
	Msg string `json:"msg"`
}

// Result wraps a test result.
type Result struct {
	Result string `json:"result"`
}

// TestResponse is a successful test run.
type TestResponse struct {
	Status Status `json:"status"`
	Msg    Result `json:"msg"`
}

// ResponseStatus implements Response.
func (r *TestResponse) ResponseStatus() Status { return r.Status }

// SaveID wraps the id of a saved gen.
type SaveID struct {
	ID int64 `json:"id"`
}

// SaveResponse is a successful create or edit.
type SaveResponse struct {
	Status Status `json:"status"`
	Msg    SaveID `json:"msg"`
}

// ResponseStatus implements Response.
func (r *SaveResponse) ResponseStatus() Status { return r.Status }

// Message is a humanized error message of one document section.
type Message struct {
	Msg string `json:"msg"`
}

// BodyMessage is the humanized body error with the 0-based indices of the
// offending blocks.
type BodyMessage struct {
	Msg    string `json:"msg"`
	Blocks []int  `json:"blocks"`
}

// ErrorDetails holds the per-section errors. Sections without errors are
// null; Result is set when a test run rendered despite head or format
// errors.
type ErrorDetails struct {
	Head   *Message     `json:"head"`
	Format *Message     `json:"format"`
	Body   *BodyMessage `json:"body"`
	Result *string      `json:"result"`
}

// ErrorResponse reports validation errors.
type ErrorResponse struct {
	Status Status       `json:"status"`
	Msg    ErrorDetails `json:"msg"`
}

// ResponseStatus implements Response.
func (r *ErrorResponse) ResponseStatus() Status { return r.Status }

// report collects section errors while an engine validates a document.
type report struct {
	catalog *i18n.Catalog
	head    *apperrors.Collector
	format  *apperrors.Collector
	body    *apperrors.Collector
	result  *string
}

func (r *report) hasBlockingError() bool {
	return r.body.HasErrors()
}

func (r *report) hasError() bool {
	return r.head.HasErrors() || r.format.HasErrors() || r.body.HasErrors()
}

func (r *report) error() *ErrorResponse {
	details := ErrorDetails{Result: r.result}
	if r.head.HasErrors() {
		details.Head = &Message{Msg: r.catalog.Humanize(r.head.Errors())}
	}
	if r.format.HasErrors() {
		details.Format = &Message{Msg: r.catalog.Humanize(r.format.Errors())}
	}
	if r.body.HasErrors() {
		indices := r.body.Blocks()
		if indices == nil {
			indices = []int{}
		}
		details.Body = &BodyMessage{Msg: r.catalog.Humanize(r.body.Errors()), Blocks: indices}
	}
	return &ErrorResponse{Status: StatusError, Msg: details}
}
