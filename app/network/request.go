package network

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// KV is a single field of the form sent in a POST request.
type KV struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Listener is notified once a detached request is finished, errMsg is empty
// on success.
type Listener func(errMsg string)

// Params describe what and how to request.
type Params struct {
	URL string
	// PostData makes the request a POST with the pairs URL-encoded in
	// the body in the given order.
	PostData []KV

	UserName string
	Password string

	InsecureSkipVerify bool
	NoRedirect         bool

	// Listener makes the request detached: the batch doesn't wait for it
	// and doesn't collect its errors.
	Listener Listener
}

// Request is a unit of work for the manager. All hooks of a request are
// called from a single goroutine.
type Request interface {
	Params() Params
	// Before is called prior to the dispatch, false cancels the request.
	Before() bool
	// HandleHeader is called for the status line and then for each header.
	HandleHeader(line string)
	// HandleContent is called once with the whole body of a succeeded exchange.
	HandleContent(data []byte)
	// After is called once the exchange is over, false adds the request's
	// error message to the batch errors.
	After(errMsg string) bool
	ErrorMessage() string
}

//go:generate moq -out mock_request.go . Request

// Base implements the hooks of Request with no-ops and keeps the error
// message of the request.
type Base struct {
	params Params
	errMsg string
}

// NewBase makes a base request for the params.
func NewBase(p Params) Base { return Base{params: p} }

// Params returns parameters of the request.
func (b *Base) Params() Params { return b.params }

// Before allows the request.
func (b *Base) Before() bool { return true }

// HandleHeader does nothing.
func (b *Base) HandleHeader(string) {}

// HandleContent does nothing.
func (b *Base) HandleContent([]byte) {}

// After keeps the error message of the exchange.
func (b *Base) After(errMsg string) bool {
	if errMsg != "" {
		b.errMsg = errMsg
	}
	return true
}

// ErrorMessage returns the last error of the request.
func (b *Base) ErrorMessage() string { return b.errMsg }

// SetErrorMessage sets the error of the request.
func (b *Base) SetErrorMessage(msg string) { b.errMsg = msg }

// BufferRequest keeps the response in memory.
type BufferRequest struct {
	Base
	Status  string
	Headers []string
	Body    bytes.Buffer
}

// NewBufferRequest makes a request that keeps the response in memory.
func NewBufferRequest(p Params) *BufferRequest { return &BufferRequest{Base: NewBase(p)} }

// HandleHeader keeps the status line and headers.
func (r *BufferRequest) HandleHeader(line string) {
	if r.Status == "" {
		r.Status = line
		return
	}
	r.Headers = append(r.Headers, line)
}

// HandleContent keeps the body.
func (r *BufferRequest) HandleContent(data []byte) { r.Body.Write(data) }

// FileRequest saves the body of the response to a file.
type FileRequest struct {
	Base
	Path    string
	written bool
}

// NewFileRequest makes a request that saves the response body to path.
func NewFileRequest(p Params, path string) *FileRequest {
	return &FileRequest{Base: NewBase(p), Path: path}
}

// HandleContent writes the body to the file, creating the directories.
func (r *FileRequest) HandleContent(data []byte) {
	r.written = true
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o750); err != nil {
		r.SetErrorMessage(fmt.Sprintf("make directory for %s: %v", r.Path, err))
		return
	}
	if err := os.WriteFile(r.Path, data, 0o600); err != nil {
		r.SetErrorMessage(fmt.Sprintf("write %s: %v", r.Path, err))
	}
}

// After creates an empty file when the response had no body and reports
// a failure to save it.
func (r *FileRequest) After(errMsg string) bool {
	if errMsg != "" {
		return r.Base.After(errMsg)
	}
	if !r.written {
		r.HandleContent(nil)
	}
	return r.ErrorMessage() == ""
}
