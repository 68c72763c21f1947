package service

import (
	"errors"

	"formsync/internal/model"
)

var (
	// ErrRejected ends a submission without a response body: unknown app key,
	// disallowed origin or malformed request.
	ErrRejected = errors.New("submission rejected")

	// ErrSubmitDisabled means submissions are switched off for the app.
	ErrSubmitDisabled = errors.New("submissions disabled")

	ErrTemplateNotFound = errors.New("template not found")

	ErrNoSpreadsheet = errors.New("app has no spreadsheet configured")
)

// PipelineError is a submission failure answered with an error body. It
// carries what was resolved before the failure so the response can use it.
type PipelineError struct {
	Messages    model.Messages
	AllowOrigin string
	Err         error
}

func (e *PipelineError) Error() string {
	if e == nil || e.Err == nil {
		return "submission failed"
	}
	return "submission failed: " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
