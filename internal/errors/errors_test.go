package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"labreport/domain/core"
)

func TestWrapKeepsCode(t *testing.T) {
	base := InvalidFileFormat("unsupported extension .txt")
	wrapped := Wrap(fmt.Errorf("upload: %w", base), "failed to read upload")

	assert.Equal(t, CodeInvalidFileFormat, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	err := Wrapf(stderrors.New("boom"), "step %d", 3)
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Equal(t, "step 3: boom", err.Error())
}

func TestGetCodeForAnalysisErrors(t *testing.T) {
	err := core.NewColumnNotFoundError("y", []string{"a", "b"})
	assert.Equal(t, "COLUMN_NOT_FOUND", GetCode(err))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"analysis failure", core.NewInsufficientDataError(5, 3), http.StatusBadRequest},
		{"invalid input", InvalidInput("missing file"), http.StatusBadRequest},
		{"too large", FileTooLarge(20<<20, 10<<20), http.StatusRequestEntityTooLarge},
		{"collaborator down", ExternalServiceError("llm", stderrors.New("timeout")), http.StatusServiceUnavailable},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError},
		{"tagged code", WithCode(CodeInvalidInput, stderrors.New("bad")), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
