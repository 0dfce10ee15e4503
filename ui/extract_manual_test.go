package ui

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport/adapters/llm"
	"labreport/app"
)

type fixedText string

func (f fixedText) ExtractText(ctx context.Context, data []byte) (string, error) {
	return string(f), nil
}

func TestServer_ExtractManual(t *testing.T) {
	s, c := newTestServer(t)
	client := &llm.MockLLMClient{Response: "```json\n" + `{
		"experiment_purpose": "Measure the spring constant",
		"theory": "F = kx",
		"error_guides": [{"cause": "Parallax", "description": "Reading the ruler at an angle", "mitigation": "Read at eye level"}],
		"equipment_list": ["spring", "ruler"]
	}` + "\n```"}
	c.ReportService.SetManualSources(app.ManualSources{
		Text:     fixedText("Hooke's law. Hang masses from the spring."),
		Manual:   llm.NewManualExtractorWithClient(llm.Config{Model: "test-model"}, client),
		MaxBytes: c.Config.Upload.MaxPDFSizeBytes(),
	})

	rec := serve(s, multipartRequest(t, "/api/generate/extract-manual", "hooke.pdf", []byte("%PDF-1.4\n"), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Measure the spring constant", data["experiment_purpose"])
	assert.Equal(t, []interface{}{"spring", "ruler"}, data["equipment_list"])
	guide := data["error_guides"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Read at eye level", guide["mitigation"])

	require.Len(t, client.Prompts, 1)
	assert.Contains(t, client.Prompts[0], "Hang masses from the spring.")
	assert.Contains(t, client.Prompts[0], `"hooke.pdf"`)
}

func TestServer_ExtractManualErrors(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		wantStatus int
		wantCode   string
	}{
		{"no llm configured", "hooke.pdf", http.StatusServiceUnavailable, "EXTERNAL_SERVICE_ERROR"},
		{"not a pdf", "hooke.txt", http.StatusBadRequest, "INVALID_FILE_FORMAT"},
		{"no file", "", http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			rec := serve(s, multipartRequest(t, "/api/generate/extract-manual", tt.filename, []byte("%PDF-1.4\n"), nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}
}
