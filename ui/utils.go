package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"labreport/app"
	"labreport/domain/core"
	apperrors "labreport/internal/errors"
)

const multipartOverhead = 1 << 20

// errorDetail is the error payload shared by every endpoint
type errorDetail struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Available []string `json:"available,omitempty"`
}

// respondError maps an error to its status and the standard error body
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	detail := errorDetail{Code: apperrors.GetCode(err), Message: err.Error()}

	var ae *core.AnalysisError
	if errors.As(err, &ae) {
		detail.Available = ae.Available
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": detail})
}

// readUpload reads the "file" multipart field within the data upload limit
func (s *Server) readUpload(c *gin.Context) (app.Upload, error) {
	return readFormFile(c, s.container.Config.Upload.MaxFileSizeBytes())
}

// readFormFile reads the "file" multipart field. The request body may carry
// limit bytes of file plus multipart overhead.
func readFormFile(c *gin.Context, limit int64) (app.Upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return app.Upload{}, apperrors.FileTooLarge(tooLarge.Limit+1, limit)
		}
		return app.Upload{}, apperrors.InvalidInput("a file must be uploaded in the \"file\" field")
	}

	f, err := header.Open()
	if err != nil {
		return app.Upload{}, apperrors.Wrap(err, "failed to open uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return app.Upload{}, apperrors.Wrap(err, "failed to read uploaded file")
	}
	return app.Upload{Filename: header.Filename, Data: data}, nil
}

// optionalFloat parses a form value; blank means absent
func optionalFloat(c *gin.Context, field string) (*float64, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s must be a number, got %q", field, raw))
	}
	return &v, nil
}

// requiredForm returns a trimmed, non-empty form value
func requiredForm(c *gin.Context, field string) (string, error) {
	v := strings.TrimSpace(c.PostForm(field))
	if v == "" {
		return "", apperrors.InvalidInput(fmt.Sprintf("%s is required", field))
	}
	return v, nil
}

// decodeFormJSON decodes an optional JSON form field into dst
func decodeFormJSON(c *gin.Context, field string, dst interface{}) (bool, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, apperrors.WithCode(apperrors.CodeInvalidInput, fmt.Errorf("%s is not valid JSON: %w", field, err))
	}
	return true, nil
}
