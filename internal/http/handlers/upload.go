package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/xai-decision-backend/internal/modules/decisions/ingest"
	"github.com/yungbote/xai-decision-backend/internal/platform/apierr"
)

const DefaultUploadMaxBytes int64 = 10 << 20

// readUpload accepts either a multipart "file" field or a raw request body.
// The format comes from ?file_type= when set, else the file extension.
func readUpload(c *gin.Context, maxBytes int64) ([]byte, ingest.Format, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultUploadMaxBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	hint := c.Query("file_type")

	var (
		name string
		src  io.Reader = c.Request.Body
	)
	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > maxBytes {
			return nil, "", apierr.TooLarge(maxBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", apierr.BadRequest("invalid_upload", err)
		}
		defer f.Close()
		name, src = fh.Filename, f
	} else if tooLarge(err) {
		return nil, "", apierr.TooLarge(maxBytes)
	} else if hint == "" {
		hint = formatFromContentType(c.ContentType())
	}

	format, err := ingest.FormatOf(name, hint)
	if err != nil {
		kind := hint
		if kind == "" {
			kind = name
		}
		return nil, "", apierr.Unsupported(kind)
	}
	content, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		if tooLarge(err) {
			return nil, "", apierr.TooLarge(maxBytes)
		}
		return nil, "", apierr.BadRequest("invalid_upload", err)
	}
	if int64(len(content)) > maxBytes {
		return nil, "", apierr.TooLarge(maxBytes)
	}
	return content, format, nil
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func formatFromContentType(ct string) string {
	switch ct {
	case "text/csv":
		return string(ingest.FormatCSV)
	case "application/json":
		return string(ingest.FormatJSON)
	case "text/plain":
		return string(ingest.FormatTXT)
	}
	return ""
}
