package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/xai-decision-backend/internal/http/response"
	"github.com/yungbote/xai-decision-backend/internal/services"
)

type BulkHandler struct {
	bulk     services.BulkIngestService
	maxBytes int64
}

func NewBulkHandler(bulk services.BulkIngestService, maxUploadBytes int64) *BulkHandler {
	return &BulkHandler{bulk: bulk, maxBytes: maxUploadBytes}
}

// POST /bulk/upload?decision_type=loan (file body)
func (h *BulkHandler) Upload(c *gin.Context) {
	content, format, err := readUpload(c, h.maxBytes)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	res, err := h.bulk.Upload(c.Request.Context(), domainParam(c), format, content)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, res)
}
