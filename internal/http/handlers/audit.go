package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/xai-decision-backend/internal/http/response"
	"github.com/yungbote/xai-decision-backend/internal/services"
)

type AuditHandler struct {
	audit services.AuditService
}

func NewAuditHandler(audit services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /audit-log[?download=1]
func (h *AuditHandler) Export(c *gin.Context) {
	entries, err := h.audit.Export(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if c.Query("download") != "" {
		name := "audit_log_" + time.Now().UTC().Format("20060102_150405") + ".json"
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	response.RespondOK(c, entries)
}

// POST /audit-log/import (the JSON array produced by Export)
func (h *AuditHandler) Import(c *gin.Context) {
	var entries []services.AuditEntry
	if err := c.ShouldBindJSON(&entries); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", err)
		return
	}
	res, err := h.audit.Import(c.Request.Context(), entries)
	if err != nil {
		if res != nil && len(res.Errors) > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  response.APIError{Message: "audit log rejected", Code: "validation"},
				"errors": res.Errors,
			})
			return
		}
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, res)
}
