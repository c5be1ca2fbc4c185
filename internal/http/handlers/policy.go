package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/xai-decision-backend/internal/http/response"
	"github.com/yungbote/xai-decision-backend/internal/services"
)

type PolicyHandler struct {
	policies services.PolicyService
	maxBytes int64
}

func NewPolicyHandler(policies services.PolicyService, maxUploadBytes int64) *PolicyHandler {
	return &PolicyHandler{policies: policies, maxBytes: maxUploadBytes}
}

// POST /policies?domain=loan&policy_text=...
// A JSON body {"domain", "policy_text"} is accepted too.
func (h *PolicyHandler) Add(c *gin.Context) {
	var body struct {
		Domain     string `json:"domain"`
		PolicyText string `json:"policy_text"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.RespondError(c, http.StatusUnprocessableEntity, "validation", err)
			return
		}
	}
	if v := c.Query("domain"); v != "" {
		body.Domain = v
	}
	if v := c.Query("policy_text"); v != "" {
		body.PolicyText = v
	}
	entry, err := h.policies.Add(c.Request.Context(), body.Domain, body.PolicyText)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, entry)
}

// GET /policies?domain=loan
func (h *PolicyHandler) List(c *gin.Context) {
	list, err := h.policies.List(c.Request.Context(), c.Query("domain"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"policies": list})
}

// DELETE /policies/:domain/:id
func (h *PolicyHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	if err := h.policies.Delete(c.Request.Context(), c.Param("domain"), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /policies/upload?domain=loan (file body)
func (h *PolicyHandler) Upload(c *gin.Context) {
	content, format, err := readUpload(c, h.maxBytes)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	created, err := h.policies.Upload(c.Request.Context(), c.Query("domain"), format, content)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"count": len(created), "file_type": format, "policies": created})
}
