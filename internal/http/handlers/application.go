package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/http/response"
	"github.com/yungbote/xai-decision-backend/internal/platform/ctxutil"
	"github.com/yungbote/xai-decision-backend/internal/services"
)

type ApplicationHandler struct {
	apps services.ApplicationService
}

func NewApplicationHandler(apps services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{apps: apps}
}

// POST /applications?decision_type=loan
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", err)
		return
	}
	app, err := h.apps.Submit(c.Request.Context(), domainParam(c), body)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	respondView(c, http.StatusCreated, app)
}

// GET /applications?status=pending_human&domain=loan&limit=50
func (h *ApplicationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	apps, err := h.apps.List(c.Request.Context(), services.ListRequest{
		Status: c.Query("status"),
		Domain: domainParam(c),
		Limit:  limit,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	out := make([]decisions.ApplicationView, 0, len(apps))
	for _, app := range apps {
		v, err := app.View()
		if err != nil {
			response.RespondDomainError(c, err)
			return
		}
		out = append(out, v)
	}
	response.RespondOK(c, out)
}

// GET /applications/:id
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	app, err := h.apps.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	respondView(c, http.StatusOK, app)
}

type reviewBody struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
	Reviewer string `json:"reviewer"`
}

// POST /applications/:id/review?decision=approved&comment=...
// The same fields are accepted as a JSON body.
func (h *ApplicationHandler) Review(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body reviewBody
	// chunked bodies report ContentLength -1
	if c.Request.Body != nil && c.Request.Body != http.NoBody && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			response.RespondError(c, http.StatusUnprocessableEntity, "validation", err)
			return
		}
	}
	if v := c.Query("decision"); v != "" {
		body.Decision = v
	}
	if v, set := c.GetQuery("comment"); set {
		body.Comment = v
	}
	app, err := h.apps.Review(c.Request.Context(), services.ReviewRequest{
		ID:       id,
		Decision: body.Decision,
		Comment:  body.Comment,
		Reviewer: reviewerFor(c, body.Reviewer),
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	respondView(c, http.StatusOK, app)
}

// PUT /applications/:id/explanation {"explanation": "..."}
func (h *ApplicationHandler) EditExplanation(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body struct {
		Explanation string `json:"explanation"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", err)
		return
	}
	app, err := h.apps.EditExplanation(c.Request.Context(), id, body.Explanation)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	respondView(c, http.StatusOK, app)
}

// GET /applications/:id/calls
func (h *ApplicationHandler) CallLogs(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	logs, err := h.apps.CallLogs(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"calls": logs})
}

// POST /decisions/evaluate?decision_type=credit
func (h *ApplicationHandler) Evaluate(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", err)
		return
	}
	ev, err := h.apps.Evaluate(c.Request.Context(), domainParam(c), body)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": ev.Result, "failure": ev.Failure})
}

// POST /inquiry {"domain": "loan", "data": {...}}
func (h *ApplicationHandler) Inquiry(c *gin.Context) {
	var body struct {
		Domain string         `json:"domain"`
		Data   map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation", err)
		return
	}
	app, err := h.apps.Inquiry(c.Request.Context(), body.Domain, body.Data)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	v, err := app.View()
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"message":    "Inquiry processed",
		"inquiry_id": v.ID,
		"result":     v,
	})
}

func respondView(c *gin.Context, status int, app *decisions.Application) {
	v, err := app.View()
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.JSON(status, v)
}

func idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "not_found", err)
		return uuid.Nil, false
	}
	return id, true
}

// reviewerFor prefers the authenticated subject over a self-declared name.
func reviewerFor(c *gin.Context, declared string) string {
	if sub := ctxutil.Reviewer(c.Request.Context()); sub != "" {
		return sub
	}
	return strings.TrimSpace(declared)
}

// domainParam reads decision_type, falling back to domain.
func domainParam(c *gin.Context) string {
	if v := strings.TrimSpace(c.Query("decision_type")); v != "" {
		return v
	}
	return strings.TrimSpace(c.Query("domain"))
}
