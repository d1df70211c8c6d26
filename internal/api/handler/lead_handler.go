package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dgenny/conecta/internal/pkg/response"
	leadSvc "github.com/dgenny/conecta/internal/service/lead"
	"github.com/dgenny/conecta/internal/storage"
)

type LeadHandler struct {
	service *leadSvc.Service
}

func NewLeadHandler(service *leadSvc.Service) *LeadHandler {
	return &LeadHandler{service: service}
}

// RegisterPublic expõe só a captura: é a rota que o formulário do
// estande chama, sem login.
func (h *LeadHandler) RegisterPublic(r *gin.RouterGroup) {
	r.POST("/leads", h.create)
}

func (h *LeadHandler) Register(r *gin.RouterGroup) {
	r.GET("/leads", h.list)
	r.GET("/leads/stats", h.stats)
	r.GET("/leads/export", h.export)
	r.DELETE("/leads/sent", h.clearSent)
	r.DELETE("/leads/:id", h.delete)
}

func (h *LeadHandler) create(c *gin.Context) {
	var req leadSvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	lead, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, leadSvc.ErrNameRequired) || errors.Is(err, leadSvc.ErrPhoneRequired) {
			response.Error(c, http.StatusBadRequest, err)
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	response.Success(c, http.StatusCreated, lead)
}

func (h *LeadHandler) list(c *gin.Context) {
	leads, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, leads)
}

func (h *LeadHandler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

func (h *LeadHandler) export(c *gin.Context) {
	raw, err := h.service.ExportCSV(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}

	fileName := "leads-" + time.Now().Format("2006-01-02") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", raw)
}

func (h *LeadHandler) clearSent(c *gin.Context) {
	deleted, err := h.service.ClearSent(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": deleted})
}

func (h *LeadHandler) delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "lead não encontrado")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
