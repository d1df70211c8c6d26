package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dgenny/conecta/internal/model"
	"github.com/dgenny/conecta/internal/pkg/response"
	campaignSvc "github.com/dgenny/conecta/internal/service/campaign"
	"github.com/dgenny/conecta/internal/storage"
)

type CampaignHandler struct {
	service *campaignSvc.Service
}

func NewCampaignHandler(service *campaignSvc.Service) *CampaignHandler {
	return &CampaignHandler{service: service}
}

func (h *CampaignHandler) Register(r *gin.RouterGroup) {
	r.GET("/campaigns", h.list)
	r.POST("/campaigns/refresh", h.refresh)
	r.GET("/campaigns/selected", h.selected)
	r.PUT("/campaigns/selected", h.selectCampaign)
	r.GET("/profile", h.profile)
	r.PUT("/profile", h.saveProfile)
}

func (h *CampaignHandler) list(c *gin.Context) {
	campaigns, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, campaigns)
}

// refresh renova o cache a partir do remoto. Com o remoto fora do ar a
// resposta é 502, e o cache local segue valendo via GET /campaigns.
func (h *CampaignHandler) refresh(c *gin.Context) {
	campaigns, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusBadGateway, err)
		return
	}
	response.Success(c, http.StatusOK, campaigns)
}

func (h *CampaignHandler) selected(c *gin.Context) {
	campaign, err := h.service.Selected(c.Request.Context())
	if err != nil {
		if errors.Is(err, campaignSvc.ErrNoneSelected) {
			response.ErrorWithMessage(c, http.StatusNotFound, "nenhuma campanha selecionada")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, campaign)
}

type selectRequest struct {
	CampaignID string `json:"campaignId" binding:"required"`
}

func (h *CampaignHandler) selectCampaign(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	if err := h.service.Select(c.Request.Context(), req.CampaignID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "campanha não encontrada no cache local")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"selected": req.CampaignID})
}

func (h *CampaignHandler) profile(c *gin.Context) {
	profile, err := h.service.Profile(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

func (h *CampaignHandler) saveProfile(c *gin.Context) {
	var profile model.OperatorProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	if err := h.service.SaveProfile(c.Request.Context(), profile); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}
