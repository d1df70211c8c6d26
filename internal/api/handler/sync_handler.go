package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dgenny/conecta/internal/pkg/response"
	syncPkg "github.com/dgenny/conecta/internal/sync"
)

type SyncHandler struct {
	sync *syncPkg.Synchronizer
}

func NewSyncHandler(sync *syncPkg.Synchronizer) *SyncHandler {
	return &SyncHandler{sync: sync}
}

func (h *SyncHandler) Register(r *gin.RouterGroup) {
	r.GET("/sync/status", h.status)
	r.POST("/sync/force", h.force)
}

func (h *SyncHandler) status(c *gin.Context) {
	status, err := h.sync.QueueStatus(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, status)
}

func (h *SyncHandler) force(c *gin.Context) {
	result, err := h.sync.ForceSyncAll(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, syncPkg.ErrOffline):
			response.Error(c, http.StatusServiceUnavailable, err)
		case errors.Is(err, syncPkg.ErrSyncInProgress):
			response.Error(c, http.StatusConflict, err)
		default:
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	status, err := h.sync.QueueStatus(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"processed": result.Processed,
		"errors":    result.Errors,
		"queue":     status,
	})
}
