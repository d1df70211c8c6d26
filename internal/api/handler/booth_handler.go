package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/dgenny/conecta/internal/config"
	"github.com/dgenny/conecta/internal/pkg/response"
)

// BoothHandler serve o QR code que os visitantes escaneiam para abrir o
// formulário de captura no próprio celular.
type BoothHandler struct {
	cfg config.BoothConfig
	app config.AppConfig
}

func NewBoothHandler(cfg config.BoothConfig, app config.AppConfig) *BoothHandler {
	return &BoothHandler{cfg: cfg, app: app}
}

func (h *BoothHandler) Register(r *gin.RouterGroup) {
	r.GET("/booth/qr", h.qr)
}

func (h *BoothHandler) qr(c *gin.Context) {
	target := h.cfg.FormURL
	if target == "" {
		target = h.app.BaseURL + "/api/leads"
	}

	size := 256
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 64 || parsed > 1024 {
			response.ErrorWithMessage(c, http.StatusBadRequest, "size deve estar entre 64 e 1024")
			return
		}
		size = parsed
	}

	png, err := qrcode.Encode(target, qrcode.Medium, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
