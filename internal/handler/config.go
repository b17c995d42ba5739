package handler

import (
	"net/http"

	"github.com/abp0107/whatsapp-clone/internal/config"
	"github.com/abp0107/whatsapp-clone/internal/model"
)

// ConfigHandler отдаёт публичные параметры конфигурации клиенту (без авторизации).
type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

type clientConfig struct {
	MaxPhotoKB     int    `json:"max_photo_kb"`
	SendRateLimit  int    `json:"send_rate_limit_per_minute"`
	DefaultStatus  string `json:"default_status"`
	PushEnabled    bool   `json:"push_enabled"`
	VAPIDPublicKey string `json:"vapid_public_key,omitempty"`
}

// Get — лимиты, которые клиент проверяет до отправки, и VAPID-ключ, если пуши включены.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := clientConfig{
		MaxPhotoKB:    h.cfg.MaxPhotoBytes >> 10,
		SendRateLimit: h.cfg.SendRateLimit,
		DefaultStatus: model.DefaultStatus,
	}
	if h.cfg.PushServiceURL != "" && h.cfg.PushVAPIDPublicKey != "" {
		resp.PushEnabled = true
		resp.VAPIDPublicKey = h.cfg.PushVAPIDPublicKey
	}
	writeJSON(w, http.StatusOK, resp)
}
