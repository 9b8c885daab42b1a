package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"pipehub/internal/domain/entity"
	"pipehub/internal/handler/http/respond"
)

// ChannelDTO is the JSON shape of a tenant's channel credentials.
type ChannelDTO struct {
	CorpID           string `json:"corp_id"`
	AgentID          int64  `json:"agent_id"`
	Secret           string `json:"secret"`
	TelegramBotToken string `json:"telegram_bot_token"`
	TelegramChatID   string `json:"telegram_chat_id"`
}

func toChannelDTO(c *entity.ChannelConfig) ChannelDTO {
	return ChannelDTO{
		CorpID:           c.CorpID,
		AgentID:          c.AgentID,
		Secret:           c.Secret,
		TelegramBotToken: c.BotToken,
		TelegramChatID:   c.ChatID,
	}
}

func (d ChannelDTO) entity() entity.ChannelConfig {
	return entity.ChannelConfig{
		CorpID:   d.CorpID,
		AgentID:  d.AgentID,
		Secret:   d.Secret,
		BotToken: d.TelegramBotToken,
		ChatID:   d.TelegramChatID,
	}
}

type GetChannelHandler struct{ Svc Service }

func (h GetChannelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Svc.GetChannel(r.Context(), tenantID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toChannelDTO(cfg))
}

type UpdateChannelHandler struct{ Svc Service }

func (h UpdateChannelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ChannelDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	if err := h.Svc.UpdateChannel(r.Context(), tenantID(r), req.entity()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
