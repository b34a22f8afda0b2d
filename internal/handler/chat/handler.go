package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mannmitra/backend/internal/service/conversation"
	chatService "github.com/zhouzirui/mannmitra/backend/internal/service/chat"
	"github.com/zhouzirui/mannmitra/backend/pkg/utils"
)

// Handler 聊天会话的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Route("/sessions/{sessionID}", func(sr chi.Router) {
		sr.Get("/", h.handleGetSession)
		sr.Delete("/", h.handleEndSession)
		sr.Get("/messages", h.handleListMessages)
		sr.Post("/messages", h.handleSendMessage)
		sr.Post("/messages/{messageID}/actions/{actionID}", h.handleActivate)
	})
}

// handleCreateSession 创建会话，请求体可省略
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID string `json:"userId"`
		Locale string `json:"locale"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.UserID, payload.Locale)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListMessages 返回当前会话记录与已完成的回复数
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.chatSvc.Controller(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, ctrl.Snapshot())
}

// handleSendMessage 提交用户消息；延迟回复通过 stream 或 ws 推送
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.chatSvc.SendMessage(r.Context(), chi.URLParam(r, "sessionID"), payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

// handleActivate 触发消息上的交互，例如危机卡片按钮或工具建议
func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	messageID, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	ctrl, err := h.chatSvc.Controller(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := ctrl.Activate(messageID, chi.URLParam(r, "actionID")); err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "launched"})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound), errors.Is(err, conversation.ErrMessageNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, conversation.ErrEmptyMessage), errors.Is(err, conversation.ErrNotActionable):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, conversation.ErrClosed):
		utils.RespondError(w, http.StatusGone, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
