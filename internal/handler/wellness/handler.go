package wellness

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mannmitra/backend/internal/model/wellness"
	"github.com/zhouzirui/mannmitra/backend/internal/storage"
	"github.com/zhouzirui/mannmitra/backend/pkg/utils"
)

// Store 是持久化服务依赖的存储能力，由 storage.Store 实现。
type Store interface {
	Ping(ctx context.Context) error
	SaveMood(ctx context.Context, entry wellness.MoodEntry) error
	MoodsByUser(ctx context.Context, userID string) ([]wellness.MoodEntry, error)
	SaveJournal(ctx context.Context, date, content string) error
	Journal(ctx context.Context, date string) (string, error)
	SaveAffirmation(ctx context.Context, item wellness.Affirmation) error
	Affirmations(ctx context.Context, userID, date string) ([]wellness.Affirmation, error)
	AffirmationStreak(ctx context.Context, userID string) (int, error)
	AppendChat(ctx context.Context, exchange wellness.ChatExchange) (wellness.ChatExchange, error)
	ChatHistory(ctx context.Context, userID string) ([]wellness.ChatExchange, error)
	LogCrisisRequest(ctx context.Context, userID string) error
	LogBreathing(ctx context.Context, entry wellness.BreathingLog) error
	Recommendations(ctx context.Context, mood string) ([]wellness.Recommendation, error)
	LogActivity(ctx context.Context, entry wellness.WellnessActivity) error
	ActivitiesByUser(ctx context.Context, userID string) ([]wellness.WellnessActivity, error)
	CreatePost(ctx context.Context, post wellness.CommunityPost) (wellness.CommunityPost, error)
	Posts(ctx context.Context) ([]wellness.CommunityPost, error)
	LikePost(ctx context.Context, id uint) error
	SaveGroupJournal(ctx context.Context, entry wellness.GroupJournalEntry) error
	GroupJournal(ctx context.Context, groupID string) ([]wellness.GroupJournalEntry, error)
}

// Handler 心情、日记、肯定语等记录的HTTP处理器
type Handler struct {
	store Store
}

// New 创建持久化处理器
func New(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册持久化相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/mood", h.handleSaveMood)
	r.Get("/mood/{userID}", h.handleListMoods)

	r.Post("/journals", h.handleSaveJournal)
	r.Get("/journals/{date}", h.handleGetJournal)

	r.Post("/affirmations", h.handleSaveAffirmation)
	r.Get("/affirmations/streak/{userID}", h.handleAffirmationStreak)
	r.Get("/affirmations/{date}", h.handleListAffirmations)

	r.Post("/chat", h.handleAppendChat)
	r.Get("/chat/{userID}", h.handleChatHistory)

	r.Post("/crisis", h.handleCrisisRequest)
	r.Post("/breathing", h.handleBreathingLog)
	r.Get("/recommendations/{mood}", h.handleRecommendations)

	r.Post("/wellness", h.handleLogActivity)
	r.Get("/wellness/{userID}", h.handleListActivities)

	r.Post("/community", h.handleCreatePost)
	r.Get("/community", h.handleListPosts)
	r.Put("/community/{id}/like", h.handleLikePost)

	r.Post("/group-journals", h.handleSaveGroupJournal)
	r.Get("/group-journals/{groupID}", h.handleGroupJournal)
}

var success = map[string]bool{"success": true}

// handleSaveMood 保存心情记录
func (h *Handler) handleSaveMood(w http.ResponseWriter, r *http.Request) {
	var payload wellness.MoodEntry
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SaveMood(r.Context(), payload); err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, success)
}

// handleListMoods 按日期倒序返回心情记录
func (h *Handler) handleListMoods(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.MoodsByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// handleSaveJournal 按日期写入日记，已存在则覆盖
func (h *Handler) handleSaveJournal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Date    string  `json:"date"`
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Date == "" || payload.Content == nil {
		utils.RespondError(w, http.StatusBadRequest, "Date and content are required")
		return
	}

	if err := h.store.SaveJournal(r.Context(), payload.Date, *payload.Content); err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, success)
}

// handleGetJournal 读取日记，不存在时返回空内容
func (h *Handler) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	content, err := h.store.Journal(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"content": content})
}

// handleSaveAffirmation 追加一条肯定语
func (h *Handler) handleSaveAffirmation(w http.ResponseWriter, r *http.Request) {
	var payload wellness.Affirmation
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SaveAffirmation(r.Context(), payload); err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, success)
}

// handleListAffirmations 返回某天的肯定语
func (h *Handler) handleListAffirmations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	items, err := h.store.Affirmations(r.Context(), userID, chi.URLParam(r, "date"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"affirmations": items})
}

// handleAffirmationStreak 返回有记录的不同日期数
func (h *Handler) handleAffirmationStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := h.store.AffirmationStreak(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]int{"streak": streak})
}

// handleAppendChat 追加聊天记录，时间戳由服务端生成
func (h *Handler) handleAppendChat(w http.ResponseWriter, r *http.Request) {
	var payload wellness.ChatExchange
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.store.AppendChat(r.Context(), payload); err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, success)
}

// handleChatHistory 按时间倒序返回聊天记录
func (h *Handler) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.ChatHistory(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"history": history})
}

// handleCrisisRequest 记录危机求助请求
func (h *Handler) handleCrisisRequest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID string `json:"userId"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if err := h.store.LogCrisisRequest(r.Context(), payload.UserID); err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, success)
}

// handleBreathingLog 记录一次呼吸练习
func (h *Handler) handleBreathingLog(w http.ResponseWriter, r *http.Request) {
	var payload wellness.BreathingLog
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.LogBreathing(r.Context(), payload); err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, success)
}

// handleRecommendations 按心情返回推荐内容
func (h *Handler) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.Recommendations(r.Context(), chi.URLParam(r, "mood"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"recommendations": items})
}

// handleLogActivity 记录一次健康活动
func (h *Handler) handleLogActivity(w http.ResponseWriter, r *http.Request) {
	var payload wellness.WellnessActivity
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.LogActivity(r.Context(), payload); err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, success)
}

// handleListActivities 返回用户的活动记录
func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ActivitiesByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"progress": items})
}

// handleCreatePost 发布社区帖子
func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var payload wellness.CommunityPost
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.store.CreatePost(r.Context(), payload); err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, success)
}

func (h *Handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.Posts(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// handleLikePost 给帖子点赞
func (h *Handler) handleLikePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := h.store.LikePost(r.Context(), uint(id)); err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, success)
}

// handleSaveGroupJournal 追加一页小组日记
func (h *Handler) handleSaveGroupJournal(w http.ResponseWriter, r *http.Request) {
	var payload wellness.GroupJournalEntry
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SaveGroupJournal(r.Context(), payload); err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, success)
}

func (h *Handler) handleGroupJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.GroupJournal(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrDateRequired),
		errors.Is(err, storage.ErrMoodRequired),
		errors.Is(err, storage.ErrAffirmationRequired),
		errors.Is(err, storage.ErrUserRequired),
		errors.Is(err, storage.ErrActivityRequired),
		errors.Is(err, storage.ErrContentRequired),
		errors.Is(err, storage.ErrGroupRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrPostNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("[wellness] store error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
