package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/edimarket/marketplace-backend/internal/ai"
	"github.com/edimarket/marketplace-backend/internal/chatctx"
	"github.com/edimarket/marketplace-backend/internal/model"
	"github.com/edimarket/marketplace-backend/internal/repository"
	"github.com/edimarket/marketplace-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type ChatHandler struct {
	svc service.ChatService
}

func NewChatHandler(svc service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type ChatResponse struct {
	ConversationID  string                 `json:"conversationId"`
	Response        string                 `json:"response"`
	Recommendations []model.Recommendation `json:"recommendations"`
}

type ConversationSummaryResponse struct {
	ID                 string          `json:"id"`
	CreatedAt          string          `json:"createdAt"`
	UpdatedAt          string          `json:"updatedAt"`
	LastMessagePreview *MessagePreview `json:"lastMessage,omitempty"`
	MessageCount       int64           `json:"messageCount"`
}

type MessagePreview struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

type ConversationListResponse struct {
	Conversations []ConversationSummaryResponse `json:"conversations"`
}

type MessageResponse struct {
	ID              string                 `json:"id"`
	Role            string                 `json:"role"`
	Content         string                 `json:"content"`
	Recommendations []model.Recommendation `json:"recommendations,omitempty"`
	CreatedAt       string                 `json:"createdAt"`
}

type ConversationDetailResponse struct {
	Conversation ConversationSummaryResponse `json:"conversation"`
	Messages     []MessageResponse           `json:"messages"`
}

func (h *ChatHandler) Chat(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}

	ctx := chatctx.WithRID(c.Request().Context(), uuid.NewString())
	result, err := h.svc.Chat(ctx, uid, req.ConversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "message is required"))
		case errors.Is(err, service.ErrConversationNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "conversation not found"))
		case isUpstream(err):
			// The user's message was already persisted; only the reply failed.
			return c.JSON(http.StatusBadGateway, NewErrorResponse("upstream_error", "your message was saved but the assistant could not respond, please retry"))
		default:
			return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to process chat turn"))
		}
	}
	return c.JSON(http.StatusOK, ChatResponse{
		ConversationID:  result.ConversationID,
		Response:        result.Text,
		Recommendations: result.Recommendations,
	})
}

func (h *ChatHandler) ListConversations(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	summaries, err := h.svc.ListConversations(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch conversations"))
	}
	resp := ConversationListResponse{Conversations: make([]ConversationSummaryResponse, 0, len(summaries))}
	for _, s := range summaries {
		resp.Conversations = append(resp.Conversations, toConversationSummary(s))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) GetConversation(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	cv, msgs, err := h.svc.GetConversation(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "conversation not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch conversation"))
	}
	resp := ConversationDetailResponse{
		Conversation: ConversationSummaryResponse{
			ID:        cv.ID,
			CreatedAt: cv.CreatedAt.Format(time.RFC3339),
			UpdatedAt: cv.UpdatedAt.Format(time.RFC3339),
		},
		Messages: make([]MessageResponse, 0, len(msgs)),
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, MessageResponse{
			ID:              m.ID,
			Role:            m.Role,
			Content:         m.Content,
			Recommendations: m.DecodeRecommendations(),
			CreatedAt:       m.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) DeleteConversation(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	if err := h.svc.DeleteConversation(c.Request().Context(), uid, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "conversation not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to delete conversation"))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func isUpstream(err error) bool {
	return errors.Is(err, ai.ErrEmbeddingUnavailable) || errors.Is(err, ai.ErrModelUnavailable)
}

func toConversationSummary(s repository.ConversationSummary) ConversationSummaryResponse {
	resp := ConversationSummaryResponse{
		ID:           s.Conversation.ID,
		CreatedAt:    s.Conversation.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    s.Conversation.UpdatedAt.Format(time.RFC3339),
		MessageCount: s.MessageCount,
	}
	if s.LastMessage != nil {
		resp.LastMessagePreview = &MessagePreview{
			Role:      s.LastMessage.Role,
			Content:   s.LastMessage.Content,
			CreatedAt: s.LastMessage.CreatedAt.Format(time.RFC3339),
		}
	}
	return resp
}
