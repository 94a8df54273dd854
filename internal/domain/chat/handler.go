package chat

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebridge/hms/internal/platform/auth"
	"github.com/carebridge/hms/internal/platform/llm"
	"github.com/carebridge/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/chat", h.Stream)
	api.POST("/chat/stream", h.Stream)
	api.GET("/chat/conversations", h.ListConversations)
	api.GET("/chat/conversations/:id/messages", h.GetMessages)
	api.DELETE("/chat/conversations/:id", h.DeleteConversation)
}

type chatMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

type streamRequest struct {
	ConversationID string        `json:"conversation_id"`
	Message        string        `json:"message"`
	ImageURL       string        `json:"image_url"`
	Messages       []chatMessage `json:"messages"`
}

// content returns the user turn: either the message field or, when a client
// posts its full history, the last user entry of the messages array.
func (r *streamRequest) content() string {
	if r.Message != "" {
		return r.Message
	}
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// imageURL returns the attachment of the current turn. Only the last user
// entry counts; images on earlier history entries were already relayed.
func (r *streamRequest) imageURL() string {
	if r.ImageURL != "" {
		return r.ImageURL
	}
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].ImageURL
		}
	}
	return ""
}

func (h *Handler) Stream(c echo.Context) error {
	var req streamRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sreq := StreamRequest{
		UserID:   auth.UserIDFromContext(ctx),
		Content:  req.content(),
		ImageURL: req.imageURL(),
	}
	if pid := auth.PatientIDFromContext(ctx); pid != "" {
		patientID, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient claim")
		}
		sreq.PatientID = patientID
	}
	if req.ConversationID != "" {
		convID, err := uuid.Parse(req.ConversationID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid conversation_id")
		}
		sreq.ConversationID = &convID
	}

	if err := h.svc.StreamChat(ctx, c.Response(), sreq); err != nil {
		return gatewayHTTPError(err)
	}
	return nil
}

// gatewayHTTPError maps pre-stream failures onto HTTP statuses. Once the
// stream is open, failures travel as error frames instead.
func gatewayHTTPError(err error) error {
	switch {
	case errors.Is(err, llm.ErrMissingCredential):
		return echo.NewHTTPError(http.StatusInternalServerError, "chat service is not configured")
	case errors.Is(err, llm.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, llm.ErrQuotaExceeded):
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) ListConversations(c echo.Context) error {
	pg := pagination.FromContext(c)
	userID := auth.UserIDFromContext(c.Request().Context())

	items, total, err := h.svc.ListConversations(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetMessages(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	msgs, err := h.svc.GetMessages(c.Request().Context(), userID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (h *Handler) DeleteConversation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	if err := h.svc.DeleteConversation(c.Request().Context(), userID, id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
