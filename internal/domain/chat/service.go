package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/carebridge/hms/internal/domain/patient"
	"github.com/carebridge/hms/internal/domain/queue"
)

// Gateway is the streaming surface of the chat gateway client.
type Gateway interface {
	Stream(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (*openai.ChatCompletionStream, error)
}

type Service struct {
	conversations ConversationRepository
	messages      MessageRepository
	gateway       Gateway
	tools         *ToolDispatcher
	patients      patient.Repository
	queue         queue.Repository
	logger        zerolog.Logger
}

func NewService(conversations ConversationRepository, messages MessageRepository, gateway Gateway, tools *ToolDispatcher, patients patient.Repository, tokens queue.Repository, logger zerolog.Logger) *Service {
	return &Service{
		conversations: conversations,
		messages:      messages,
		gateway:       gateway,
		tools:         tools,
		patients:      patients,
		queue:         tokens,
		logger:        logger,
	}
}

// StreamRequest carries one user turn. ImageURL, when set, is an encoded
// data URL attached to the turn.
type StreamRequest struct {
	UserID         string
	PatientID      uuid.UUID
	ConversationID *uuid.UUID
	Content        string
	ImageURL       string
}

// StreamChat runs one relay turn and streams the assistant's reply to w as
// server-sent events. The first gateway call carries the tool schemas; when
// the model answers with tool calls they are executed in the order emitted
// and a second streamed call produces the reply. An error before the first
// gateway byte is returned to the caller; a failure mid-stream becomes a
// terminal error frame.
func (s *Service) StreamChat(ctx context.Context, w http.ResponseWriter, req StreamRequest) error {
	if strings.TrimSpace(req.Content) == "" {
		return fmt.Errorf("message content is required")
	}

	conv, err := s.loadConversation(ctx, req)
	if err != nil {
		return err
	}

	msgs, err := s.buildMessages(ctx, conv, req)
	if err != nil {
		return err
	}

	// The first call is opened before any SSE bytes go out so connection
	// and credential failures can still map onto an HTTP status.
	stream, err := s.gateway.Stream(ctx, msgs, s.tools.Tools())
	if err != nil {
		return err
	}
	defer stream.Close()

	// Nothing is persisted until the gateway accepts the call; a pre-stream
	// failure leaves no history behind, so retrying the turn stores it once.
	if conv == nil {
		conv, err = s.createConversation(ctx, req)
		if err != nil {
			return err
		}
	}
	userMsg := &Message{ConversationID: conv.ID, Role: openai.ChatMessageRoleUser, Content: req.Content}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return fmt.Errorf("persisting message: %w", err)
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		return err
	}
	_ = sse.WriteEvent(map[string]string{"conversation_id": conv.ID.String()})

	assistantText, toolCalls, err := s.relay(sse, stream)
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("gateway stream failed")
		sse.WriteError(err.Error())
		return nil
	}

	if len(toolCalls) > 0 {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   assistantText,
			ToolCalls: toolCalls,
		})
		for _, call := range toolCalls {
			result := s.tools.Execute(ctx, req.PatientID, call.Function.Name, call.Function.Arguments)
			s.logger.Debug().
				Str("tool", call.Function.Name).
				Str("conversation_id", conv.ID.String()).
				Msg("tool executed")
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}

		// No tools on the follow-up call; the turn always terminates here.
		followUp, err := s.gateway.Stream(ctx, msgs, nil)
		if err != nil {
			sse.WriteError(err.Error())
			return nil
		}
		defer followUp.Close()

		text, _, err := s.relay(sse, followUp)
		if err != nil {
			sse.WriteError(err.Error())
			return nil
		}
		assistantText += text
	}

	if assistantText != "" {
		reply := &Message{ConversationID: conv.ID, Role: openai.ChatMessageRoleAssistant, Content: assistantText}
		if err := s.messages.Create(ctx, reply); err != nil {
			s.logger.Error().Err(err).Msg("persisting assistant reply failed")
		}
	}
	_ = s.conversations.Touch(ctx, conv.ID)

	sse.WriteDone()
	return nil
}

// loadConversation fetches the requested conversation and enforces ownership.
// A request without an id returns nil; the conversation is created lazily
// once the gateway accepts the first call.
func (s *Service) loadConversation(ctx context.Context, req StreamRequest) (*Conversation, error) {
	if req.ConversationID == nil {
		return nil, nil
	}
	conv, err := s.conversations.GetByID(ctx, *req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation not found")
	}
	if conv.UserID != req.UserID {
		return nil, fmt.Errorf("conversation does not belong to this user")
	}
	return conv, nil
}

// createConversation starts a conversation titled from the first message.
func (s *Service) createConversation(ctx context.Context, req StreamRequest) (*Conversation, error) {
	conv := &Conversation{
		UserID: req.UserID,
		Title:  TitleFromMessage(req.Content),
	}
	if req.PatientID != uuid.Nil {
		pid := req.PatientID
		conv.PatientID = &pid
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}

// buildMessages assembles the gateway transcript: system prompt, the stored
// history in order, then the current user turn. An attached image rides as a
// data-URL content part next to the text.
func (s *Service) buildMessages(ctx context.Context, conv *Conversation, req StreamRequest) ([]openai.ChatCompletionMessage, error) {
	var history []*Message
	if conv != nil {
		var err error
		history, err = s.messages.ListByConversation(ctx, conv.ID)
		if err != nil {
			return nil, fmt.Errorf("loading history: %w", err)
		}
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.buildSystemPrompt(ctx, req.PatientID, time.Now()),
	})
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	turn := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Content}
	if req.ImageURL != "" {
		turn.Content = ""
		turn.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Content},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: req.ImageURL}},
		}
	}
	return append(msgs, turn), nil
}

// relay forwards content chunks to the client while assembling any tool call
// fragments. It returns the concatenated text and the completed tool calls.
func (s *Service) relay(sse *sseWriter, stream *openai.ChatCompletionStream) (string, []openai.ToolCall, error) {
	var text strings.Builder
	acc := newToolCallAccumulator()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}

		forward := false
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				text.WriteString(choice.Delta.Content)
				forward = true
			}
			if len(choice.Delta.ToolCalls) > 0 {
				acc.add(choice.Delta.ToolCalls)
			}
		}
		if forward {
			if err := sse.WriteEvent(chunk); err != nil {
				return "", nil, fmt.Errorf("writing to client: %w", err)
			}
		}
	}

	if acc.empty() {
		return text.String(), nil, nil
	}
	return text.String(), acc.complete(), nil
}

// -- Conversation management --

func (s *Service) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*Conversation, int, error) {
	return s.conversations.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) GetMessages(ctx context.Context, userID string, conversationID uuid.UUID) ([]*Message, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation not found")
	}
	if conv.UserID != userID {
		return nil, fmt.Errorf("conversation does not belong to this user")
	}
	return s.messages.ListByConversation(ctx, conversationID)
}

func (s *Service) DeleteConversation(ctx context.Context, userID string, conversationID uuid.UUID) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("conversation not found")
	}
	if conv.UserID != userID {
		return fmt.Errorf("conversation does not belong to this user")
	}
	return s.conversations.Delete(ctx, conversationID)
}
