package service

import (
	"context"
	"strings"

	"pixelcanvas/internal/domain"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// RecentChatLimit is the size of the history served to new clients.
const RecentChatLimit = 200

var chatMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "chat_messages_total",
	Help: "Chat messages accepted",
})

func init() {
	prometheus.MustRegister(chatMessagesTotal)
}

var chatEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// SanitizeChat escapes angle brackets, trims whitespace and caps the length.
func SanitizeChat(s string) string {
	s = strings.TrimSpace(chatEscaper.Replace(s))
	if r := []rune(s); len(r) > domain.MaxChatLength {
		s = string(r[:domain.MaxChatLength])
	}
	return s
}

type ChatService struct {
	repo ChatStore
	hub  Broadcaster
}

func NewChatService(repo ChatStore, hub Broadcaster) *ChatService {
	if hub == nil {
		hub = nopBroadcaster{}
	}
	return &ChatService{repo: repo, hub: hub}
}

// Send stores a sanitized message from the caller and broadcasts it.
func (s *ChatService) Send(ctx context.Context, from Identity, text string) (*domain.ChatMessage, error) {
	text = SanitizeChat(text)
	if text == "" {
		return nil, domain.NewValidationError("", "Empty message")
	}

	name := from.Name
	if name == "" {
		name = from.Email
	}
	if name == "" {
		name = "anon"
	}

	msg := &domain.ChatMessage{
		ID:       uuid.NewString(),
		From:     from.UID,
		FromName: name,
		Text:     text,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	chatMessagesTotal.Inc()

	s.hub.PublishChat(*msg)
	return msg, nil
}

// Recent returns the latest messages in chronological order.
func (s *ChatService) Recent(ctx context.Context) ([]domain.ChatMessage, error) {
	return s.repo.RecentMessages(ctx, RecentChatLimit)
}
