// Package inbox provides per-recipient notification inboxes with read
// state, a same-process subscriber bus, and domain-event emission for
// cross-component listeners (the audit bridge subscribes to message
// creation instead of the inbox calling the audit store directly).
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tenderhub/internal/kvstore"
	"tenderhub/internal/util"
)

const (
	messageKeyPrefix = "company_messages_"
	currentUserKey   = "currentUser"
)

var (
	// ErrNotFound indicates the message id is absent from the inbox.
	ErrNotFound = errors.New("inbox: message not found")
	// ErrNoRecipient indicates no recipient was given and no current user
	// record exists to resolve one from.
	ErrNoRecipient = errors.New("inbox: no recipient resolvable")
	// ErrCorruptData indicates a stored inbox failed to parse.
	ErrCorruptData = errors.New("inbox: stored messages are corrupt")
)

// Category grades a message for display and audit escalation.
type Category string

const (
	CategoryInfo    Category = "info"
	CategorySuccess Category = "success"
	CategoryWarning Category = "warning"
	CategoryError   Category = "error"
	CategoryUrgent  Category = "urgent"
)

// Action is a follow-up link attached to a message.
type Action struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Message is one inbox entry. Lifecycle: created (read=false) -> read ->
// deleted; no other transitions.
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Category  Category          `json:"category"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	Timestamp time.Time         `json:"timestamp"`
	Actions   []Action          `json:"actions,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventType identifies a domain event published by the service.
type EventType string

const (
	EventMessageAdded EventType = "message_added"
	EventMessageRead  EventType = "message_read"
)

// Event is published to registered handlers on inbox mutations.
type Event struct {
	Type      EventType
	Recipient string
	Message   Message
}

// Listener receives the recipient's full message list after every write.
// There is no diffing; each change re-delivers the whole list.
type Listener func(recipient string, messages []Message)

// EventHandler receives domain events.
type EventHandler func(Event)

// Service owns per-recipient inboxes keyed by lowercased email.
type Service struct {
	facade *kvstore.Facade

	mu        sync.Mutex
	listeners map[int]Listener
	handlers  map[int]EventHandler
	nextID    int
}

func NewService(facade *kvstore.Facade) *Service {
	return &Service{
		facade:    facade,
		listeners: make(map[int]Listener),
		handlers:  make(map[int]EventHandler),
	}
}

// AddMessage assigns id and timestamp, prepends onto the recipient's inbox
// (newest-first without re-sorting), persists, notifies subscribers and
// publishes a message_added event. An empty recipientEmail resolves from
// the stored current user record.
func (s *Service) AddMessage(ctx context.Context, msg Message, recipientEmail string) (Message, error) {
	recipient, err := s.resolveRecipient(ctx, recipientEmail)
	if err != nil {
		return Message{}, err
	}

	messages, err := s.load(ctx, recipient)
	if err != nil {
		return Message{}, err
	}

	msg.ID = util.TimedID("msg")
	msg.Timestamp = time.Now().UTC().Truncate(time.Millisecond)
	msg.Read = false

	messages = append([]Message{msg}, messages...)
	if err := s.save(ctx, recipient, messages); err != nil {
		return Message{}, err
	}

	s.notify(recipient, messages)
	s.publish(Event{Type: EventMessageAdded, Recipient: recipient, Message: msg})
	return msg, nil
}

// Messages returns the recipient's inbox, newest first.
func (s *Service) Messages(ctx context.Context, recipientEmail string) ([]Message, error) {
	recipient, err := s.resolveRecipient(ctx, recipientEmail)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, recipient)
}

// UnreadCount returns the number of unread messages in the inbox.
func (s *Service) UnreadCount(ctx context.Context, recipientEmail string) (int, error) {
	messages, err := s.Messages(ctx, recipientEmail)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range messages {
		if !m.Read {
			count++
		}
	}
	return count, nil
}

// MarkAsRead flips the read flag on one message.
func (s *Service) MarkAsRead(ctx context.Context, recipientEmail, messageID string) error {
	recipient, err := s.resolveRecipient(ctx, recipientEmail)
	if err != nil {
		return err
	}
	messages, err := s.load(ctx, recipient)
	if err != nil {
		return err
	}
	for i := range messages {
		if messages[i].ID != messageID {
			continue
		}
		messages[i].Read = true
		if err := s.save(ctx, recipient, messages); err != nil {
			return err
		}
		s.notify(recipient, messages)
		s.publish(Event{Type: EventMessageRead, Recipient: recipient, Message: messages[i]})
		return nil
	}
	return ErrNotFound
}

// MarkAllAsRead flips the read flag on every message in the inbox.
func (s *Service) MarkAllAsRead(ctx context.Context, recipientEmail string) error {
	recipient, err := s.resolveRecipient(ctx, recipientEmail)
	if err != nil {
		return err
	}
	messages, err := s.load(ctx, recipient)
	if err != nil {
		return err
	}
	for i := range messages {
		messages[i].Read = true
	}
	if err := s.save(ctx, recipient, messages); err != nil {
		return err
	}
	s.notify(recipient, messages)
	return nil
}

// DeleteMessage removes one message from the inbox.
func (s *Service) DeleteMessage(ctx context.Context, recipientEmail, messageID string) error {
	recipient, err := s.resolveRecipient(ctx, recipientEmail)
	if err != nil {
		return err
	}
	messages, err := s.load(ctx, recipient)
	if err != nil {
		return err
	}
	kept := messages[:0]
	found := false
	for _, m := range messages {
		if m.ID == messageID {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return ErrNotFound
	}
	if err := s.save(ctx, recipient, kept); err != nil {
		return err
	}
	s.notify(recipient, kept)
	return nil
}

// Subscribe registers a listener for inbox changes; returns an unsubscribe
// function.
func (s *Service) Subscribe(listener Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// OnEvent registers a domain-event handler; returns an unregister function.
func (s *Service) OnEvent(handler EventHandler) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

func (s *Service) notify(recipient string, messages []Message) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	for _, l := range listeners {
		l(recipient, messages)
	}
}

func (s *Service) publish(event Event) {
	s.mu.Lock()
	handlers := make([]EventHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()
	for _, h := range handlers {
		h(event)
	}
}

// resolveRecipient lowercases the given email, or falls back to the stored
// current user record when none is given.
func (s *Service) resolveRecipient(ctx context.Context, recipientEmail string) (string, error) {
	if recipientEmail != "" {
		return strings.ToLower(recipientEmail), nil
	}
	raw, err := s.facade.GetItem(ctx, currentUserKey)
	if err != nil {
		return "", ErrNoRecipient
	}
	var current struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal([]byte(raw), &current); err != nil || current.Email == "" {
		return "", ErrNoRecipient
	}
	return strings.ToLower(current.Email), nil
}

// load reads the recipient's inbox, falling back to a pre-lowercasing
// legacy key when the canonical key is absent.
func (s *Service) load(ctx context.Context, recipient string) ([]Message, error) {
	raw, err := s.facade.GetItem(ctx, messageKeyPrefix+recipient)
	if errors.Is(err, kvstore.ErrNotFound) {
		raw, err = s.legacyLoad(ctx, recipient)
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load inbox %s: %w", recipient, err)
	}

	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, recipient, err)
	}
	return messages, nil
}

// legacyLoad scans for an inbox key written before emails were lowercased.
func (s *Service) legacyLoad(ctx context.Context, recipient string) (string, error) {
	for _, key := range s.facade.Keys(ctx) {
		if !strings.HasPrefix(key, messageKeyPrefix) {
			continue
		}
		if strings.EqualFold(strings.TrimPrefix(key, messageKeyPrefix), recipient) {
			return s.facade.GetItem(ctx, key)
		}
	}
	return "", kvstore.ErrNotFound
}

func (s *Service) save(ctx context.Context, recipient string, messages []Message) error {
	if messages == nil {
		messages = []Message{}
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal inbox %s: %w", recipient, err)
	}
	s.facade.SetItem(ctx, messageKeyPrefix+recipient, string(payload))
	return nil
}
