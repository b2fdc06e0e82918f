// Package models defines the core data structures for users, chats and messages.
package models

import "time"

// User represents an authenticated application user.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id" validate:"required"`
	// Name is the display name shown in the profile screen.
	Name string `json:"name" validate:"required"`
	// Email is the login address of the user.
	Email string `json:"email" validate:"required,email"`
	// Avatar is an optional reference to the user's picture.
	Avatar string `json:"avatar,omitempty"`
}

// Sender identifies the author of a chat message.
type Sender string

const (
	// SenderUser marks messages written by the user.
	SenderUser Sender = "user"
	// SenderAI marks messages produced by the assistant.
	SenderAI Sender = "ai"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// Message is a single immutable entry of a chat thread.
type Message struct {
	// ID is unique within the owning chat.
	ID string `json:"id" yaml:"id"`
	// Content holds the message text.
	Content string `json:"content" yaml:"content"`
	// Sender is either "user" or "ai".
	Sender Sender `json:"sender" yaml:"sender"`
	// Timestamp is the creation time of the message.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Chat is a conversation thread about a single source document.
type Chat struct {
	// ID is the unique identifier of the chat.
	ID string `json:"id" yaml:"id"`
	// Title is the human readable name of the chat.
	Title string `json:"title" yaml:"title"`
	// FileName is the name of the source document.
	FileName string `json:"fileName" yaml:"file_name"`
	// FileType is a short tag such as "pdf" or "docx".
	FileType string `json:"fileType" yaml:"file_type"`
	// LastMessage is the preview text of the most recent message.
	LastMessage string `json:"lastMessage" yaml:"last_message"`
	// Timestamp is the last activity time.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	// Messages are kept in chronological order.
	Messages []Message `json:"messages" yaml:"messages"`
}

// Clone returns a copy of c that shares no message storage with it.
func (c Chat) Clone() Chat {
	out := c
	if c.Messages != nil {
		out.Messages = make([]Message, len(c.Messages))
		copy(out.Messages, c.Messages)
	}
	return out
}

// DeletedChat is a chat moved to the trash.
type DeletedChat struct {
	Chat `yaml:",inline"`
	// DeletedAt is the time the chat was moved to the trash.
	DeletedAt time.Time `json:"deletedAt" yaml:"deleted_at"`
}
