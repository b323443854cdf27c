package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageAudio MessageType = "audio"
	MessageFile  MessageType = "file"
	MessageImage MessageType = "image"
	MessageVideo MessageType = "video"
	MessagePoll  MessageType = "poll"
)

var messageTypes = map[MessageType]bool{
	MessageText:  true,
	MessageAudio: true,
	MessageFile:  true,
	MessageImage: true,
	MessageVideo: true,
	MessagePoll:  true,
}

func ValidMessageType(t MessageType) bool { return messageTypes[t] }

// IsMediaType reports whether t carries an attached file.
func IsMediaType(t MessageType) bool {
	return t == MessageAudio || t == MessageFile || t == MessageImage || t == MessageVideo
}

// FileRef points at a stored blob: the name shown to clients and the path
// handed back to the file store for deletion.
type FileRef struct {
	DisplayName string `json:"display_name"`
	Path        string `json:"path"`
}

type PollVote struct {
	UserID uuid.UUID `json:"user_id"`
	Option int       `json:"option"`
}

// Payload is the typed body of a message. Exactly one variant exists per
// message and the variant is fixed at creation.
type Payload interface {
	isPayload()
}

type TextPayload struct {
	Text string `json:"text"`
}

func (*TextPayload) isPayload() {}

// MediaPayload backs the audio/file/image/video types: a stored file plus an
// optional caption.
type MediaPayload struct {
	Text string  `json:"text,omitempty"`
	File FileRef `json:"file"`
}

func (*MediaPayload) isPayload() {}

// PollPayload holds the option strings and at most one vote per user.
type PollPayload struct {
	Question string     `json:"question,omitempty"`
	Options  []string   `json:"options"`
	Votes    []PollVote `json:"votes"`
}

func (*PollPayload) isPayload() {}

// CastVote upserts the user's vote in place. Re-voting overwrites the
// existing entry, never appends.
func (p *PollPayload) CastVote(userID uuid.UUID, option int) {
	for i := range p.Votes {
		if p.Votes[i].UserID == userID {
			p.Votes[i].Option = option
			return
		}
	}
	p.Votes = append(p.Votes, PollVote{UserID: userID, Option: option})
}

type Message struct {
	ID        uuid.UUID   `json:"id"`
	RoomID    uuid.UUID   `json:"room_id"`
	SenderID  uuid.UUID   `json:"sender_id"`
	Type      MessageType `json:"type"`
	Payload   Payload     `json:"payload"`
	IsReply   bool        `json:"is_reply"`
	RepliedTo *uuid.UUID  `json:"replied_to,omitempty"`
	IsPinned  bool        `json:"is_pinned"`
	Viewers   []uuid.UUID `json:"viewers"`
	CreatedAt time.Time   `json:"created_at"`
}

// Text returns the message text, if its payload carries one.
func (m *Message) Text() string {
	switch p := m.Payload.(type) {
	case *TextPayload:
		return p.Text
	case *MediaPayload:
		return p.Text
	}
	return ""
}

// File returns the attached file, if the payload carries one.
func (m *Message) File() *FileRef {
	if p, ok := m.Payload.(*MediaPayload); ok {
		return &p.File
	}
	return nil
}

// Poll returns the poll payload, or nil for non-poll messages.
func (m *Message) Poll() *PollPayload {
	if p, ok := m.Payload.(*PollPayload); ok {
		return p
	}
	return nil
}

// MarshalPayload serializes a payload for storage.
func MarshalPayload(p Payload) ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalPayload restores the payload variant matching the message type.
func UnmarshalPayload(t MessageType, data []byte) (Payload, error) {
	switch {
	case t == MessageText:
		p := &TextPayload{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, err
		}
		return p, nil
	case IsMediaType(t):
		p := &MediaPayload{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, err
		}
		return p, nil
	case t == MessagePoll:
		p := &PollPayload{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown message type %q", t)
}
