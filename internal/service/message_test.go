package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	_, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   SendInput
	}{
		{"unknown type", SendInput{Type: "sticker", Text: "hi"}},
		{"text without text", SendInput{Type: domain.MessageText, Text: "   "}},
		{"media without file", SendInput{Type: domain.MessageImage}},
		{"poll with one option", SendInput{Type: domain.MessagePoll, Text: "q", PollOptions: []string{"only"}}},
		{"poll with blank options", SendInput{Type: domain.MessagePoll, Text: "q", PollOptions: []string{" ", ""}}},
		{"reply without target", SendInput{Type: domain.MessageText, Text: "hi", IsReply: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			in.RoomID = room.ID
			in.SenderID = member.ID
			_, err := env.messages.Send(ctx, in)
			wantKind(t, err, apperr.KindValidation)
		})
	}
}

func TestSendMessageGates(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	outsider := env.newUser(t, domain.RoleStudent)
	ctx := context.Background()

	send := func(senderID uuid.UUID) error {
		_, err := env.messages.Send(ctx, SendInput{
			RoomID: room.ID, SenderID: senderID, Type: domain.MessageText, Text: "hello",
		})
		return err
	}

	wantKind(t, send(outsider.ID), apperr.KindNotJoined)

	if _, err := env.rooms.SetBlocked(ctx, room.ID, owner.ID, []uuid.UUID{member.ID}, true); err != nil {
		t.Fatalf("block: %v", err)
	}
	wantKind(t, send(member.ID), apperr.KindAuthz)
	if _, err := env.rooms.SetBlocked(ctx, room.ID, owner.ID, []uuid.UUID{member.ID}, false); err != nil {
		t.Fatalf("unblock: %v", err)
	}

	if _, err := env.rooms.ToggleChatDisabled(ctx, room.ID, owner.ID); err != nil {
		t.Fatalf("disable chat: %v", err)
	}
	wantKind(t, send(member.ID), apperr.KindAuthz)

	// The owner posts through every gate.
	if err := send(owner.ID); err != nil {
		t.Fatalf("owner send: %v", err)
	}
}

func TestSendPinnedAnnouncement(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	_, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: member.ID, Type: domain.MessageText, Text: "psst", IsPinned: true,
	})
	wantKind(t, err, apperr.KindAuthz)

	msg, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: owner.ID, Type: domain.MessageText, Text: "announcement", IsPinned: true,
	})
	if err != nil {
		t.Fatalf("owner pinned send: %v", err)
	}
	if !msg.IsPinned {
		t.Error("message not flagged pinned")
	}
}

func TestSendReplyHydration(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	original, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: member.ID, Type: domain.MessageText, Text: "question",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	reply, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: owner.ID, Type: domain.MessageText, Text: "answer",
		IsReply: true, RepliedTo: &original.ID,
	})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply.RepliedMessage == nil || reply.RepliedMessage.ID != original.ID {
		t.Error("reply view missing replied message snapshot")
	}

	t.Run("reply to missing message", func(t *testing.T) {
		ghost := uuid.New()
		_, err := env.messages.Send(ctx, SendInput{
			RoomID: room.ID, SenderID: member.ID, Type: domain.MessageText, Text: "x",
			IsReply: true, RepliedTo: &ghost,
		})
		wantKind(t, err, apperr.KindNotFound)
	})

	t.Run("reply across rooms", func(t *testing.T) {
		other, err := env.rooms.Create(ctx, owner.ID, "other room", domain.VisibilityPublic, "")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		_, err = env.messages.Send(ctx, SendInput{
			RoomID: other.ID, SenderID: owner.ID, Type: domain.MessageText, Text: "x",
			IsReply: true, RepliedTo: &original.ID,
		})
		wantKind(t, err, apperr.KindValidation)
	})
}

func TestSendMediaStoresFile(t *testing.T) {
	env := newTestEnv(t)
	_, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	msg, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: member.ID, Type: domain.MessageImage,
		Text: "look at this", FileName: "cat.png", FileData: []byte{1, 2, 3},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	file := msg.File()
	if file == nil {
		t.Fatal("media message has no file ref")
	}
	if file.DisplayName != "cat.png" {
		t.Errorf("display name = %q, want cat.png", file.DisplayName)
	}
	if !env.files.has(file.Path) {
		t.Error("file not present in store")
	}
}

func TestPollVoting(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	poll, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: owner.ID, Type: domain.MessagePoll,
		Text: "lunch?", PollOptions: []string{"pizza", "salad", "soup"},
	})
	if err != nil {
		t.Fatalf("send poll: %v", err)
	}

	t.Run("outsider cannot vote", func(t *testing.T) {
		outsider := env.newUser(t, domain.RoleStudent)
		_, err := env.messages.Vote(ctx, outsider.ID, poll.ID, 0)
		wantKind(t, err, apperr.KindAuthz)
	})

	t.Run("option out of range", func(t *testing.T) {
		_, err := env.messages.Vote(ctx, member.ID, poll.ID, 3)
		wantKind(t, err, apperr.KindValidation)
		_, err = env.messages.Vote(ctx, member.ID, poll.ID, -1)
		wantKind(t, err, apperr.KindValidation)
	})

	t.Run("vote on non-poll", func(t *testing.T) {
		text, err := env.messages.Send(ctx, SendInput{
			RoomID: room.ID, SenderID: member.ID, Type: domain.MessageText, Text: "not a poll",
		})
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		_, err = env.messages.Vote(ctx, member.ID, text.ID, 0)
		wantKind(t, err, apperr.KindInternal)
	})

	t.Run("revote replaces previous vote", func(t *testing.T) {
		if _, err := env.messages.Vote(ctx, member.ID, poll.ID, 0); err != nil {
			t.Fatalf("vote: %v", err)
		}
		voted, err := env.messages.Vote(ctx, member.ID, poll.ID, 2)
		if err != nil {
			t.Fatalf("revote: %v", err)
		}

		p := voted.Poll()
		if len(p.Votes) != 1 {
			t.Fatalf("votes = %d, want 1 per user", len(p.Votes))
		}
		if p.Votes[0].Option != 2 {
			t.Errorf("vote option = %d, want 2", p.Votes[0].Option)
		}
	})

	t.Run("many distinct voters accumulate", func(t *testing.T) {
		const extra = 5
		for i := 0; i < extra; i++ {
			u := env.newUser(t, domain.RoleStudent)
			if _, err := env.rooms.Join(ctx, u.ID, room.Name, "code123"); err != nil {
				t.Fatalf("join: %v", err)
			}
			if _, err := env.messages.Vote(ctx, u.ID, poll.ID, i%3); err != nil {
				t.Fatalf("vote %d: %v", i, err)
			}
		}

		msgs, err := env.messages.ListRoom(ctx, member.ID, room.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, m := range msgs {
			if m.ID != poll.ID {
				continue
			}
			if got := len(m.Poll().Votes); got != extra+1 {
				t.Errorf("votes = %d, want %d", got, extra+1)
			}
			if got := len(m.Voters); got != extra+1 {
				t.Errorf("voter profiles = %d, want %d", got, extra+1)
			}
		}
	})
}

func TestDeleteMessage(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	other := env.newUser(t, domain.RoleStudent)
	ctx := context.Background()

	if _, err := env.rooms.Join(ctx, other.ID, room.Name, "code123"); err != nil {
		t.Fatalf("join: %v", err)
	}

	msg, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: member.ID, Type: domain.MessageText, Text: "delete me",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// Neither another member nor an outsider may delete.
	_, err = env.messages.Delete(ctx, other.ID, msg.ID)
	wantKind(t, err, apperr.KindAuthz)

	deleted, err := env.messages.Delete(ctx, member.ID, msg.ID)
	if err != nil {
		t.Fatalf("sender delete: %v", err)
	}
	if deleted.ID != msg.ID {
		t.Errorf("deleted wrong message: %s", deleted.ID)
	}

	_, err = env.messages.Delete(ctx, member.ID, msg.ID)
	wantKind(t, err, apperr.KindNotFound)

	// The owner may delete anyone's message.
	msg2, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: member.ID, Type: domain.MessageText, Text: "another",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := env.messages.Delete(ctx, owner.ID, msg2.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestDeletePinnedMessageUnpins(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	msg, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: member.ID, Type: domain.MessageText, Text: "pin me",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := env.rooms.PinMessage(ctx, room.ID, owner.ID, msg.ID); err != nil {
		t.Fatalf("pin: %v", err)
	}

	if _, err := env.messages.Delete(ctx, owner.ID, msg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	reloaded, err := env.rooms.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(reloaded.PinnedMessages) != 0 {
		t.Errorf("pinned list = %v, want empty", reloaded.PinnedMessages)
	}
}

func TestListRoomOrderingAndGate(t *testing.T) {
	env := newTestEnv(t)
	_, member, room := env.newJoinedRoom(t)
	outsider := env.newUser(t, domain.RoleStudent)
	ctx := context.Background()

	_, err := env.messages.ListRoom(ctx, outsider.ID, room.ID)
	wantKind(t, err, apperr.KindNotJoined)

	for i := 0; i < 3; i++ {
		if _, err := env.messages.Send(ctx, SendInput{
			RoomID: room.ID, SenderID: member.ID, Type: domain.MessageText,
			Text: fmt.Sprintf("msg-%d", i),
		}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	msgs, err := env.messages.ListRoom(ctx, member.ID, room.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	for i, m := range msgs {
		want := fmt.Sprintf("msg-%d", i)
		if got := m.Text(); got != want {
			t.Errorf("message %d = %q, want %q", i, got, want)
		}
		if m.Sender.ID != member.ID {
			t.Errorf("message %d sender = %s, want %s", i, m.Sender.ID, member.ID)
		}
	}
}

// failingMessageRepo rejects every insert so the failed-persist path can be
// driven deterministically.
type failingMessageRepo struct {
	repository.MessageRepository
}

func (failingMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	return apperr.Storage("message", errors.New("insert failed"))
}

func TestSendMediaDoesNotOrphanFiles(t *testing.T) {
	env := newTestEnv(t)
	_, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	t.Run("failed persist releases the blob", func(t *testing.T) {
		svc := NewMessageService(
			failingMessageRepo{env.repos.Message}, env.repos.Room, env.repos.User,
			env.files, nil, logger.NewNop(),
		)
		_, err := svc.Send(ctx, SendInput{
			RoomID: room.ID, SenderID: member.ID, Type: domain.MessageImage,
			FileName: "cat.png", FileData: []byte{1, 2, 3},
		})
		wantKind(t, err, apperr.KindStorage)
		if n := env.files.count(); n != 0 {
			t.Errorf("store holds %d blobs after failed persist, want 0", n)
		}
	})

	t.Run("bad reply target stores nothing", func(t *testing.T) {
		ghost := uuid.New()
		_, err := env.messages.Send(ctx, SendInput{
			RoomID: room.ID, SenderID: member.ID, Type: domain.MessageImage,
			FileName: "cat.png", FileData: []byte{1, 2, 3},
			IsReply: true, RepliedTo: &ghost,
		})
		wantKind(t, err, apperr.KindNotFound)
		if n := env.files.count(); n != 0 {
			t.Errorf("store holds %d blobs after rejected reply, want 0", n)
		}
	})
}
