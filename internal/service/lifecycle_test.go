package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/pkg/apperr"
)

// populateRoom fills a room with one media message, one assignment and one
// submission so the cascades have something to tear down.
func populateRoom(t *testing.T, env *testEnv, owner, member *domain.User, room *domain.Room) {
	t.Helper()
	ctx := context.Background()

	if _, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: member.ID, Type: domain.MessageText, Text: "hello",
	}); err != nil {
		t.Fatalf("send text: %v", err)
	}
	if _, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: member.ID, Type: domain.MessageFile,
		FileName: "notes.txt", FileData: []byte("notes"),
	}); err != nil {
		t.Fatalf("send file: %v", err)
	}

	view, err := env.assignments.Create(ctx, owner.ID, room.ID, "hw", 60, time.Now(), "hw.pdf", []byte("pdf"))
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if _, err := env.assignments.CreateSubmission(ctx, member.ID, room.ID, view.Assignment.ID,
		[]SubmissionFile{{Name: "ans.txt", Data: []byte("42")}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestDeleteRoomCascade(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	populateRoom(t, env, owner, member, room)

	t.Run("member cannot delete", func(t *testing.T) {
		err := env.lifecycle.DeleteRoom(ctx, member.ID, room.ID)
		wantKind(t, err, apperr.KindAuthz)
	})

	if err := env.lifecycle.DeleteRoom(ctx, owner.ID, room.ID); err != nil {
		t.Fatalf("delete room: %v", err)
	}

	if _, err := env.rooms.GetByID(ctx, room.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("room still present: %v", err)
	}
	// Every stored blob (message file, assignment file, submission file)
	// is released.
	if env.files.count() != 0 {
		t.Errorf("files remaining after delete: %d", env.files.count())
	}
	if msgs, _ := env.repos.Message.ListByRoom(ctx, room.ID); len(msgs) != 0 {
		t.Errorf("messages remaining: %d", len(msgs))
	}
	if asgs, _ := env.repos.Assignment.ListByRoom(ctx, room.ID); len(asgs) != 0 {
		t.Errorf("assignments remaining: %d", len(asgs))
	}

	// Membership backlinks are gone too.
	u, err := env.repos.User.FindByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("find member: %v", err)
	}
	for _, id := range u.JoinedRooms {
		if id == room.ID {
			t.Error("member still backlinked to deleted room")
		}
	}
	o, err := env.repos.User.FindByID(ctx, owner.ID)
	if err != nil {
		t.Fatalf("find owner: %v", err)
	}
	for _, id := range o.CreatedRooms {
		if id == room.ID {
			t.Error("owner still backlinked to deleted room")
		}
	}
}

func TestResetRoomPreservesRoom(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	populateRoom(t, env, owner, member, room)

	t.Run("member cannot reset", func(t *testing.T) {
		err := env.lifecycle.ResetRoom(ctx, member.ID, room.ID)
		wantKind(t, err, apperr.KindAuthz)
	})

	if err := env.lifecycle.ResetRoom(ctx, owner.ID, room.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	reloaded, err := env.rooms.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("room gone after reset: %v", err)
	}
	if len(reloaded.Members) != 0 {
		t.Errorf("members remaining: %d", len(reloaded.Members))
	}
	if len(reloaded.PinnedMessages) != 0 {
		t.Errorf("pins remaining: %d", len(reloaded.PinnedMessages))
	}
	if env.files.count() != 0 {
		t.Errorf("files remaining: %d", env.files.count())
	}

	// The room is still joinable afterwards.
	if _, err := env.rooms.Join(ctx, member.ID, room.Name, "code123"); err != nil {
		t.Fatalf("rejoin after reset: %v", err)
	}
}

func TestDeleteRoomMessagesClearsLedgerOnly(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	populateRoom(t, env, owner, member, room)

	msg, err := env.messages.Send(ctx, SendInput{
		RoomID: room.ID, SenderID: owner.ID, Type: domain.MessageText, Text: "pinned", IsPinned: true,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := env.rooms.PinMessage(ctx, room.ID, owner.ID, msg.ID); err != nil {
		t.Fatalf("pin: %v", err)
	}

	t.Run("member cannot clear", func(t *testing.T) {
		err := env.lifecycle.DeleteRoomMessages(ctx, member.ID, room.ID)
		wantKind(t, err, apperr.KindAuthz)
	})

	if err := env.lifecycle.DeleteRoomMessages(ctx, owner.ID, room.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}

	msgs, err := env.messages.ListRoom(ctx, member.ID, room.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages remaining: %d", len(msgs))
	}

	reloaded, err := env.rooms.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(reloaded.PinnedMessages) != 0 {
		t.Errorf("pins remaining: %d", len(reloaded.PinnedMessages))
	}
	// Members and assignments survive a chat clear.
	if !reloaded.IsMember(member.ID) {
		t.Error("member removed by chat clear")
	}
	asgs, err := env.repos.Assignment.ListByRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(asgs) != 1 {
		t.Errorf("assignments = %d, want 1", len(asgs))
	}
}

func TestScheduleRoomMaintenance(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	populateRoom(t, env, owner, member, room)
	env.sched.events = nil // drop the assignment cleanup armed above

	env.lifecycle.ScheduleRoomMaintenance(room.ID)
	if len(env.sched.events) != 2 {
		t.Fatalf("scheduled events = %d, want notice + reset", len(env.sched.events))
	}

	notice, reset := env.sched.events[0], env.sched.events[1]
	if lead := reset.at.Sub(notice.at); lead != env.cfg.Rooms.ResetNoticeLead {
		t.Errorf("notice lead = %v, want %v", lead, env.cfg.Rooms.ResetNoticeLead)
	}

	env.sched.fireAll()

	if env.notif.sent != 1 {
		t.Errorf("notifications sent = %d, want 1", env.notif.sent)
	}
	if len(env.notif.users) != 2 {
		t.Errorf("recipients = %d, want owner and member", len(env.notif.users))
	}

	// The reset fired: room survives, contents do not.
	reloaded, err := env.rooms.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("room gone after scheduled reset: %v", err)
	}
	if len(reloaded.Members) != 0 {
		t.Errorf("members remaining: %d", len(reloaded.Members))
	}
}

func TestScheduledCallbacksTolerateMissingRoom(t *testing.T) {
	env := newTestEnv(t)

	env.lifecycle.ScheduleRoomMaintenance(uuid.New())
	env.sched.fireAll()

	if env.notif.sent != 0 {
		t.Errorf("notified about a missing room %d times", env.notif.sent)
	}
	if err := env.lifecycle.DeleteRoomAssets(context.Background(), uuid.New()); err != nil {
		t.Errorf("missing room cleanup: %v", err)
	}
}
