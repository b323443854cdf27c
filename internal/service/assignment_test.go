package service

import (
	"context"
	"testing"
	"time"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/pkg/apperr"
)

func TestRemainingTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"already passed", -time.Minute, "time ended"},
		{"exactly now", 0, "time ended"},
		{"seconds only", 40 * time.Second, "40 secs"},
		{"one second", time.Second, "1 sec"},
		{"minutes and seconds", 45*time.Minute + 12*time.Second, "45 mins 12 secs"},
		{"hours and minutes", 3*time.Hour + 20*time.Minute, "3 hours 20 mins"},
		{"one hour exactly", time.Hour, "1 hour"},
		{"days and hours", 2*24*time.Hour + 5*time.Hour, "2 days 5 hours"},
		{"one day", 24 * time.Hour, "1 day"},
		// The two largest buckets win even when smaller ones are non-zero.
		{"caps at two buckets", 2*24*time.Hour + 5*time.Hour + 30*time.Minute + 10*time.Second, "2 days 5 hours"},
		{"skips empty middle bucket", 24*time.Hour + 30*time.Minute, "1 day 30 mins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemainingTime(now.Add(tt.in), now); got != tt.want {
				t.Errorf("RemainingTime(+%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCreateAssignment(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	t.Run("member cannot create", func(t *testing.T) {
		_, err := env.assignments.Create(ctx, member.ID, room.ID, "hw", 60, time.Now(), "hw.pdf", []byte("x"))
		wantKind(t, err, apperr.KindAuthz)
	})

	t.Run("file required", func(t *testing.T) {
		_, err := env.assignments.Create(ctx, owner.ID, room.ID, "hw", 60, time.Now(), "hw.pdf", nil)
		wantKind(t, err, apperr.KindValidation)
	})

	t.Run("title required", func(t *testing.T) {
		_, err := env.assignments.Create(ctx, owner.ID, room.ID, "  ", 60, time.Now(), "hw.pdf", []byte("x"))
		wantKind(t, err, apperr.KindValidation)
	})

	t.Run("expiry from duration", func(t *testing.T) {
		before := time.Now()
		view, err := env.assignments.Create(ctx, owner.ID, room.ID, "homework 1", 90, time.Now(), "hw.pdf", []byte("pdf"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		want := before.Add(90 * time.Minute)
		if view.ExpiresAt.Before(want) || view.ExpiresAt.After(want.Add(time.Minute)) {
			t.Errorf("expires_at = %v, want about %v", view.ExpiresAt, want)
		}
		if view.RemainingTime == "time ended" {
			t.Error("fresh assignment already ended")
		}
		if !env.files.has(view.File.Path) {
			t.Error("assignment file not stored")
		}
		// Deferred cleanup timer armed at creation.
		if len(env.sched.events) == 0 {
			t.Error("no cleanup scheduled")
		}
	})
}

func TestSubmissionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	outsider := env.newUser(t, domain.RoleStudent)
	ctx := context.Background()

	view, err := env.assignments.Create(ctx, owner.ID, room.ID, "lab report", 120, time.Now(), "lab.pdf", []byte("pdf"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	asgID := view.Assignment.ID

	file := func(n int) []SubmissionFile {
		files := make([]SubmissionFile, n)
		for i := range files {
			files[i] = SubmissionFile{Name: "f.txt", Data: []byte("data")}
		}
		return files
	}

	t.Run("outsider", func(t *testing.T) {
		_, err := env.assignments.CreateSubmission(ctx, outsider.ID, room.ID, asgID, file(1))
		wantKind(t, err, apperr.KindNotJoined)
	})

	t.Run("file count bounds", func(t *testing.T) {
		_, err := env.assignments.CreateSubmission(ctx, member.ID, room.ID, asgID, nil)
		wantKind(t, err, apperr.KindValidation)
		_, err = env.assignments.CreateSubmission(ctx, member.ID, room.ID, asgID, file(4))
		wantKind(t, err, apperr.KindValidation)
	})

	t.Run("first submission succeeds", func(t *testing.T) {
		sub, err := env.assignments.CreateSubmission(ctx, member.ID, room.ID, asgID, file(3))
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if len(sub.Files) != 3 {
			t.Errorf("stored files = %d, want 3", len(sub.Files))
		}

		submitted, err := env.assignments.HasSubmitted(ctx, member.ID, asgID)
		if err != nil {
			t.Fatalf("has submitted: %v", err)
		}
		if !submitted {
			t.Error("HasSubmitted = false after submit")
		}
	})

	t.Run("duplicate submission", func(t *testing.T) {
		_, err := env.assignments.CreateSubmission(ctx, member.ID, room.ID, asgID, file(1))
		wantKind(t, err, apperr.KindConflict)
	})

	t.Run("submission count cached on assignment", func(t *testing.T) {
		views, err := env.assignments.ListRoom(ctx, member.ID, room.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(views) != 1 || views[0].SubmissionCount != 1 {
			t.Errorf("submission count = %d, want 1", views[0].SubmissionCount)
		}
	})

	t.Run("owner lists submissions with authors", func(t *testing.T) {
		_, err := env.assignments.ListSubmissions(ctx, member.ID, room.ID, asgID)
		wantKind(t, err, apperr.KindAuthz)

		subs, err := env.assignments.ListSubmissions(ctx, owner.ID, room.ID, asgID)
		if err != nil {
			t.Fatalf("list submissions: %v", err)
		}
		if len(subs) != 1 || subs[0].Author.ID != member.ID {
			t.Errorf("submissions = %v, want one by the member", subs)
		}
	})
}

func TestSubmitAfterExpiry(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	// Zero duration expires immediately.
	view, err := env.assignments.Create(ctx, owner.ID, room.ID, "instant", 0, time.Now(), "x.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = env.assignments.CreateSubmission(ctx, member.ID, room.ID, view.Assignment.ID,
		[]SubmissionFile{{Name: "f", Data: []byte("d")}})
	wantKind(t, err, apperr.KindExpired)
}

func TestExtendExpiryCompounds(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	view, err := env.assignments.Create(ctx, owner.ID, room.ID, "essay", 0, time.Now(), "e.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	asgID := view.Assignment.ID
	base := view.ExpiresAt

	t.Run("member cannot extend", func(t *testing.T) {
		_, err := env.assignments.ExtendExpiry(ctx, member.ID, room.ID, asgID, 1)
		wantKind(t, err, apperr.KindAuthz)
	})

	t.Run("hours must be positive", func(t *testing.T) {
		_, err := env.assignments.ExtendExpiry(ctx, owner.ID, room.ID, asgID, 0)
		wantKind(t, err, apperr.KindValidation)
	})

	first, err := env.assignments.ExtendExpiry(ctx, owner.ID, room.ID, asgID, 2)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	second, err := env.assignments.ExtendExpiry(ctx, owner.ID, room.ID, asgID, 3)
	if err != nil {
		t.Fatalf("extend again: %v", err)
	}

	if got, want := first.ExpiresAt, base.Add(2*time.Hour); !got.Equal(want) {
		t.Errorf("first extension = %v, want %v", got, want)
	}
	// The second extension stacks on the first, not on now.
	if got, want := second.ExpiresAt, base.Add(5*time.Hour); !got.Equal(want) {
		t.Errorf("second extension = %v, want %v", got, want)
	}

	// A compounded deadline in the future accepts submissions again.
	if _, err := env.assignments.CreateSubmission(ctx, member.ID, room.ID, asgID,
		[]SubmissionFile{{Name: "f", Data: []byte("d")}}); err != nil {
		t.Fatalf("submit after extension: %v", err)
	}
}

func TestBundleSubmissions(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	view, err := env.assignments.Create(ctx, owner.ID, room.ID, "project", 60, time.Now(), "p.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	asgID := view.Assignment.ID

	t.Run("no submissions yet", func(t *testing.T) {
		_, err := env.assignments.Bundle(ctx, owner.ID, room.ID, asgID)
		wantKind(t, err, apperr.KindNotFound)
	})

	if _, err := env.assignments.CreateSubmission(ctx, member.ID, room.ID, asgID,
		[]SubmissionFile{{Name: "a.txt", Data: []byte("a")}, {Name: "b.txt", Data: []byte("b")}}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	t.Run("member cannot bundle", func(t *testing.T) {
		_, err := env.assignments.Bundle(ctx, member.ID, room.ID, asgID)
		wantKind(t, err, apperr.KindAuthz)
	})

	archive, err := env.assignments.Bundle(ctx, owner.ID, room.ID, asgID)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if !env.files.has(archive.Path) {
		t.Error("archive not stored")
	}

	// Firing the pending timers runs the archive's scheduled deletion.
	env.sched.fireAll()
	if env.files.has(archive.Path) {
		t.Error("archive survived its TTL")
	}
}

func TestAssignmentDeleteCascade(t *testing.T) {
	env := newTestEnv(t)
	owner, member, room := env.newJoinedRoom(t)
	ctx := context.Background()

	view, err := env.assignments.Create(ctx, owner.ID, room.ID, "quiz", 60, time.Now(), "q.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	asgID := view.Assignment.ID

	if _, err := env.assignments.CreateSubmission(ctx, member.ID, room.ID, asgID,
		[]SubmissionFile{{Name: "ans.txt", Data: []byte("42")}}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := env.assignments.Delete(ctx, owner.ID, room.ID, asgID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if env.files.count() != 0 {
		t.Errorf("files remaining after cascade: %d", env.files.count())
	}
	if _, err := env.repos.Assignment.GetByID(ctx, asgID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("assignment still present: %v", err)
	}

	// Replayed cleanup of an already-deleted assignment is a no-op.
	if err := env.assignments.DeleteCascade(ctx, asgID); err != nil {
		t.Errorf("replayed cascade: %v", err)
	}
}
