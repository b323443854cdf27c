package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/config"
	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/internal/repository"
	"github.com/cleversamer/chatting-app/internal/repository/memory"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

// fakeFileStore keeps blobs in a map so tests can assert on stored and
// deleted paths without touching disk.
type fakeFileStore struct {
	mu     sync.Mutex
	nextID int
	blobs  map[string][]byte
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{blobs: make(map[string][]byte)}
}

func (f *fakeFileStore) Store(data []byte, fileName, titleHint string) (StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	path := fmt.Sprintf("/blob-%d", f.nextID)
	f.blobs[path] = data
	return StoredFile{DisplayName: fileName, Name: fileName, Path: path}, nil
}

func (f *fakeFileStore) Archive(title string, paths []string) (StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	path := fmt.Sprintf("/archive-%d", f.nextID)
	f.blobs[path] = []byte("zip")
	return StoredFile{DisplayName: title + ".zip", Name: title + ".zip", Path: path}, nil
}

func (f *fakeFileStore) Delete(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, path)
	return nil
}

func (f *fakeFileStore) Resolve(path string) string { return path }

func (f *fakeFileStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}

func (f *fakeFileStore) has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[path]
	return ok
}

// fakeScheduler records scheduled events; tests fire them explicitly.
type fakeScheduler struct {
	mu     sync.Mutex
	events []scheduledEvent
}

type scheduledEvent struct {
	at time.Time
	fn func()
}

func (s *fakeScheduler) Schedule(at time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, scheduledEvent{at: at, fn: fn})
}

func (s *fakeScheduler) fireAll() {
	s.mu.Lock()
	events := s.events
	s.events = nil
	s.mu.Unlock()
	for _, e := range events {
		e.fn()
	}
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  int
	last  string
	users []uuid.UUID
}

func (n *fakeNotifier) Notify(ctx context.Context, userIDs []uuid.UUID, title, body string, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	n.last = title
	n.users = userIDs
}

type testEnv struct {
	repos       *repository.Repositories
	files       *fakeFileStore
	sched       *fakeScheduler
	notif       *fakeNotifier
	cfg         *config.Config
	rooms       RoomService
	messages    MessageService
	assignments AssignmentService
	lifecycle   LifecycleService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := memory.Open()
	repos := &repository.Repositories{
		User:       memory.NewUserRepository(db),
		Room:       memory.NewRoomRepository(db),
		Message:    memory.NewMessageRepository(db),
		Assignment: memory.NewAssignmentRepository(db),
		Submission: memory.NewSubmissionRepository(db),
	}

	cfg := &config.Config{
		Rooms: config.RoomsConfig{
			OwnerRoomCap:    10,
			AssignmentTTL:   30 * 24 * time.Hour,
			BundleTTL:       3 * time.Minute,
			ResetInterval:   180 * 24 * time.Hour,
			ResetNoticeLead: 24 * time.Hour,
		},
	}

	files := newFakeFileStore()
	sched := &fakeScheduler{}
	notif := &fakeNotifier{}
	log := logger.NewNop()

	return &testEnv{
		repos:       repos,
		files:       files,
		sched:       sched,
		notif:       notif,
		cfg:         cfg,
		rooms:       NewRoomService(repos.Room, repos.User, repos.Message, cfg, log),
		messages:    NewMessageService(repos.Message, repos.Room, repos.User, files, nil, log),
		assignments: NewAssignmentService(repos.Assignment, repos.Submission, repos.Room, repos.User, files, sched, cfg, log),
		lifecycle:   NewLifecycleService(repos, files, sched, notif, cfg, log),
	}
}

func (e *testEnv) newUser(t *testing.T, role string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		FirstName: "Test",
		LastName:  "User",
		Nickname:  "tester",
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := e.repos.User.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// newJoinedRoom sets up the common fixture: an owner, a private room and one
// joined member.
func (e *testEnv) newJoinedRoom(t *testing.T) (owner, member *domain.User, room *domain.Room) {
	t.Helper()
	ctx := context.Background()

	owner = e.newUser(t, domain.RoleTeacher)
	member = e.newUser(t, domain.RoleStudent)

	room, err := e.rooms.Create(ctx, owner.ID, "Room "+uuid.New().String()[:8], domain.VisibilityPrivate, "code123")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := e.rooms.Join(ctx, member.ID, room.Name, "code123"); err != nil {
		t.Fatalf("join room: %v", err)
	}
	room, err = e.rooms.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("reload room: %v", err)
	}
	return owner, member, room
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}
