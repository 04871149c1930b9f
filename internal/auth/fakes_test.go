package auth

import (
	"context"
	"sync"
	"time"

	"github.com/mypharma/pharma-backend/internal/model"
	"github.com/mypharma/pharma-backend/internal/queue"
	"github.com/mypharma/pharma-backend/internal/repository"
)

// fakeUsers is an in-memory UserStore with the same (nil, nil) lookup
// contract as the SQL repository.
type fakeUsers struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[uint64]*model.User)}
}

func (f *fakeUsers) find(pred func(*model.User) bool) *model.User {
	for _, u := range f.byID {
		if u.DeletedAt == nil && pred(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (f *fakeUsers) GetByPhone(_ context.Context, phone string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *model.User) bool { return u.Phone == phone }), nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *model.User) bool { return u.Email == email }), nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.DeletedAt != nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.byID {
		if ex.DeletedAt != nil {
			continue
		}
		if ex.Phone == u.Phone || (u.Email != "" && ex.Email == u.Email) {
			return 0, repository.ErrDuplicateIdentifier
		}
	}
	f.seq++
	cp := *u
	cp.ID = f.seq
	f.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeUsers) UpdateLockout(_ context.Context, id uint64, attempts int, lastFailedAt, lockedUntil *time.Time, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil
	}
	u.FailedLoginAttempts = attempts
	u.LastFailedLoginAt = lastFailedAt
	u.LockedUntil = lockedUntil
	u.Status = status
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.IsVerified = true
		u.Status = model.StatusActive
	}
	return nil
}

// put inserts a user directly, bypassing the duplicate check.
func (f *fakeUsers) put(u *model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		f.seq++
		u.ID = f.seq
	}
	f.byID[u.ID] = u
	return u
}

// fakePublisher collects published delivery events.
type fakePublisher struct {
	mu     sync.Mutex
	events []queue.DeliveryEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev queue.DeliveryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) last() queue.DeliveryEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// fakeAudit collects audit entries.
type fakeAudit struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (f *fakeAudit) Record(_ context.Context, e model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}
