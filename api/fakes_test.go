package api

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/billbatista/splitledger/eventlogger"
	"github.com/billbatista/splitledger/group"
	"github.com/billbatista/splitledger/session"
	"github.com/billbatista/splitledger/user"
	"github.com/google/uuid"
)

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]user.User
	email map[string]uuid.UUID
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]user.User{}, email: map[string]uuid.UUID{}}
}

func (f *fakeUsers) Register(_ context.Context, name, email, password string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.TrimSpace(name) == "":
		return nil, user.ErrBlankName
	case !strings.Contains(email, "@"):
		return nil, user.ErrInvalidEmail
	case password == "":
		return nil, user.ErrBlankPassword
	}
	if _, ok := f.email[email]; ok {
		return nil, user.ErrEmailExists
	}

	u := user.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: "hashed:" + password,
		CreatedAt:    time.Now().UTC(),
	}
	f.byID[u.ID] = u
	f.email[email] = u.ID
	return &u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.email[email]
	if !ok {
		return nil, nil
	}
	u := f.byID[id]
	return &u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) List(context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []user.User{}
	for _, u := range f.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeUsers) Resolve(_ context.Context, ids ...uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := f.byID[id]; !ok && !slices.Contains(missing, id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &user.MissingError{IDs: missing}
	}
	return nil
}

func (f *fakeUsers) VerifyPassword(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return errors.New("mismatched password")
	}
	return nil
}

type fakeSessions struct {
	mu      sync.Mutex
	byToken map[string]session.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: map[string]session.Session{}}
}

func (f *fakeSessions) Create(_ context.Context, userID uuid.UUID) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	s := session.Session{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	f.byToken[s.Token] = s
	return &s, nil
}

func (f *fakeSessions) GetByToken(_ context.Context, token string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byToken[token]
	if !ok {
		return nil, session.ErrInvalidSession
	}
	return &s, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byToken, token)
	return nil
}

type fakeGroups struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*group.Group
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{groups: map[uuid.UUID]*group.Group{}}
}

func (f *fakeGroups) Create(_ context.Context, name string, createdBy uuid.UUID, members ...uuid.UUID) (*group.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(name) == "" {
		return nil, group.ErrBlankName
	}
	now := time.Now().UTC()
	g := &group.Group{ID: uuid.New(), Name: name, CreatedBy: createdBy, CreatedAt: now}
	for _, id := range append([]uuid.UUID{createdBy}, members...) {
		if !g.HasMember(id) {
			g.Members = append(g.Members, group.Member{UserID: id, JoinedAt: now})
		}
	}
	f.groups[g.ID] = g
	out := *g
	return &out, nil
}

func (f *fakeGroups) GetByID(_ context.Context, id uuid.UUID) (*group.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return nil, group.ErrNotFound
	}
	out := *g
	out.Members = slices.Clone(g.Members)
	return &out, nil
}

func (f *fakeGroups) AddMember(_ context.Context, groupID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return group.ErrNotFound
	}
	if g.HasMember(userID) {
		return group.ErrAlreadyMember
	}
	g.Members = append(g.Members, group.Member{UserID: userID, JoinedAt: time.Now().UTC()})
	return nil
}

func (f *fakeGroups) CheckMembers(_ context.Context, groupID uuid.UUID, userIDs ...uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return group.ErrNotFound
	}
	var out []uuid.UUID
	for _, id := range userIDs {
		if !g.HasMember(id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	if len(out) > 0 {
		return &group.MembershipError{GroupID: groupID, UserIDs: out}
	}
	return nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []eventlogger.Event
}

func (r *recordedEvents) Log(e eventlogger.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
