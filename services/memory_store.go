package services

import (
	"context"
	"slices"
	"strings"
	"sync"

	"alumni-server/models"
)

// MemoryUserStore keeps users in process memory. It backs STORE_DRIVER=memory
// and the tests; records are copied in and out so callers never share slices.
type MemoryUserStore struct {
	mu      sync.RWMutex
	users   map[string]*models.User
	order   []string
	byEmail map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Connections = slices.Clone(u.Connections)
	cp.PendingConnections = slices.Clone(u.PendingConnections)
	cp.Normalize()
	return &cp
}

func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return ErrEmailTaken
	}
	s.users[user.ID] = cloneUser(user)
	s.byEmail[user.Email] = user.ID
	s.order = append(s.order, user.ID)
	return nil
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *MemoryUserStore) FindByIDs(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, *cloneUser(u))
		}
	}
	return users, nil
}

func (s *MemoryUserStore) SearchByName(_ context.Context, query string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	users := []models.User{}
	for _, id := range s.order {
		u := s.users[id]
		if strings.Contains(strings.ToLower(u.Name), needle) {
			users = append(users, *cloneUser(u))
		}
	}
	return users, nil
}

func (s *MemoryUserStore) List(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.order))
	for _, id := range s.order {
		users = append(users, *cloneUser(s.users[id]))
	}
	return users, nil
}

func (s *MemoryUserStore) AddPending(_ context.Context, recipientID, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipient, ok := s.users[recipientID]
	if !ok {
		return ErrUserNotFound
	}
	if recipient.HasPendingFrom(requesterID) || recipient.IsConnectedTo(requesterID) {
		return ErrAlreadyRequested
	}
	recipient.PendingConnections = append(recipient.PendingConnections, requesterID)
	return nil
}

func (s *MemoryUserStore) AcceptPending(_ context.Context, recipientID, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipient, ok := s.users[recipientID]
	if !ok {
		return ErrUserNotFound
	}
	requester, ok := s.users[requesterID]
	if !ok {
		return ErrUserNotFound
	}
	if !recipient.HasPendingFrom(requesterID) {
		return ErrNotPending
	}

	recipient.PendingConnections = slices.DeleteFunc(recipient.PendingConnections, func(id string) bool {
		return id == requesterID
	})
	if !recipient.IsConnectedTo(requesterID) {
		recipient.Connections = append(recipient.Connections, requesterID)
	}
	requester.PendingConnections = slices.DeleteFunc(requester.PendingConnections, func(id string) bool {
		return id == recipientID
	})
	if !requester.IsConnectedTo(recipientID) {
		requester.Connections = append(requester.Connections, recipientID)
	}
	return nil
}

func (s *MemoryUserStore) Ping(context.Context) error {
	return nil
}
