package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/secondbrain/internal/models"
)

type MemoryStorage struct {
	mu    sync.RWMutex
	users map[int64]*models.User
	links map[string]*models.Link
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users: make(map[int64]*models.User),
		links: make(map[string]*models.Link),
	}
}

// Link methods
func (s *MemoryStorage) SaveLink(ctx context.Context, link *models.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	if link.Status == "" {
		link.Status = models.StatusUnread
	}

	stored := *link
	s.links[link.ID] = &stored
	return nil
}

func (s *MemoryStorage) GetLink(ctx context.Context, userID int64, id string) (*models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, exists := s.links[id]
	if !exists || link.UserID != userID {
		return nil, ErrNotFound
	}
	result := *link
	return &result, nil
}

func (s *MemoryStorage) ListLinks(ctx context.Context, userID int64, limit, offset int) ([]*models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var links []*models.Link
	for _, link := range s.links {
		if link.UserID == userID {
			copied := *link
			links = append(links, &copied)
		}
	}

	// Newest first
	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})

	if offset >= len(links) {
		return []*models.Link{}, nil
	}
	end := len(links)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return links[offset:end], nil
}

func (s *MemoryStorage) UpdateLinkStatus(ctx context.Context, userID int64, id string, status models.LinkStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, exists := s.links[id]
	if !exists || link.UserID != userID {
		return ErrNotFound
	}
	link.Status = status
	return nil
}

// User methods
func (s *MemoryStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, exists := s.users[id]; exists {
		result := *user
		return &result, nil
	}
	return &models.User{
		ID:         id,
		Categories: []string{},
		Tags:       []string{},
		LastUsedAt: time.Now(),
	}, nil
}

// user returns the stored user, creating it if needed. Callers hold s.mu.
func (s *MemoryStorage) user(id int64) *models.User {
	user, exists := s.users[id]
	if !exists {
		user = &models.User{
			ID:         id,
			Categories: []string{},
			Tags:       []string{},
		}
		s.users[id] = user
	}
	user.LastUsedAt = time.Now()
	return user
}

func (s *MemoryStorage) SetLastLink(ctx context.Context, userID int64, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user(userID).LastLinkID = linkID
	return nil
}

func (s *MemoryStorage) AddCategory(ctx context.Context, userID int64, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.user(userID)
	user.Categories = appendUnique(user.Categories, category)
	return nil
}

func (s *MemoryStorage) AddTag(ctx context.Context, userID int64, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.user(userID)
	user.Tags = appendUnique(user.Tags, tag)
	return nil
}

func (s *MemoryStorage) GetUserCategories(ctx context.Context, userID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, exists := s.users[userID]; exists {
		return append([]string{}, user.Categories...), nil
	}
	return []string{}, nil
}

func (s *MemoryStorage) GetUserTags(ctx context.Context, userID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, exists := s.users[userID]; exists {
		return append([]string{}, user.Tags...), nil
	}
	return []string{}, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
