package storage

import (
	"context"
	"errors"

	"github.com/xaenox/secondbrain/internal/models"
)

var ErrNotFound = errors.New("not found")

type Storage interface {
	// Link methods
	SaveLink(ctx context.Context, link *models.Link) error
	GetLink(ctx context.Context, userID int64, id string) (*models.Link, error)
	ListLinks(ctx context.Context, userID int64, limit, offset int) ([]*models.Link, error)
	UpdateLinkStatus(ctx context.Context, userID int64, id string, status models.LinkStatus) error

	// User methods
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SetLastLink(ctx context.Context, userID int64, linkID string) error
	AddCategory(ctx context.Context, userID int64, category string) error
	AddTag(ctx context.Context, userID int64, tag string) error
	GetUserCategories(ctx context.Context, userID int64) ([]string, error)
	GetUserTags(ctx context.Context, userID int64) ([]string, error)

	Close() error
}
