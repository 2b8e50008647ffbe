package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/xaenox/secondbrain/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	if err := storage.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", config.Host),
		zap.String("dbname", config.DBName))
	return storage, nil
}

func (s *PostgresStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

const linkColumns = `id, user_id, url, title, summary, detailed_summary, category, tags,
	actionable_takeaway, source_type, confidence, key_entities, recipe, status,
	original_title, estimated_read_time, content_snippet, degraded, embedding, created_at`

func (s *PostgresStorage) SaveLink(ctx context.Context, link *models.Link) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	if link.Status == "" {
		link.Status = models.StatusUnread
	}

	entities, err := marshalNullable(link.KeyEntities, len(link.KeyEntities) > 0)
	if err != nil {
		return fmt.Errorf("error encoding key entities: %w", err)
	}
	recipe, err := marshalNullable(link.Recipe, link.Recipe != nil)
	if err != nil {
		return fmt.Errorf("error encoding recipe: %w", err)
	}

	query := `
		INSERT INTO links (` + linkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			detailed_summary = EXCLUDED.detailed_summary,
			category = EXCLUDED.category,
			tags = EXCLUDED.tags,
			actionable_takeaway = EXCLUDED.actionable_takeaway,
			source_type = EXCLUDED.source_type,
			confidence = EXCLUDED.confidence,
			key_entities = EXCLUDED.key_entities,
			recipe = EXCLUDED.recipe,
			status = EXCLUDED.status,
			degraded = EXCLUDED.degraded,
			embedding = EXCLUDED.embedding`

	_, err = s.db.ExecContext(ctx, query,
		link.ID,
		link.UserID,
		link.URL,
		link.Title,
		link.Summary,
		link.DetailedSummary,
		link.Category,
		pq.Array(link.Tags),
		link.ActionableTakeaway,
		link.SourceType,
		link.Confidence,
		entities,
		recipe,
		string(link.Status),
		link.OriginalTitle,
		link.EstimatedReadTime,
		link.ContentSnippet,
		link.Degraded,
		pq.Array(widen(link.Embedding)),
		link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving link: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetLink(ctx context.Context, userID int64, id string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1 AND user_id = $2`

	link, err := scanLink(s.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting link: %w", err)
	}
	return link, nil
}

func (s *PostgresStorage) ListLinks(ctx context.Context, userID int64, limit, offset int) ([]*models.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}

	rows, err := s.db.QueryContext(ctx, query, userID, limitArg, offset)
	if err != nil {
		return nil, fmt.Errorf("error querying links: %w", err)
	}
	defer rows.Close()

	links := []*models.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (s *PostgresStorage) UpdateLinkStatus(ctx context.Context, userID int64, id string, status models.LinkStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE links SET status = $1 WHERE id = $2 AND user_id = $3`,
		string(status), id, userID)
	if err != nil {
		return fmt.Errorf("error updating link status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT last_link_id, categories, tags, last_used_at FROM users WHERE id = $1`, id,
	).Scan(&user.LastLinkID, pq.Array(&user.Categories), pq.Array(&user.Tags), &user.LastUsedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return &models.User{
			ID:         id,
			Categories: []string{},
			Tags:       []string{},
			LastUsedAt: time.Now(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return user, nil
}

func (s *PostgresStorage) SetLastLink(ctx context.Context, userID int64, linkID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, last_link_id, last_used_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET last_link_id = EXCLUDED.last_link_id, last_used_at = NOW()`,
		userID, linkID)
	if err != nil {
		return fmt.Errorf("error setting last link: %w", err)
	}
	return nil
}

func (s *PostgresStorage) AddCategory(ctx context.Context, userID int64, category string) error {
	return s.addToUserArray(ctx, "categories", userID, category)
}

func (s *PostgresStorage) AddTag(ctx context.Context, userID int64, tag string) error {
	return s.addToUserArray(ctx, "tags", userID, tag)
}

// addToUserArray appends value to the named array column unless present.
// column is never user input.
func (s *PostgresStorage) addToUserArray(ctx context.Context, column string, userID int64, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO users (id, %[1]s, last_used_at)
		VALUES ($1, ARRAY[$2::TEXT], NOW())
		ON CONFLICT (id) DO UPDATE SET
			%[1]s = CASE WHEN $2 = ANY(users.%[1]s) THEN users.%[1]s ELSE array_append(users.%[1]s, $2) END,
			last_used_at = NOW()`, column)

	if _, err := s.db.ExecContext(ctx, query, userID, value); err != nil {
		s.logger.Error("Failed to update user vocabulary",
			zap.Error(err),
			zap.String("column", column),
			zap.Int64("user_id", userID))
		return fmt.Errorf("error adding to %s: %w", column, err)
	}
	return nil
}

func (s *PostgresStorage) GetUserCategories(ctx context.Context, userID int64) ([]string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Categories, nil
}

func (s *PostgresStorage) GetUserTags(ctx context.Context, userID int64) ([]string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Tags, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(row rowScanner) (*models.Link, error) {
	link := &models.Link{}
	var (
		status    string
		entities  []byte
		recipe    []byte
		embedding []float64
	)

	err := row.Scan(
		&link.ID,
		&link.UserID,
		&link.URL,
		&link.Title,
		&link.Summary,
		&link.DetailedSummary,
		&link.Category,
		pq.Array(&link.Tags),
		&link.ActionableTakeaway,
		&link.SourceType,
		&link.Confidence,
		&entities,
		&recipe,
		&status,
		&link.OriginalTitle,
		&link.EstimatedReadTime,
		&link.ContentSnippet,
		&link.Degraded,
		pq.Array(&embedding),
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	link.Status = models.LinkStatus(status)
	link.Embedding = narrow(embedding)

	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &link.KeyEntities); err != nil {
			return nil, fmt.Errorf("error decoding key entities: %w", err)
		}
	}
	if len(recipe) > 0 {
		link.Recipe = &models.Recipe{}
		if err := json.Unmarshal(recipe, link.Recipe); err != nil {
			return nil, fmt.Errorf("error decoding recipe: %w", err)
		}
	}
	return link, nil
}

// marshalNullable encodes v as JSON, or returns nil for SQL NULL when !present.
func marshalNullable(v interface{}, present bool) (interface{}, error) {
	if !present {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// lib/pq sends []byte as bytea, so JSONB columns get text.
	return string(data), nil
}

// widen converts an embedding for a DOUBLE PRECISION[] column. A nil
// vector stays nil so the column is NULL.
func widen(v []float32) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func narrow(v []float64) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
