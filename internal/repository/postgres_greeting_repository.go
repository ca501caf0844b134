package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sebasr/greetcard-service/internal/database"
	"github.com/sebasr/greetcard-service/internal/models"
)

// SQLSTATE codes mapped to repository errors
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgStringTooLong   = "22001"
)

// PostgresGreetingRepository implements GreetingRepository using PostgreSQL
type PostgresGreetingRepository struct {
	db *database.DB
}

// NewPostgresGreetingRepository creates a new PostgreSQL greeting repository
func NewPostgresGreetingRepository(db *database.DB) *PostgresGreetingRepository {
	return &PostgresGreetingRepository{db: db}
}

// Create inserts a greeting row; created_at comes from the column default
func (r *PostgresGreetingRepository) Create(ctx context.Context, g *models.Greeting) error {
	query := `
		INSERT INTO greetings (
			id, sender, receiver, message, day_index,
			subtitle, quote, memories
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	memories := g.Extras.Memories
	if memories == nil {
		memories = []string{}
	}
	memoriesJSON, err := json.Marshal(memories)
	if err != nil {
		return fmt.Errorf("failed to encode memories: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		g.ID, g.Sender, g.Receiver, g.Message, g.DayIndex,
		nullString(g.Extras.Subtitle), nullString(g.Extras.Quote), string(memoriesJSON),
	).Scan(&g.CreatedAt)

	if err != nil {
		if hasSQLState(err, pgUniqueViolation) {
			return ErrGreetingExists
		}
		if hasSQLState(err, pgCheckViolation, pgStringTooLong) {
			return fmt.Errorf("%w: %v", ErrGreetingInvalid, err)
		}
		return fmt.Errorf("failed to insert greeting: %w", err)
	}

	g.CreatedAt = g.CreatedAt.UTC()
	return nil
}

// GetByID retrieves a greeting by its identifier
func (r *PostgresGreetingRepository) GetByID(ctx context.Context, id string) (*models.Greeting, error) {
	query := `
		SELECT
			id, sender, receiver, message, day_index,
			subtitle, quote, memories, created_at
		FROM greetings
		WHERE id = $1
	`

	var (
		g            models.Greeting
		dayIndex     sql.NullInt32
		subtitle     sql.NullString
		quote        sql.NullString
		memoriesJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID, &g.Sender, &g.Receiver, &g.Message, &dayIndex,
		&subtitle, &quote, &memoriesJSON, &g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGreetingNotFound
		}
		return nil, fmt.Errorf("failed to query greeting: %w", err)
	}

	if dayIndex.Valid {
		day := int(dayIndex.Int32)
		g.DayIndex = &day
	}
	g.Extras.Subtitle = subtitle.String
	g.Extras.Quote = quote.String

	if len(memoriesJSON) > 0 {
		if err := json.Unmarshal(memoriesJSON, &g.Extras.Memories); err != nil {
			return nil, fmt.Errorf("failed to decode memories: %w", err)
		}
		if len(g.Extras.Memories) == 0 {
			g.Extras.Memories = nil
		}
	}

	g.CreatedAt = g.CreatedAt.UTC()
	return &g, nil
}

// HealthCheck reports database connectivity
func (r *PostgresGreetingRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// hasSQLState reports whether err is a PostgreSQL error with one of the given codes
func hasSQLState(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, code := range codes {
		if pgErr.Code == code {
			return true
		}
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
