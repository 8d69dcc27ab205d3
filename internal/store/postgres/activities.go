package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
)

// ActivityStore implements store.ActivityStore using PostgreSQL.
type ActivityStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *ActivityStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const activityColumns = `id, organizer_id, organizer_name, organizer_photo_url, sport, location,
	scheduled_at, total_players, players_needed, status, participant_ids, version, created_at, updated_at`

// Create creates a new activity.
func (s *ActivityStore) Create(ctx context.Context, activity *models.Activity) error {
	query := `
		INSERT INTO activities (` + activityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = now
	if activity.Version == 0 {
		activity.Version = 1
	}
	if activity.ParticipantIDs == nil {
		activity.ParticipantIDs = []string{}
	}

	_, err := s.conn().ExecContext(ctx, query,
		activity.ID,
		activity.OrganizerID,
		activity.OrganizerName,
		activity.OrganizerPhotoURL,
		activity.Sport,
		activity.Location,
		activity.ScheduledAt,
		activity.TotalPlayers,
		activity.PlayersNeeded,
		string(activity.Status),
		pq.Array(activity.ParticipantIDs),
		activity.Version,
		activity.CreatedAt,
		activity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}

	return nil
}

// Get retrieves an activity by ID.
func (s *ActivityStore) Get(ctx context.Context, id string) (*models.Activity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}

	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`

	activity, err := scanActivity(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	return activity, nil
}

// Update writes the mutable fields with optimistic locking.
func (s *ActivityStore) Update(ctx context.Context, activity *models.Activity) error {
	query := `
		UPDATE activities
		SET status = $2, participant_ids = $3, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $5`

	updatedAt := time.Now().UTC()

	result, err := s.conn().ExecContext(ctx, query,
		activity.ID,
		string(activity.Status),
		pq.Array(activity.ParticipantIDs),
		updatedAt,
		activity.Version,
	)
	if err != nil {
		return fmt.Errorf("updating activity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish a missing activity from a version mismatch
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM activities WHERE id = $1)`
		if err := s.conn().QueryRowContext(ctx, checkQuery, activity.ID).Scan(&exists); err != nil {
			return fmt.Errorf("checking activity existence: %w", err)
		}
		if !exists {
			return store.ErrNotFound
		}
		return store.ErrConcurrentModification
	}

	activity.Version++
	activity.UpdatedAt = updatedAt
	return nil
}

// ListOpen retrieves open activities matching the filter.
func (s *ActivityStore) ListOpen(ctx context.Context, filter store.ActivityFilter) ([]*models.Activity, error) {
	conds := []string{"status = $1"}
	args := []any{string(models.ActivityStatusOpen)}

	if sport := models.NormalizeSport(filter.Sport); sport != "" {
		args = append(args, sport)
		conds = append(conds, fmt.Sprintf("lower(trim(sport)) = $%d", len(args)))
	}
	if location := strings.TrimSpace(filter.Location); location != "" {
		args = append(args, "%"+escapeLike(location)+"%")
		conds = append(conds, fmt.Sprintf("location ILIKE $%d", len(args)))
	}

	query := `SELECT ` + activityColumns + ` FROM activities
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY scheduled_at, created_at`

	return s.list(ctx, query, args...)
}

// ListByOrganizer retrieves activities organized by a user.
func (s *ActivityStore) ListByOrganizer(ctx context.Context, userID string) ([]*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities
		WHERE organizer_id::text = $1
		ORDER BY scheduled_at, created_at`

	return s.list(ctx, query, userID)
}

// ListByParticipant retrieves activities whose participant set contains the user.
func (s *ActivityStore) ListByParticipant(ctx context.Context, userID string, statuses ...models.ActivityStatus) ([]*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities
		WHERE $1 = ANY(participant_ids)`
	args := []any{userID}

	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, st := range statuses {
			names[i] = string(st)
		}
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY scheduled_at, created_at`

	return s.list(ctx, query, args...)
}

func (s *ActivityStore) list(ctx context.Context, query string, args ...any) ([]*models.Activity, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activities: %w", err)
	}

	return activities, nil
}

func scanActivity(row rowScanner) (*models.Activity, error) {
	a := &models.Activity{}
	var status string
	err := row.Scan(
		&a.ID,
		&a.OrganizerID,
		&a.OrganizerName,
		&a.OrganizerPhotoURL,
		&a.Sport,
		&a.Location,
		&a.ScheduledAt,
		&a.TotalPlayers,
		&a.PlayersNeeded,
		&status,
		pq.Array(&a.ParticipantIDs),
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.Status, err = models.ParseActivityStatus(status); err != nil {
		return nil, fmt.Errorf("activity %s: %w", a.ID, err)
	}
	if a.ParticipantIDs == nil {
		a.ParticipantIDs = []string{}
	}
	return a, nil
}

// escapeLike escapes the LIKE wildcards in s.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
