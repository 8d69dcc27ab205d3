package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
)

// JoinRequestStore implements store.JoinRequestStore using PostgreSQL.
type JoinRequestStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *JoinRequestStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const joinRequestColumns = `id, activity_id, respondent_id, respondent_name, respondent_photo_url,
	number_of_participants, status, created_at, decided_at`

// Create creates a new join request.
func (s *JoinRequestStore) Create(ctx context.Context, request *models.JoinRequest) error {
	query := `
		INSERT INTO join_requests (id, activity_id, respondent_id, respondent_name, respondent_photo_url,
			number_of_participants, status, created_at, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	if request.Status == "" {
		request.Status = models.JoinRequestStatusPending
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}

	_, err := s.conn().ExecContext(ctx, query,
		request.ID,
		request.ActivityID,
		request.RespondentID,
		request.RespondentName,
		request.RespondentPhotoURL,
		request.NumberOfParticipants,
		string(request.Status),
		request.CreatedAt,
		request.DecidedAt,
	)
	if err != nil {
		if uniqueViolationOn(err, constraintOnePending) {
			return store.ErrDuplicatePending
		}
		return fmt.Errorf("inserting join request: %w", err)
	}

	return nil
}

// Get retrieves a join request by ID.
func (s *JoinRequestStore) Get(ctx context.Context, id string) (*models.JoinRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}

	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE id = $1`

	request, err := scanJoinRequest(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("querying join request: %w", err)
	}
	return request, nil
}

// ListByActivity retrieves all requests for an activity in arrival order.
func (s *JoinRequestStore) ListByActivity(ctx context.Context, activityID string) ([]*models.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests
		WHERE activity_id::text = $1
		ORDER BY seq`

	return s.list(ctx, query, activityID)
}

// ListAccepted retrieves accepted requests in acceptance order.
func (s *JoinRequestStore) ListAccepted(ctx context.Context, activityID string) ([]*models.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests
		WHERE activity_id::text = $1 AND status = $2
		ORDER BY decided_at, seq`

	return s.list(ctx, query, activityID, string(models.JoinRequestStatusAccepted))
}

// HasPending reports whether the respondent has a pending request for the activity.
func (s *JoinRequestStore) HasPending(ctx context.Context, activityID, respondentID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM join_requests
			WHERE activity_id::text = $1 AND respondent_id::text = $2 AND status = $3
		)`

	var exists bool
	err := s.conn().QueryRowContext(ctx, query, activityID, respondentID,
		string(models.JoinRequestStatusPending)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking pending request: %w", err)
	}
	return exists, nil
}

// Decide records a decision on a request that is still pending.
func (s *JoinRequestStore) Decide(ctx context.Context, request *models.JoinRequest) error {
	query := `
		UPDATE join_requests
		SET status = $2, decided_at = $3
		WHERE id = $1 AND status = $4`

	if request.DecidedAt == nil {
		now := time.Now().UTC()
		request.DecidedAt = &now
	}

	result, err := s.conn().ExecContext(ctx, query,
		request.ID,
		string(request.Status),
		*request.DecidedAt,
		string(models.JoinRequestStatusPending),
	)
	if err != nil {
		return fmt.Errorf("updating join request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM join_requests WHERE id = $1)`
		if err := s.conn().QueryRowContext(ctx, checkQuery, request.ID).Scan(&exists); err != nil {
			return fmt.Errorf("checking join request existence: %w", err)
		}
		if !exists {
			return store.ErrNotFound
		}
		return store.ErrConcurrentModification
	}

	return nil
}

func (s *JoinRequestStore) list(ctx context.Context, query string, args ...any) ([]*models.JoinRequest, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying join requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.JoinRequest
	for rows.Next() {
		request, err := scanJoinRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning join request: %w", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating join requests: %w", err)
	}

	return requests, nil
}

func scanJoinRequest(row rowScanner) (*models.JoinRequest, error) {
	r := &models.JoinRequest{}
	var status string
	var decidedAt sql.NullTime
	err := row.Scan(
		&r.ID,
		&r.ActivityID,
		&r.RespondentID,
		&r.RespondentName,
		&r.RespondentPhotoURL,
		&r.NumberOfParticipants,
		&status,
		&r.CreatedAt,
		&decidedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = models.JoinRequestStatus(status)
	if decidedAt.Valid {
		t := decidedAt.Time
		r.DecidedAt = &t
	}
	return r, nil
}
