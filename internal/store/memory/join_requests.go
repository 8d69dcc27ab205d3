package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/matchday/internal/models"
	"github.com/narvanalabs/matchday/internal/store"
)

type joinRequestStore struct {
	s *Store
}

func (j *joinRequestStore) Create(ctx context.Context, request *models.JoinRequest) error {
	j.s.lock()
	defer j.s.unlock()

	if request.Status == "" {
		request.Status = models.JoinRequestStatusPending
	}
	if request.IsPending() && j.hasPending(request.ActivityID, request.RespondentID) {
		return store.ErrDuplicatePending
	}
	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}

	j.s.st.requests[request.ID] = requestRecord{req: request.Clone(), seq: j.s.st.next()}
	return nil
}

func (j *joinRequestStore) Get(ctx context.Context, id string) (*models.JoinRequest, error) {
	j.s.lock()
	defer j.s.unlock()

	rec, ok := j.s.st.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec.req.Clone(), nil
}

func (j *joinRequestStore) ListByActivity(ctx context.Context, activityID string) ([]*models.JoinRequest, error) {
	recs := j.collect(activityID, func(*models.JoinRequest) bool { return true })
	sort.Slice(recs, func(a, b int) bool { return recs[a].seq < recs[b].seq })
	return unwrapRequests(recs), nil
}

func (j *joinRequestStore) ListAccepted(ctx context.Context, activityID string) ([]*models.JoinRequest, error) {
	recs := j.collect(activityID, (*models.JoinRequest).IsAccepted)
	sort.Slice(recs, func(a, b int) bool {
		ta, tb := decidedAt(recs[a].req), decidedAt(recs[b].req)
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return recs[a].seq < recs[b].seq
	})
	return unwrapRequests(recs), nil
}

func (j *joinRequestStore) HasPending(ctx context.Context, activityID, respondentID string) (bool, error) {
	j.s.lock()
	defer j.s.unlock()
	return j.hasPending(activityID, respondentID), nil
}

func (j *joinRequestStore) Decide(ctx context.Context, request *models.JoinRequest) error {
	j.s.lock()
	defer j.s.unlock()

	rec, ok := j.s.st.requests[request.ID]
	if !ok {
		return store.ErrNotFound
	}
	if !rec.req.IsPending() {
		return store.ErrConcurrentModification
	}

	updated := rec.req.Clone()
	updated.Status = request.Status
	updated.DecidedAt = request.DecidedAt
	if updated.DecidedAt == nil {
		now := time.Now().UTC()
		updated.DecidedAt = &now
		request.DecidedAt = &now
	}
	j.s.st.requests[request.ID] = requestRecord{req: updated, seq: rec.seq}
	return nil
}

func (j *joinRequestStore) hasPending(activityID, respondentID string) bool {
	for _, rec := range j.s.st.requests {
		if rec.req.ActivityID == activityID && rec.req.RespondentID == respondentID && rec.req.IsPending() {
			return true
		}
	}
	return false
}

func (j *joinRequestStore) collect(activityID string, match func(*models.JoinRequest) bool) []requestRecord {
	j.s.lock()
	defer j.s.unlock()

	var out []requestRecord
	for _, rec := range j.s.st.requests {
		if rec.req.ActivityID == activityID && match(rec.req) {
			out = append(out, requestRecord{req: rec.req.Clone(), seq: rec.seq})
		}
	}
	return out
}

func unwrapRequests(recs []requestRecord) []*models.JoinRequest {
	out := make([]*models.JoinRequest, len(recs))
	for i, rec := range recs {
		out[i] = rec.req
	}
	return out
}

func decidedAt(r *models.JoinRequest) time.Time {
	if r.DecidedAt == nil {
		return time.Time{}
	}
	return *r.DecidedAt
}
