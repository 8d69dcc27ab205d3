package memory

import (
	"maps"

	"github.com/narvanalabs/matchday/internal/models"
)

type userRecord struct {
	user         *models.User
	passwordHash []byte
}

type requestRecord struct {
	req *models.JoinRequest
	seq int64
}

type messageRecord struct {
	msg *models.ChatMessage
	seq int64
}

// state holds every table. Records are owned by the state and copied on the
// way in and out.
type state struct {
	seq          int64
	activities   map[string]*models.Activity
	activitySeq  map[string]int64
	requests     map[string]requestRecord
	messages     map[string][]messageRecord
	users        map[string]userRecord
	usersByEmail map[string]string
}

func newState() *state {
	return &state{
		activities:   make(map[string]*models.Activity),
		activitySeq:  make(map[string]int64),
		requests:     make(map[string]requestRecord),
		messages:     make(map[string][]messageRecord),
		users:        make(map[string]userRecord),
		usersByEmail: make(map[string]string),
	}
}

func (st *state) next() int64 {
	st.seq++
	return st.seq
}

// clone makes a copy deep enough to restore after a failed transaction.
// Stored records are never mutated in place, so sharing pointers is safe.
func (st *state) clone() *state {
	c := &state{
		seq:          st.seq,
		activities:   maps.Clone(st.activities),
		activitySeq:  maps.Clone(st.activitySeq),
		requests:     maps.Clone(st.requests),
		messages:     make(map[string][]messageRecord, len(st.messages)),
		users:        maps.Clone(st.users),
		usersByEmail: maps.Clone(st.usersByEmail),
	}
	for k, v := range st.messages {
		c.messages[k] = append([]messageRecord(nil), v...)
	}
	return c
}
