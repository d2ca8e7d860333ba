package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"unisync/internal/domain/attendance"
	"unisync/internal/domain/roster"
	"unisync/internal/domain/session"
)

type attendanceRepository struct {
	db *DB
}

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) query(keep func(*attendance.Record) bool) []*attendance.Record {
	out := make([]*attendance.Record, 0)
	for _, rec := range repo.db.records {
		if keep(rec) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StudentID.String() < out[j].StudentID.String()
	})
	return out
}

func (repo *attendanceRepository) ListBySession(_ context.Context, sessionID uuid.UUID) ([]*attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpListAttendance); err != nil {
		return nil, err
	}
	return repo.query(func(r *attendance.Record) bool { return r.SessionID == sessionID }), nil
}

// BulkCreate is all-or-nothing under the lock: the failure check runs before
// anything is written.
func (repo *attendanceRepository) BulkCreate(_ context.Context, records []*attendance.Record) ([]*attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.failure(OpBulkCreate); err != nil {
		return nil, err
	}

	now := repo.db.now()
	inserted := make([]*attendance.Record, 0, len(records))
	for _, rec := range records {
		key := attendanceKey{rec.SessionID, rec.StudentID}
		if _, exists := repo.db.records[key]; exists {
			continue
		}
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.Date = session.DateOf(rec.Date)
		rec.CreatedAt = now
		cp := *rec
		repo.db.records[key] = &cp
		inserted = append(inserted, rec)
	}
	return inserted, nil
}

func (repo *attendanceRepository) TallyBySessions(_ context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]attendance.Tally, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpTallyAttendance); err != nil {
		return nil, err
	}

	wanted := make(map[uuid.UUID]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = true
	}
	tallies := make(map[uuid.UUID]attendance.Tally, len(sessionIDs))
	for _, rec := range repo.db.records {
		if !wanted[rec.SessionID] {
			continue
		}
		t := tallies[rec.SessionID]
		t.Add(rec.Status)
		tallies[rec.SessionID] = t
	}
	return tallies, nil
}

func (repo *attendanceRepository) ListByStudent(_ context.Context, courseID, studentID uuid.UUID) ([]*attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpListAttendance); err != nil {
		return nil, err
	}
	return repo.query(func(r *attendance.Record) bool {
		return r.CourseID == courseID && r.StudentID == studentID
	}), nil
}

type rosterProvider struct {
	db *DB
}

func NewRosterProvider(db *DB) roster.Provider {
	return &rosterProvider{db: db}
}

func (p *rosterProvider) ListByCourse(_ context.Context, courseID uuid.UUID) ([]roster.Entry, error) {
	p.db.mutex.RLock()
	defer p.db.mutex.RUnlock()
	if err := p.db.failure(OpListRoster); err != nil {
		return nil, err
	}
	entries := append([]roster.Entry(nil), p.db.enrollments[courseID]...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
