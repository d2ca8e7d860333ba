package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"unisync/internal/domain/session"
)

type sessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db}
}

func copySession(s *session.CourseSession) *session.CourseSession {
	cp := *s
	return &cp
}

func (repo *sessionRepository) GetByID(_ context.Context, id uuid.UUID) (*session.CourseSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpGetSession); err != nil {
		return nil, err
	}

	if s, ok := repo.db.sessions[id]; ok {
		return copySession(s), nil
	}
	return nil, session.ErrNotFound
}

func (repo *sessionRepository) FindActive(_ context.Context, courseID, instructorID uuid.UUID, date time.Time, at session.TimeOfDay) (*session.CourseSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpFindActive); err != nil {
		return nil, err
	}

	id, ok := repo.db.sessionsByDate[sessionKey{courseID, instructorID, session.DateOf(date)}]
	if !ok {
		return nil, session.ErrNotFound
	}
	s := repo.db.sessions[id]
	if !s.Contains(at) {
		return nil, session.ErrNotFound
	}
	return copySession(s), nil
}

func (repo *sessionRepository) GetByDate(_ context.Context, courseID, instructorID uuid.UUID, date time.Time) (*session.CourseSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpGetSession); err != nil {
		return nil, err
	}

	id, ok := repo.db.sessionsByDate[sessionKey{courseID, instructorID, session.DateOf(date)}]
	if !ok {
		return nil, session.ErrNotFound
	}
	return copySession(repo.db.sessions[id]), nil
}

func (repo *sessionRepository) Create(_ context.Context, s *session.CourseSession) error {
	if hook := repo.db.BeforeCreateSession; hook != nil {
		hook()
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.failure(OpCreateSession); err != nil {
		return err
	}

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Date = session.DateOf(s.Date)
	key := sessionKey{s.CourseID, s.InstructorID, s.Date}
	if _, exists := repo.db.sessionsByDate[key]; exists {
		return session.ErrDuplicate
	}
	s.CreatedAt = repo.db.now()
	repo.db.sessions[s.ID] = copySession(s)
	repo.db.sessionsByDate[key] = s.ID
	return nil
}

func (repo *sessionRepository) list(keep func(*session.CourseSession) bool) ([]*session.CourseSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpListSessions); err != nil {
		return nil, err
	}

	out := make([]*session.CourseSession, 0)
	for _, s := range repo.db.sessions {
		if keep(s) {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (repo *sessionRepository) ListBetween(_ context.Context, courseID, instructorID uuid.UUID, from, to time.Time) ([]*session.CourseSession, error) {
	from, to = session.DateOf(from), session.DateOf(to)
	return repo.list(func(s *session.CourseSession) bool {
		return s.CourseID == courseID && s.InstructorID == instructorID &&
			!s.Date.Before(from) && s.Date.Before(to)
	})
}

func (repo *sessionRepository) ListByCourse(_ context.Context, courseID uuid.UUID, through time.Time) ([]*session.CourseSession, error) {
	through = session.DateOf(through)
	return repo.list(func(s *session.CourseSession) bool {
		return s.CourseID == courseID && !s.Date.After(through)
	})
}

type templateRepository struct {
	db *DB
}

func NewTemplateRepository(db *DB) session.TemplateRepository {
	return &templateRepository{db: db}
}

func (repo *templateRepository) FindForDay(_ context.Context, courseID, instructorID uuid.UUID, day time.Weekday) (*session.RecurringTemplate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpFindTemplate); err != nil {
		return nil, err
	}

	for _, t := range repo.db.templates {
		if t.CourseID == courseID && t.InstructorID == instructorID && t.DayOfWeek == day {
			cp := *t
			return &cp, nil
		}
	}
	return nil, session.ErrTemplateNotFound
}

func (repo *templateRepository) ListForDay(_ context.Context, day time.Weekday) ([]*session.RecurringTemplate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpFindTemplate); err != nil {
		return nil, err
	}

	out := make([]*session.RecurringTemplate, 0)
	for _, t := range repo.db.templates {
		if t.DayOfWeek == day {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

// AddSession seeds an explicitly scheduled session, enforcing the same key as Create.
func (db *DB) AddSession(s session.CourseSession) (*session.CourseSession, error) {
	repo := &sessionRepository{db: db}
	if err := repo.Create(context.Background(), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
