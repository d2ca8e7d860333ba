// Package memstore is an in-process record store used by STORE_DRIVER=memory
// and by service tests. It enforces the same unique keys as the postgres schema.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"unisync/internal/domain/attendance"
	"unisync/internal/domain/instructor"
	"unisync/internal/domain/roster"
	"unisync/internal/domain/session"
)

// Op names a store operation for failure injection.
type Op string

const (
	OpFindActive      Op = "sessions.find_active"
	OpGetSession      Op = "sessions.get"
	OpCreateSession   Op = "sessions.create"
	OpListSessions    Op = "sessions.list"
	OpFindTemplate    Op = "templates.find"
	OpListAttendance  Op = "attendance.list"
	OpBulkCreate      Op = "attendance.bulk_create"
	OpTallyAttendance Op = "attendance.tally"
	OpListRoster      Op = "roster.list"
	OpInstructors     Op = "instructors"
)

type sessionKey struct {
	courseID     uuid.UUID
	instructorID uuid.UUID
	date         time.Time
}

type attendanceKey struct {
	sessionID uuid.UUID
	studentID uuid.UUID
}

// DB holds every table behind one lock.
type DB struct {
	mutex sync.RWMutex

	sessions       map[uuid.UUID]*session.CourseSession
	sessionsByDate map[sessionKey]uuid.UUID
	templates      map[uuid.UUID]*session.RecurringTemplate
	records        map[attendanceKey]*attendance.Record
	enrollments    map[uuid.UUID][]roster.Entry
	instructors    map[uuid.UUID]*instructor.Instructor

	failures map[Op]error
	now      func() time.Time

	// BeforeCreateSession runs inside Create before the unique check, without
	// the lock held. Tests use it to line up concurrent inserts.
	BeforeCreateSession func()
}

func New() *DB {
	return &DB{
		sessions:       make(map[uuid.UUID]*session.CourseSession),
		sessionsByDate: make(map[sessionKey]uuid.UUID),
		templates:      make(map[uuid.UUID]*session.RecurringTemplate),
		records:        make(map[attendanceKey]*attendance.Record),
		enrollments:    make(map[uuid.UUID][]roster.Entry),
		instructors:    make(map[uuid.UUID]*instructor.Instructor),
		failures:       make(map[Op]error),
		now:            time.Now,
	}
}

// Fail makes op return err until Fail(op, nil) is called.
func (db *DB) Fail(op Op, err error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if err == nil {
		delete(db.failures, op)
		return
	}
	db.failures[op] = err
}

// failure must be called with the lock held.
func (db *DB) failure(op Op) error {
	return db.failures[op]
}

// AddTemplate seeds the weekly timetable.
func (db *DB) AddTemplate(t session.RecurringTemplate) *session.RecurringTemplate {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	db.templates[t.ID] = &t
	return &t
}

// Enroll adds students to a course roster.
func (db *DB) Enroll(courseID uuid.UUID, entries ...roster.Entry) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.enrollments[courseID] = append(db.enrollments[courseID], entries...)
}

// AddInstructor seeds the instructor directory.
func (db *DB) AddInstructor(i instructor.Instructor) *instructor.Instructor {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = db.now()
		i.UpdatedAt = i.CreatedAt
	}
	db.instructors[i.ID] = &i
	cp := i
	return &cp
}

// SessionCount returns how many class sessions exist; handy in tests.
func (db *DB) SessionCount() int {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return len(db.sessions)
}

// RecordCount returns how many attendance records exist.
func (db *DB) RecordCount() int {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return len(db.records)
}
