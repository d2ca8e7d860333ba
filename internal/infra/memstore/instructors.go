package memstore

import (
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"

	"unisync/internal/domain/instructor"
)

type instructorRepository struct {
	db *DB
}

func NewInstructorRepository(db *DB) instructor.Repository {
	return &instructorRepository{db: db}
}

func (repo *instructorRepository) GetByID(_ context.Context, id uuid.UUID) (*instructor.Instructor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpInstructors); err != nil {
		return nil, err
	}

	if i, ok := repo.db.instructors[id]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, instructor.ErrNotFound
}

func (repo *instructorRepository) GetByTelegramID(_ context.Context, telegramID int64) (*instructor.Instructor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpInstructors); err != nil {
		return nil, err
	}

	for _, i := range repo.db.instructors {
		if i.TelegramID.Valid && i.TelegramID.Int64 == telegramID {
			cp := *i
			return &cp, nil
		}
	}
	return nil, instructor.ErrNotFound
}

func (repo *instructorRepository) SetTelegramID(_ context.Context, id uuid.UUID, telegramID int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.failure(OpInstructors); err != nil {
		return err
	}

	target, ok := repo.db.instructors[id]
	if !ok {
		return instructor.ErrNotFound
	}
	if telegramID != 0 {
		for _, other := range repo.db.instructors {
			if other.ID != id && other.TelegramID.Valid && other.TelegramID.Int64 == telegramID {
				return instructor.ErrTelegramIDInUse
			}
		}
	}
	target.TelegramID = sql.NullInt64{Int64: telegramID, Valid: telegramID != 0}
	target.UpdatedAt = repo.db.now()
	return nil
}

func (repo *instructorRepository) ListActive(_ context.Context) ([]*instructor.Instructor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure(OpInstructors); err != nil {
		return nil, err
	}

	out := make([]*instructor.Instructor, 0)
	for _, i := range repo.db.instructors {
		if i.IsActive {
			cp := *i
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].FullName() < out[b].FullName() })
	return out, nil
}
