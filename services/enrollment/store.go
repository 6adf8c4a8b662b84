package enrollment

import (
	"context"
	"errors"

	courseModels "learnhub/models/course"
	"learnhub/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListFilter enumerates the predicates of a user's enrollment list.
type ListFilter struct {
	Completed *bool
	Page      int
	Limit     int
}

// Store persists enrollments. Use WithTx to run its methods inside a
// transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFoundError(what + " not found")
	}
	return err
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*courseModels.Enrollment, error) {
	var enr courseModels.Enrollment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&enr).Error; err != nil {
		return nil, notFound(err, "enrollment")
	}
	return &enr, nil
}

func (s *Store) FindByUserAndCourse(ctx context.Context, userID, courseID uuid.UUID) (*courseModels.Enrollment, error) {
	var enr courseModels.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enr).Error
	if err != nil {
		return nil, notFound(err, "enrollment")
	}
	return &enr, nil
}

// LockByID loads the enrollment with SELECT ... FOR UPDATE. The lock holds
// until the surrounding transaction ends.
func (s *Store) LockByID(ctx context.Context, id uuid.UUID) (*courseModels.Enrollment, error) {
	var enr courseModels.Enrollment
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&enr).Error
	if err != nil {
		return nil, notFound(err, "enrollment")
	}
	return &enr, nil
}

func (s *Store) Create(ctx context.Context, enr *courseModels.Enrollment) error {
	return s.db.WithContext(ctx).Create(enr).Error
}

func (s *Store) Save(ctx context.Context, enr *courseModels.Enrollment) error {
	return s.db.WithContext(ctx).Save(enr).Error
}

// Delete removes the enrollment and its lesson progress.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := NewLessonProgressStore(s.db).DeleteByEnrollment(ctx, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&courseModels.Enrollment{}).Error
}

func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter) ([]courseModels.Enrollment, int64, error) {
	p := utils.NewPagination(f.Page, f.Limit)
	q := s.db.WithContext(ctx).Model(&courseModels.Enrollment{}).Where("user_id = ?", userID)
	if f.Completed != nil {
		q = q.Where("completed = ?", *f.Completed)
	}
	return page(q, p, "last_accessed_at DESC")
}

func (s *Store) ListByCourse(ctx context.Context, courseID uuid.UUID, p utils.Pagination) ([]courseModels.Enrollment, int64, error) {
	q := s.db.WithContext(ctx).Model(&courseModels.Enrollment{}).Where("course_id = ?", courseID)
	return page(q, p, "enrolled_at DESC")
}

func page(q *gorm.DB, p utils.Pagination, order string) ([]courseModels.Enrollment, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := []courseModels.Enrollment{}
	err := q.Session(&gorm.Session{}).
		Order(order).
		Offset(p.Offset()).
		Limit(p.Limit).
		Find(&items).Error
	return items, total, err
}

func (s *Store) CountByCourse(ctx context.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&courseModels.Enrollment{}).Where("course_id = ?", courseID).Count(&n).Error
	return n, err
}

// ListByCourses pages through the enrollments of the given courses, newest
// first.
func (s *Store) ListByCourses(ctx context.Context, courseIDs []uuid.UUID, p utils.Pagination) ([]courseModels.Enrollment, int64, error) {
	if len(courseIDs) == 0 {
		return []courseModels.Enrollment{}, 0, nil
	}
	q := s.db.WithContext(ctx).Model(&courseModels.Enrollment{}).Where("course_id IN ?", courseIDs)
	return page(q, p, "enrolled_at DESC")
}

// AllByUser loads every enrollment of a user for aggregate stats.
func (s *Store) AllByUser(ctx context.Context, userID uuid.UUID) ([]courseModels.Enrollment, error) {
	var items []courseModels.Enrollment
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&items).Error
	return items, err
}

// IDsAfter pages through enrollment ids in ascending order.
func (s *Store) IDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&courseModels.Enrollment{}).
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *Store) IDsByCourse(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&courseModels.Enrollment{}).
		Where("course_id = ?", courseID).
		Pluck("id", &ids).Error
	return ids, err
}
