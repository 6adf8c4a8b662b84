package enrollment

import (
	"context"

	courseModels "learnhub/models/course"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LessonProgressStore struct {
	db *gorm.DB
}

func NewLessonProgressStore(db *gorm.DB) *LessonProgressStore {
	return &LessonProgressStore{db: db}
}

func (s *LessonProgressStore) WithTx(tx *gorm.DB) *LessonProgressStore {
	return &LessonProgressStore{db: tx}
}

func (s *LessonProgressStore) Find(ctx context.Context, enrollmentID, lessonID uuid.UUID) (*courseModels.LessonProgress, error) {
	var lp courseModels.LessonProgress
	err := s.db.WithContext(ctx).
		Where("enrollment_id = ? AND lesson_id = ?", enrollmentID, lessonID).
		First(&lp).Error
	if err != nil {
		return nil, notFound(err, "lesson progress")
	}
	return &lp, nil
}

func (s *LessonProgressStore) Create(ctx context.Context, lp *courseModels.LessonProgress) error {
	return s.db.WithContext(ctx).Create(lp).Error
}

func (s *LessonProgressStore) Save(ctx context.Context, lp *courseModels.LessonProgress) error {
	return s.db.WithContext(ctx).Save(lp).Error
}

// CountCompleted counts completed lessons of the enrollment that are still
// published, so the ratio against the published total never passes 100%.
func (s *LessonProgressStore) CountCompleted(ctx context.Context, enrollmentID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&courseModels.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
		Where("lesson_progress.enrollment_id = ? AND lesson_progress.completed = ? AND lessons.published = ?", enrollmentID, true, true).
		Count(&n).Error
	return n, err
}

// SumTimeSpent adds up the minutes of every lesson row of the enrollment.
func (s *LessonProgressStore) SumTimeSpent(ctx context.Context, enrollmentID uuid.UUID) (int64, error) {
	var minutes []int64
	err := s.db.WithContext(ctx).
		Model(&courseModels.LessonProgress{}).
		Where("enrollment_id = ?", enrollmentID).
		Pluck("time_spent_minutes", &minutes).Error
	var total int64
	for _, m := range minutes {
		total += m
	}
	return total, err
}

func (s *LessonProgressStore) ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]courseModels.LessonProgress, error) {
	items := []courseModels.LessonProgress{}
	err := s.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("last_accessed_at DESC").
		Find(&items).Error
	return items, err
}

// Recent returns the n most recently touched lessons of the enrollment.
func (s *LessonProgressStore) Recent(ctx context.Context, enrollmentID uuid.UUID, n int) ([]courseModels.LessonProgress, error) {
	items := []courseModels.LessonProgress{}
	err := s.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("last_accessed_at DESC").
		Limit(n).
		Find(&items).Error
	return items, err
}

func (s *LessonProgressStore) DeleteByEnrollment(ctx context.Context, enrollmentID uuid.UUID) error {
	return s.db.WithContext(ctx).Where("enrollment_id = ?", enrollmentID).Delete(&courseModels.LessonProgress{}).Error
}
