package analytics

import (
	"context"
	"fmt"
	"time"

	"learnhub/models"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CourseTotals is one row of the top-courses ranking.
type CourseTotals struct {
	CourseID         uuid.UUID `json:"course_id"`
	TotalViews       int64     `json:"total_views"`
	TotalEnrollments int64     `json:"total_enrollments"`
}

// DayOf returns the UTC day bucket an instant falls into.
func DayOf(t time.Time) time.Time {
	return now.With(t.UTC()).BeginningOfDay()
}

type MetricStore struct {
	db *gorm.DB
}

func NewMetricStore(db *gorm.DB) *MetricStore {
	return &MetricStore{db: db}
}

// Increment adds one to the counter for eventType in the (course, day)
// bucket. It must run inside the caller's transaction. The bucket row is
// created with ON CONFLICT DO NOTHING and the counter is bumped with a single
// UPDATE, so concurrent callers neither lose counts nor trip the unique index.
func (s *MetricStore) Increment(tx *gorm.DB, courseID uuid.UUID, day time.Time, eventType models.EventType) error {
	column, err := counterColumn(eventType)
	if err != nil {
		return err
	}
	metricDate := datatypes.Date(DayOf(day))

	bucket := models.CourseDailyMetric{CourseID: courseID, MetricDate: metricDate}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "metric_date"}},
		DoNothing: true,
	}).Create(&bucket).Error; err != nil {
		return err
	}

	res := tx.Model(&models.CourseDailyMetric{}).
		Where("course_id = ? AND metric_date = ?", courseID, metricDate).
		Updates(map[string]interface{}{
			column:       gorm.Expr(column + " + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("metric bucket for course %s on %s: %d rows updated", courseID, DayOf(day).Format("2006-01-02"), res.RowsAffected)
	}
	return nil
}

func counterColumn(eventType models.EventType) (string, error) {
	switch eventType {
	case models.EventView:
		return "views_count", nil
	case models.EventEnroll:
		return "enrollments_count", nil
	}
	return "", fmt.Errorf("unknown event type %q", eventType)
}

// ListByCourse returns every daily bucket of a course, newest day first.
func (s *MetricStore) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.CourseDailyMetric, error) {
	var rows []models.CourseDailyMetric
	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("metric_date DESC").
		Find(&rows).Error
	return rows, err
}

// TopCourses ranks courses by total views across all days.
func (s *MetricStore) TopCourses(ctx context.Context, limit int) ([]CourseTotals, error) {
	rows := []CourseTotals{}
	err := s.db.WithContext(ctx).
		Model(&models.CourseDailyMetric{}).
		Select("course_id, SUM(views_count) AS total_views, SUM(enrollments_count) AS total_enrollments").
		Group("course_id").
		Order("total_views DESC, total_enrollments DESC, course_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
