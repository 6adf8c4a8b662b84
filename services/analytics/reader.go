package analytics

import (
	"context"
	"time"

	"learnhub/utils"

	"github.com/google/uuid"
)

const MaxTopCoursesLimit = 100

// DailyMetric is the read shape of one course-day bucket.
type DailyMetric struct {
	CourseID         uuid.UUID `json:"course_id"`
	MetricDate       string    `json:"metric_date"`
	ViewsCount       int64     `json:"views_count"`
	EnrollmentsCount int64     `json:"enrollments_count"`
}

// MetricsReader serves metric queries read-through from the cache.
type MetricsReader struct {
	store   *MetricStore
	cache   utils.Cache
	ttl     time.Duration
	topSize int
}

// NewMetricsReader caches the first topSize ranked courses under a single key
// and slices them per request.
func NewMetricsReader(store *MetricStore, cache utils.Cache, ttl time.Duration, topSize int) *MetricsReader {
	if topSize <= 0 {
		topSize = 50
	}
	return &MetricsReader{store: store, cache: cache, ttl: ttl, topSize: topSize}
}

func (m *MetricsReader) CourseMetrics(ctx context.Context, courseID uuid.UUID) ([]DailyMetric, error) {
	key := CourseMetricsKey(courseID)
	var cached []DailyMetric
	if utils.GetJSON(ctx, m.cache, key, &cached) {
		return cached, nil
	}

	rows, err := m.store.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	out := make([]DailyMetric, 0, len(rows))
	for _, r := range rows {
		out = append(out, DailyMetric{
			CourseID:         r.CourseID,
			MetricDate:       time.Time(r.MetricDate).Format("2006-01-02"),
			ViewsCount:       r.ViewsCount,
			EnrollmentsCount: r.EnrollmentsCount,
		})
	}
	utils.SetJSON(ctx, m.cache, key, out, m.ttl)
	return out, nil
}

func (m *MetricsReader) TopCourses(ctx context.Context, limit int) ([]CourseTotals, error) {
	if limit < 1 || limit > MaxTopCoursesLimit {
		return nil, utils.ValidationError("limit must be between 1 and 100")
	}
	if limit > m.topSize {
		rows, err := m.store.TopCourses(ctx, limit)
		return rows, utils.MapDBError(err)
	}

	var ranked []CourseTotals
	if !utils.GetJSON(ctx, m.cache, TopCoursesKey, &ranked) {
		var err error
		ranked, err = m.store.TopCourses(ctx, m.topSize)
		if err != nil {
			return nil, utils.MapDBError(err)
		}
		utils.SetJSON(ctx, m.cache, TopCoursesKey, ranked, m.ttl)
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
