package enrollment

import (
	"context"

	courseService "learnhub/services/course"

	"github.com/google/uuid"
)

// WatchCatalog keeps enrollments in step with catalog writes: a deleted
// course drops its students' cached stats, and any change to a course's
// published lesson set recomputes every enrollment of that course.
func (e *Engine) WatchCatalog(catalog *courseService.Catalog) {
	catalog.OnCourseDeleted(func(ctx context.Context, enrolledUsers []uuid.UUID) {
		e.ForgetStats(ctx, enrolledUsers...)
	})
	catalog.OnLessonsChanged(func(ctx context.Context, courseID uuid.UUID) {
		if err := e.RecomputeCourse(ctx, courseID); err != nil {
			e.log.Warn("Course progress recompute failed", "course_id", courseID, "error", err)
		}
	})
}
