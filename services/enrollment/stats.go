package enrollment

import (
	"context"

	"learnhub/models"
	courseModels "learnhub/models/course"
	courseService "learnhub/services/course"
	"learnhub/utils"

	"github.com/google/uuid"
)

func StatsKey(userID uuid.UUID) string {
	return "enrollment_stats:" + userID.String()
}

type Stats struct {
	TotalEnrollments      int64   `json:"total_enrollments"`
	ActiveEnrollments     int64   `json:"active_enrollments"`
	CompletedEnrollments  int64   `json:"completed_enrollments"`
	AverageProgress       float64 `json:"average_progress"`
	TotalTimeSpentMinutes int64   `json:"total_time_spent_minutes"`
}

type Page struct {
	Items []courseModels.Enrollment `json:"items"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
	Pages int                       `json:"pages"`
	Stats *Stats                    `json:"stats,omitempty"`
}

// CourseEnrollments groups a page of an instructor's enrollments by course.
// TotalEnrollments is the course's overall count, not the group size.
type CourseEnrollments struct {
	CourseID         uuid.UUID                 `json:"course_id"`
	CourseTitle      string                    `json:"course_title"`
	TotalEnrollments int64                     `json:"total_enrollments"`
	Enrollments      []courseModels.Enrollment `json:"enrollments"`
}

type InstructorPage struct {
	Courses []CourseEnrollments `json:"courses"`
	Total   int64               `json:"total"`
	Page    int                 `json:"page"`
	Limit   int                 `json:"limit"`
	Pages   int                 `json:"pages"`
}

// UserStats aggregates a user's enrollments, read-through the cache.
func (e *Engine) UserStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	key := StatsKey(userID)
	var cached Stats
	if utils.GetJSON(ctx, e.cache, key, &cached) {
		return &cached, nil
	}

	items, err := e.enrollments.AllByUser(ctx, userID)
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	stats := &Stats{TotalEnrollments: int64(len(items))}
	var progressSum float64
	for _, enr := range items {
		if enr.Completed {
			stats.CompletedEnrollments++
		} else {
			stats.ActiveEnrollments++
		}
		progressSum += enr.ProgressPercentage
		stats.TotalTimeSpentMinutes += enr.TotalTimeSpentMinutes
	}
	if len(items) > 0 {
		stats.AverageProgress = utils.Round2(progressSum / float64(len(items)))
	}

	utils.SetJSON(ctx, e.cache, key, stats, e.statsTTL)
	return stats, nil
}

// ListForUser pages through the user's enrollments, most recently accessed
// first, and attaches the user's stats.
func (e *Engine) ListForUser(ctx context.Context, userID uuid.UUID, f ListFilter) (*Page, error) {
	p := utils.NewPagination(f.Page, f.Limit)
	f.Page, f.Limit = p.Page, p.Limit
	items, total, err := e.enrollments.ListByUser(ctx, userID, f)
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	stats, err := e.UserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: p.Page, Limit: p.Limit, Pages: p.Pages(total), Stats: stats}, nil
}

// ListForCourse is the owning instructor's (or an admin's) view of a
// course's enrollments.
func (e *Engine) ListForCourse(ctx context.Context, viewer models.Identity, courseID uuid.UUID, page, limit int) (*Page, error) {
	var course courseModels.Course
	if err := e.db.WithContext(ctx).Where("id = ?", courseID).First(&course).Error; err != nil {
		return nil, utils.MapDBError(notFound(err, "course"))
	}
	if !courseService.CanManage(viewer, course.InstructorID) {
		return nil, utils.ForbiddenError("not the course owner")
	}

	p := utils.NewPagination(page, limit)
	items, total, err := e.enrollments.ListByCourse(ctx, courseID, p)
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	return &Page{Items: items, Total: total, Page: p.Page, Limit: p.Limit, Pages: p.Pages(total)}, nil
}

// ListForInstructor pages through the enrollments of every course the
// viewer owns and groups the page by course, in order of first appearance.
func (e *Engine) ListForInstructor(ctx context.Context, viewer models.Identity, page, limit int) (*InstructorPage, error) {
	if viewer.Role != models.RoleInstructor && !viewer.IsAdmin() {
		return nil, utils.ForbiddenError("instructors only")
	}

	var courses []courseModels.Course
	if err := e.db.WithContext(ctx).
		Where("instructor_id = ?", viewer.UserID).
		Find(&courses).Error; err != nil {
		return nil, utils.MapDBError(err)
	}
	ids := make([]uuid.UUID, 0, len(courses))
	byID := make(map[uuid.UUID]courseModels.Course, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	p := utils.NewPagination(page, limit)
	items, total, err := e.enrollments.ListByCourses(ctx, ids, p)
	if err != nil {
		return nil, utils.MapDBError(err)
	}

	groups := []CourseEnrollments{}
	index := map[uuid.UUID]int{}
	for _, enr := range items {
		i, ok := index[enr.CourseID]
		if !ok {
			c := byID[enr.CourseID]
			i = len(groups)
			index[enr.CourseID] = i
			groups = append(groups, CourseEnrollments{
				CourseID:         c.ID,
				CourseTitle:      c.Title,
				TotalEnrollments: c.TotalEnrollments,
			})
		}
		groups[i].Enrollments = append(groups[i].Enrollments, enr)
	}
	return &InstructorPage{Courses: groups, Total: total, Page: p.Page, Limit: p.Limit, Pages: p.Pages(total)}, nil
}
