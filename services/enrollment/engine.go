package enrollment

import (
	"context"
	"errors"
	"time"

	"learnhub/models"
	courseModels "learnhub/models/course"
	courseService "learnhub/services/course"
	"learnhub/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const recentActivityLimit = 5

type ProgressUpdate struct {
	EnrollmentID     uuid.UUID
	LessonID         uuid.UUID
	Completed        bool
	TimeSpentMinutes int64
}

type ProgressResult struct {
	LessonProgress *courseModels.LessonProgress `json:"lesson_progress"`
	Enrollment     *courseModels.Enrollment     `json:"enrollment"`
}

type ProgressSummary struct {
	Enrollment            *courseModels.Enrollment      `json:"enrollment"`
	TotalLessons          int64                         `json:"total_lessons"`
	CompletedLessons      int64                         `json:"completed_lessons"`
	ProgressPercentage    float64                       `json:"progress_percentage"`
	TotalTimeSpentMinutes int64                         `json:"total_time_spent_minutes"`
	RecentActivity        []courseModels.LessonProgress `json:"recent_activity"`
}

// Engine owns every write to enrollments and lesson progress. Writes to a
// single enrollment are serialized by a row lock on it.
type Engine struct {
	db          *gorm.DB
	enrollments *Store
	progress    *LessonProgressStore
	cache       utils.Cache
	statsTTL    time.Duration
	notifier    *CompletionNotifier
	log         *utils.Logger
	now         func() time.Time
}

func NewEngine(db *gorm.DB, cache utils.Cache, statsTTL time.Duration, log *utils.Logger) *Engine {
	return &Engine{
		db:          db,
		enrollments: NewStore(db),
		progress:    NewLessonProgressStore(db),
		cache:       cache,
		statsTTL:    statsTTL,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier enables completion emails.
func (e *Engine) SetNotifier(n *CompletionNotifier) {
	e.notifier = n
}

// Enroll returns the viewer's enrollment in the course, creating it on the
// first call. created reports whether this call made the row.
func (e *Engine) Enroll(ctx context.Context, viewer models.Identity, courseID uuid.UUID) (*courseModels.Enrollment, bool, error) {
	var course courseModels.Course
	if err := e.db.WithContext(ctx).Where("id = ?", courseID).First(&course).Error; err != nil {
		return nil, false, utils.MapDBError(notFound(err, "course"))
	}
	if !courseService.VisibleTo(viewer.Role, viewer.UserID, course.InstructorID, course.Published) {
		return nil, false, utils.ForbiddenError("course is not published")
	}

	existing, err := e.enrollments.FindByUserAndCourse(ctx, viewer.UserID, courseID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return nil, false, utils.MapDBError(err)
	}

	now := e.now()
	enr := &courseModels.Enrollment{
		UserID:         viewer.UserID,
		CourseID:       courseID,
		EnrolledAt:     now,
		LastAccessedAt: now,
	}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.enrollments.WithTx(tx).Create(ctx, enr); err != nil {
			return err
		}
		return tx.Model(&courseModels.Course{}).
			Where("id = ?", courseID).
			UpdateColumn("total_enrollments", gorm.Expr("total_enrollments + 1")).Error
	})
	if utils.IsUniqueViolation(err) {
		// lost the race to a concurrent enroll; its row is the answer
		winner, findErr := e.enrollments.FindByUserAndCourse(ctx, viewer.UserID, courseID)
		if findErr != nil {
			return nil, false, utils.MapDBError(findErr)
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, utils.MapDBError(err)
	}

	e.ForgetStats(ctx, viewer.UserID)
	e.log.Info("User enrolled", "user_id", viewer.UserID, "course_id", courseID, "enrollment_id", enr.ID)
	return enr, true, nil
}

// Owned loads an enrollment on behalf of viewer. Only the enrolled user may
// act on it, plus admins when allowAdmin is set.
func (e *Engine) Owned(ctx context.Context, viewer models.Identity, enrollmentID uuid.UUID, allowAdmin bool) (*courseModels.Enrollment, error) {
	enr, err := e.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	if enr.UserID == viewer.UserID || (allowAdmin && viewer.IsAdmin()) {
		return enr, nil
	}
	return nil, utils.ForbiddenError("not your enrollment")
}

// UpdateLessonProgress records work on one lesson and rederives the
// enrollment aggregate from every lesson row, all under the enrollment lock.
func (e *Engine) UpdateLessonProgress(ctx context.Context, in ProgressUpdate) (*ProgressResult, error) {
	if in.TimeSpentMinutes < 0 {
		return nil, utils.ValidationError("time_spent_minutes must not be negative")
	}

	var result ProgressResult
	var becameComplete bool
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollments := e.enrollments.WithTx(tx)
		progress := e.progress.WithTx(tx)

		enr, err := enrollments.LockByID(ctx, in.EnrollmentID)
		if err != nil {
			return err
		}

		var lesson courseModels.Lesson
		err = tx.Where("id = ? AND course_id = ? AND published = ?", in.LessonID, enr.CourseID, true).
			First(&lesson).Error
		if err != nil {
			return notFound(err, "lesson")
		}

		now := e.now()
		lp, err := progress.Find(ctx, enr.ID, lesson.ID)
		switch {
		case errors.Is(err, utils.ErrNotFound):
			lp = &courseModels.LessonProgress{
				EnrollmentID:     enr.ID,
				LessonID:         lesson.ID,
				CourseID:         enr.CourseID,
				Completed:        in.Completed,
				TimeSpentMinutes: in.TimeSpentMinutes,
				LastAccessedAt:   now,
			}
			if in.Completed {
				lp.CompletedAt = &now
			}
			if err := progress.Create(ctx, lp); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			lp.Completed = in.Completed
			lp.TimeSpentMinutes += in.TimeSpentMinutes
			lp.LastAccessedAt = now
			if in.Completed && lp.CompletedAt == nil {
				lp.CompletedAt = &now
			}
			if err := progress.Save(ctx, lp); err != nil {
				return err
			}
		}

		wasComplete := enr.Completed
		if err := e.rederivePercentage(ctx, tx, enr, now); err != nil {
			return err
		}
		enr.TotalTimeSpentMinutes += in.TimeSpentMinutes
		enr.LastAccessedAt = now
		lessonID := lesson.ID
		enr.LastLessonID = &lessonID
		if err := enrollments.Save(ctx, enr); err != nil {
			return err
		}

		becameComplete = !wasComplete && enr.Completed
		result = ProgressResult{LessonProgress: lp, Enrollment: enr}
		return nil
	})
	if err != nil {
		return nil, utils.MapDBError(err)
	}

	e.ForgetStats(ctx, result.Enrollment.UserID)
	if becameComplete && e.notifier != nil {
		e.notifier.CourseCompleted(*result.Enrollment)
	}
	return &result, nil
}

// rederivePercentage sets progress from completed/published lesson counts.
// A course without published lessons leaves the aggregate untouched.
func (e *Engine) rederivePercentage(ctx context.Context, tx *gorm.DB, enr *courseModels.Enrollment, now time.Time) error {
	total, err := courseService.CountPublishedLessons(tx.WithContext(ctx), enr.CourseID)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}
	completed, err := e.progress.WithTx(tx).CountCompleted(ctx, enr.ID)
	if err != nil {
		return err
	}

	pct := utils.Round2(100 * float64(completed) / float64(total))
	if pct > 100 {
		pct = 100
	}
	enr.ProgressPercentage = pct
	switch {
	case pct >= 100 && !enr.Completed:
		enr.Completed = true
		enr.CompletedAt = &now
	case pct >= 100 && enr.CompletedAt == nil:
		enr.CompletedAt = &now
	case pct < 100:
		enr.Completed = false
		enr.CompletedAt = nil
	}
	return nil
}

// RecordAccess bumps last_accessed_at without touching progress.
func (e *Engine) RecordAccess(ctx context.Context, enrollmentID uuid.UUID) (*courseModels.Enrollment, error) {
	var enr *courseModels.Enrollment
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		enr, err = e.enrollments.WithTx(tx).LockByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		enr.LastAccessedAt = e.now()
		return tx.Model(enr).UpdateColumn("last_accessed_at", enr.LastAccessedAt).Error
	})
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	return enr, nil
}

// Unenroll deletes the enrollment with its lesson progress and gives back
// the course's enrollment count, never going below zero.
func (e *Engine) Unenroll(ctx context.Context, enrollmentID uuid.UUID) error {
	var userID uuid.UUID
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollments := e.enrollments.WithTx(tx)
		enr, err := enrollments.LockByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		userID = enr.UserID
		if err := enrollments.Delete(ctx, enr.ID); err != nil {
			return err
		}
		return tx.Model(&courseModels.Course{}).
			Where("id = ? AND total_enrollments > 0", enr.CourseID).
			UpdateColumn("total_enrollments", gorm.Expr("total_enrollments - 1")).Error
	})
	if err != nil {
		return utils.MapDBError(err)
	}
	e.ForgetStats(ctx, userID)
	e.log.Info("User unenrolled", "user_id", userID, "enrollment_id", enrollmentID)
	return nil
}

func (e *Engine) Summary(ctx context.Context, enrollmentID uuid.UUID) (*ProgressSummary, error) {
	enr, err := e.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	total, err := courseService.CountPublishedLessons(e.db.WithContext(ctx), enr.CourseID)
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	completed, err := e.progress.CountCompleted(ctx, enr.ID)
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	recent, err := e.progress.Recent(ctx, enr.ID, recentActivityLimit)
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	return &ProgressSummary{
		Enrollment:            enr,
		TotalLessons:          total,
		CompletedLessons:      completed,
		ProgressPercentage:    enr.ProgressPercentage,
		TotalTimeSpentMinutes: enr.TotalTimeSpentMinutes,
		RecentActivity:        recent,
	}, nil
}

// Recompute rederives every aggregate of the enrollment from its lesson rows.
func (e *Engine) Recompute(ctx context.Context, enrollmentID uuid.UUID) (*courseModels.Enrollment, error) {
	enr, _, err := e.recompute(ctx, enrollmentID)
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	e.ForgetStats(ctx, enr.UserID)
	return enr, nil
}

func (e *Engine) recompute(ctx context.Context, enrollmentID uuid.UUID) (*courseModels.Enrollment, bool, error) {
	var enr *courseModels.Enrollment
	var changed bool
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollments := e.enrollments.WithTx(tx)
		var err error
		enr, err = enrollments.LockByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		before := *enr

		if err := e.rederivePercentage(ctx, tx, enr, e.now()); err != nil {
			return err
		}
		minutes, err := e.progress.WithTx(tx).SumTimeSpent(ctx, enr.ID)
		if err != nil {
			return err
		}
		enr.TotalTimeSpentMinutes = minutes

		changed = before.ProgressPercentage != enr.ProgressPercentage ||
			before.Completed != enr.Completed ||
			before.TotalTimeSpentMinutes != enr.TotalTimeSpentMinutes
		if !changed {
			return nil
		}
		return enrollments.Save(ctx, enr)
	})
	return enr, changed, err
}

// ForgetStats drops the cached stats of the given users.
func (e *Engine) ForgetStats(ctx context.Context, userIDs ...uuid.UUID) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, StatsKey(id))
	}
	e.cache.Delete(ctx, keys...)
}
