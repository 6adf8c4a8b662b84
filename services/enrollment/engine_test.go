package enrollment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"learnhub/models"
	courseModels "learnhub/models/course"
	"learnhub/testutil"
	"learnhub/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	db     *gorm.DB
	cache  *utils.MemoryCache
	engine *Engine
	owner  models.Identity
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	cache := utils.NewMemoryCache()
	engine := NewEngine(db, cache, time.Minute, utils.NopLogger())
	c := &clock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	engine.now = c.now
	return &fixture{db: db, cache: cache, engine: engine, owner: testutil.Instructor()}
}

// course seeds a published course with n published lessons.
func (f *fixture) course(t *testing.T, n int) (*courseModels.Course, []courseModels.Lesson) {
	c := testutil.SeedCourse(t, f.db, f.owner.UserID, true)
	return c, testutil.SeedLessons(t, f.db, c.ID, n, true)
}

func (f *fixture) enroll(t *testing.T, viewer models.Identity, courseID uuid.UUID) *courseModels.Enrollment {
	t.Helper()
	enr, _, err := f.engine.Enroll(context.Background(), viewer, courseID)
	require.NoError(t, err)
	return enr
}

func (f *fixture) progress(t *testing.T, enrollmentID, lessonID uuid.UUID, completed bool, minutes int64) *ProgressResult {
	t.Helper()
	res, err := f.engine.UpdateLessonProgress(context.Background(), ProgressUpdate{
		EnrollmentID:     enrollmentID,
		LessonID:         lessonID,
		Completed:        completed,
		TimeSpentMinutes: minutes,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) courseModels.Enrollment {
	t.Helper()
	var enr courseModels.Enrollment
	require.NoError(t, f.db.Where("id = ?", id).First(&enr).Error)
	return enr
}

func (f *fixture) courseCounter(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	var c courseModels.Course
	require.NoError(t, f.db.Where("id = ?", id).First(&c).Error)
	return c.TotalEnrollments
}

func TestEnrollIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _ := f.course(t, 1)
	student := testutil.Student()

	first, created, err := f.engine.Enroll(ctx, student, c.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Zero(t, first.ProgressPercentage)
	assert.False(t, first.Completed)
	assert.Equal(t, first.EnrolledAt, first.LastAccessedAt)

	second, created, err := f.engine.Enroll(ctx, student, c.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var rows int64
	require.NoError(t, f.db.Model(&courseModels.Enrollment{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
	assert.Equal(t, int64(1), f.courseCounter(t, c.ID))
}

func TestEnrollConcurrent(t *testing.T) {
	f := newFixture(t)
	c, _ := f.course(t, 1)
	student := testutil.Student()

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := map[uuid.UUID]int{}
	createdCount := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enr, created, err := f.engine.Enroll(context.Background(), student, c.ID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[enr.ID]++
			if created {
				createdCount++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1, "every caller gets the same enrollment")
	assert.Equal(t, 1, createdCount)
	assert.Equal(t, int64(1), f.courseCounter(t, c.ID))
}

// The loser of a create race finds its insert rejected by the unique index
// and must return the winner's row without bumping the course counter.
func TestEnrollReturnsWinnerOnUniqueViolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _ := f.course(t, 1)
	student := testutil.Student()

	winner, created, err := f.engine.Enroll(ctx, student, c.ID)
	require.NoError(t, err)
	require.True(t, created)

	// make the next enrollment lookup miss, as if the winner had not
	// committed yet
	var hidden atomic.Bool
	require.NoError(t, f.db.Callback().Query().Before("gorm:query").Register("test:hide_enrollment", func(db *gorm.DB) {
		if db.Statement.Table == "enrollments" && hidden.CompareAndSwap(false, true) {
			db.Statement.AddClause(clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "1 = 0"}}})
		}
	}))
	t.Cleanup(func() { _ = f.db.Callback().Query().Remove("test:hide_enrollment") })

	loser, created, err := f.engine.Enroll(ctx, student, c.ID)
	require.NoError(t, err)
	assert.True(t, hidden.Load(), "the lookup was hidden")
	assert.False(t, created)
	assert.Equal(t, winner.ID, loser.ID)

	var rows int64
	require.NoError(t, f.db.Model(&courseModels.Enrollment{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
	assert.Equal(t, int64(1), f.courseCounter(t, c.ID))
}

func TestEnrollAccessRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := testutil.SeedCourse(t, f.db, f.owner.UserID, false)

	_, _, err := f.engine.Enroll(ctx, testutil.Student(), uuid.New())
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	_, _, err = f.engine.Enroll(ctx, testutil.Student(), draft.ID)
	assert.True(t, errors.Is(err, utils.ErrForbidden))

	_, created, err := f.engine.Enroll(ctx, f.owner, draft.ID)
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = f.engine.Enroll(ctx, testutil.Admin(), draft.ID)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestTwoLessonCourseCompletes(t *testing.T) {
	f := newFixture(t)
	c, lessons := f.course(t, 2)
	enr := f.enroll(t, testutil.Student(), c.ID)

	res := f.progress(t, enr.ID, lessons[0].ID, true, 10)
	assert.Equal(t, 50.0, res.Enrollment.ProgressPercentage)
	assert.False(t, res.Enrollment.Completed)
	assert.Nil(t, res.Enrollment.CompletedAt)
	assert.Equal(t, int64(10), res.LessonProgress.TimeSpentMinutes)
	require.NotNil(t, res.LessonProgress.CompletedAt)

	res = f.progress(t, enr.ID, lessons[1].ID, true, 5)
	assert.Equal(t, 100.0, res.Enrollment.ProgressPercentage)
	assert.True(t, res.Enrollment.Completed)
	assert.NotNil(t, res.Enrollment.CompletedAt)
	assert.Equal(t, int64(15), res.Enrollment.TotalTimeSpentMinutes)
	require.NotNil(t, res.Enrollment.LastLessonID)
	assert.Equal(t, lessons[1].ID, *res.Enrollment.LastLessonID)

	stored := f.reload(t, enr.ID)
	assert.Equal(t, 100.0, stored.ProgressPercentage)
	assert.True(t, stored.Completed)
	assert.NotNil(t, stored.CompletedAt)
	assert.Equal(t, int64(15), stored.TotalTimeSpentMinutes)
}

func TestPercentageRoundsToTwoPlaces(t *testing.T) {
	f := newFixture(t)
	c, lessons := f.course(t, 3)
	enr := f.enroll(t, testutil.Student(), c.ID)

	res := f.progress(t, enr.ID, lessons[0].ID, true, 0)
	assert.Equal(t, 33.33, res.Enrollment.ProgressPercentage)
	res = f.progress(t, enr.ID, lessons[1].ID, true, 0)
	assert.Equal(t, 66.67, res.Enrollment.ProgressPercentage)
}

func TestUncompletingLessonRevertsCompletion(t *testing.T) {
	f := newFixture(t)
	c, lessons := f.course(t, 2)
	enr := f.enroll(t, testutil.Student(), c.ID)

	f.progress(t, enr.ID, lessons[0].ID, true, 3)
	res := f.progress(t, enr.ID, lessons[1].ID, true, 4)
	require.True(t, res.Enrollment.Completed)

	res = f.progress(t, enr.ID, lessons[1].ID, false, 2)
	assert.Equal(t, 50.0, res.Enrollment.ProgressPercentage)
	assert.False(t, res.Enrollment.Completed)
	assert.Nil(t, res.Enrollment.CompletedAt)
	assert.False(t, res.LessonProgress.Completed)
	assert.Equal(t, int64(6), res.LessonProgress.TimeSpentMinutes, "time accumulates")
	assert.Equal(t, int64(9), res.Enrollment.TotalTimeSpentMinutes)
}

func TestLessonCompletedAtIsSticky(t *testing.T) {
	f := newFixture(t)
	c, lessons := f.course(t, 2)
	enr := f.enroll(t, testutil.Student(), c.ID)

	first := f.progress(t, enr.ID, lessons[0].ID, true, 1)
	require.NotNil(t, first.LessonProgress.CompletedAt)
	firstAt := *first.LessonProgress.CompletedAt

	f.progress(t, enr.ID, lessons[0].ID, true, 1)
	again := f.progress(t, enr.ID, lessons[0].ID, true, 1)
	require.NotNil(t, again.LessonProgress.CompletedAt)
	assert.True(t, firstAt.Equal(*again.LessonProgress.CompletedAt))
	assert.Equal(t, int64(3), again.LessonProgress.TimeSpentMinutes)
}

func TestConcurrentProgressKeepsTimeInSync(t *testing.T) {
	f := newFixture(t)
	c, lessons := f.course(t, 4)
	enr := f.enroll(t, testutil.Student(), c.ID)

	var wg sync.WaitGroup
	var expected int64
	for round := 0; round < 5; round++ {
		for i, l := range lessons {
			minutes := int64(i + round + 1)
			expected += minutes
			wg.Add(1)
			go func(lessonID uuid.UUID, minutes int64) {
				defer wg.Done()
				_, err := f.engine.UpdateLessonProgress(context.Background(), ProgressUpdate{
					EnrollmentID:     enr.ID,
					LessonID:         lessonID,
					Completed:        true,
					TimeSpentMinutes: minutes,
				})
				assert.NoError(t, err)
			}(l.ID, minutes)
		}
	}
	wg.Wait()

	stored := f.reload(t, enr.ID)
	sum, err := NewLessonProgressStore(f.db).SumTimeSpent(context.Background(), enr.ID)
	require.NoError(t, err)
	assert.Equal(t, expected, stored.TotalTimeSpentMinutes)
	assert.Equal(t, expected, sum)
	assert.Equal(t, 100.0, stored.ProgressPercentage)
	assert.True(t, stored.Completed)

	var rows int64
	require.NoError(t, f.db.Model(&courseModels.LessonProgress{}).Where("enrollment_id = ?", enr.ID).Count(&rows).Error)
	assert.Equal(t, int64(len(lessons)), rows)
}

func TestNoPublishedLessonsLeavesPercentage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, lessons := f.course(t, 2)
	enr := f.enroll(t, testutil.Student(), c.ID)
	f.progress(t, enr.ID, lessons[0].ID, true, 7)

	require.NoError(t, f.db.Model(&courseModels.Lesson{}).Where("course_id = ?", c.ID).Update("published", false).Error)

	got, err := f.engine.Recompute(ctx, enr.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.ProgressPercentage)
	assert.False(t, got.Completed)
	assert.Equal(t, int64(7), got.TotalTimeSpentMinutes)
}

func TestProgressErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, lessons := f.course(t, 1)
	_, otherLessons := f.course(t, 1)
	draft := testutil.SeedLessons(t, f.db, c.ID, 1, false)
	enr := f.enroll(t, testutil.Student(), c.ID)

	cases := []struct {
		name string
		in   ProgressUpdate
		want error
	}{
		{"missing enrollment", ProgressUpdate{EnrollmentID: uuid.New(), LessonID: lessons[0].ID}, utils.ErrNotFound},
		{"missing lesson", ProgressUpdate{EnrollmentID: enr.ID, LessonID: uuid.New()}, utils.ErrNotFound},
		{"lesson of another course", ProgressUpdate{EnrollmentID: enr.ID, LessonID: otherLessons[0].ID}, utils.ErrNotFound},
		{"draft lesson", ProgressUpdate{EnrollmentID: enr.ID, LessonID: draft[0].ID}, utils.ErrNotFound},
		{"negative time", ProgressUpdate{EnrollmentID: enr.ID, LessonID: lessons[0].ID, TimeSpentMinutes: -1}, utils.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.UpdateLessonProgress(ctx, tc.in)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	var rows int64
	require.NoError(t, f.db.Model(&courseModels.LessonProgress{}).Count(&rows).Error)
	assert.Zero(t, rows, "failed updates leave no rows behind")
	assert.Equal(t, 0.0, f.reload(t, enr.ID).ProgressPercentage)
}

func TestRecordAccess(t *testing.T) {
	f := newFixture(t)
	c, _ := f.course(t, 1)
	enr := f.enroll(t, testutil.Student(), c.ID)

	got, err := f.engine.RecordAccess(context.Background(), enr.ID)
	require.NoError(t, err)
	assert.True(t, got.LastAccessedAt.After(enr.LastAccessedAt))
	assert.True(t, f.reload(t, enr.ID).LastAccessedAt.Equal(got.LastAccessedAt))

	_, err = f.engine.RecordAccess(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestUnenrollDecrementsCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, lessons := f.course(t, 1)
	enr := f.enroll(t, testutil.Student(), c.ID)
	f.progress(t, enr.ID, lessons[0].ID, true, 1)
	require.Equal(t, int64(1), f.courseCounter(t, c.ID))

	require.NoError(t, f.engine.Unenroll(ctx, enr.ID))
	assert.Equal(t, int64(0), f.courseCounter(t, c.ID))

	var rows int64
	require.NoError(t, f.db.Model(&courseModels.LessonProgress{}).Count(&rows).Error)
	assert.Zero(t, rows)

	assert.True(t, errors.Is(f.engine.Unenroll(ctx, enr.ID), utils.ErrNotFound))
}

func TestUnenrollCounterNeverNegative(t *testing.T) {
	f := newFixture(t)
	c, _ := f.course(t, 1)
	enr := f.enroll(t, testutil.Student(), c.ID)
	require.NoError(t, f.db.Model(&courseModels.Course{}).Where("id = ?", c.ID).UpdateColumn("total_enrollments", 0).Error)

	require.NoError(t, f.engine.Unenroll(context.Background(), enr.ID))
	assert.Equal(t, int64(0), f.courseCounter(t, c.ID))
}

func TestOwned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, _ := f.course(t, 1)
	student := testutil.Student()
	enr := f.enroll(t, student, c.ID)

	_, err := f.engine.Owned(ctx, student, enr.ID, false)
	assert.NoError(t, err)
	_, err = f.engine.Owned(ctx, testutil.Student(), enr.ID, true)
	assert.True(t, errors.Is(err, utils.ErrForbidden))
	_, err = f.engine.Owned(ctx, testutil.Admin(), enr.ID, false)
	assert.True(t, errors.Is(err, utils.ErrForbidden))
	_, err = f.engine.Owned(ctx, testutil.Admin(), enr.ID, true)
	assert.NoError(t, err)
}

func TestSummaryShowsRecentActivity(t *testing.T) {
	f := newFixture(t)
	c, lessons := f.course(t, 7)
	enr := f.enroll(t, testutil.Student(), c.ID)
	for i, l := range lessons[:6] {
		f.progress(t, enr.ID, l.ID, i%2 == 0, 2)
	}

	s, err := f.engine.Summary(context.Background(), enr.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.TotalLessons)
	assert.Equal(t, int64(3), s.CompletedLessons)
	assert.Equal(t, 42.86, s.ProgressPercentage)
	assert.Equal(t, int64(12), s.TotalTimeSpentMinutes)
	require.Len(t, s.RecentActivity, recentActivityLimit)
	assert.Equal(t, lessons[5].ID, s.RecentActivity[0].LessonID)
}

func TestReconcileRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, lessons := f.course(t, 2)
	drifted := f.enroll(t, testutil.Student(), c.ID)
	healthy := f.enroll(t, testutil.Student(), c.ID)
	f.progress(t, drifted.ID, lessons[0].ID, true, 10)
	f.progress(t, drifted.ID, lessons[1].ID, true, 5)
	f.progress(t, healthy.ID, lessons[0].ID, true, 1)

	require.NoError(t, f.db.Model(&courseModels.Enrollment{}).Where("id = ?", drifted.ID).Updates(map[string]interface{}{
		"progress_percentage":      12.5,
		"completed":                false,
		"completed_at":             nil,
		"total_time_spent_minutes": 999,
	}).Error)

	repaired, err := f.engine.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	got := f.reload(t, drifted.ID)
	assert.Equal(t, 100.0, got.ProgressPercentage)
	assert.True(t, got.Completed)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, int64(15), got.TotalTimeSpentMinutes)

	repaired, err = f.engine.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestRecomputeCourseAfterLessonUnpublished(t *testing.T) {
	f := newFixture(t)
	c, lessons := f.course(t, 2)
	enr := f.enroll(t, testutil.Student(), c.ID)
	f.progress(t, enr.ID, lessons[0].ID, true, 1)

	require.NoError(t, f.db.Model(&lessons[1]).Update("published", false).Error)
	require.NoError(t, f.engine.RecomputeCourse(context.Background(), c.ID))

	got := f.reload(t, enr.ID)
	assert.Equal(t, 100.0, got.ProgressPercentage)
	assert.True(t, got.Completed)
}

func TestUserStatsCachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := testutil.Student()
	c1, l1 := f.course(t, 1)
	c2, _ := f.course(t, 2)
	e1 := f.enroll(t, student, c1.ID)
	f.enroll(t, student, c2.ID)
	f.progress(t, e1.ID, l1[0].ID, true, 20)

	stats, err := f.engine.UserStats(ctx, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, Stats{
		TotalEnrollments:      2,
		ActiveEnrollments:     1,
		CompletedEnrollments:  1,
		AverageProgress:       50,
		TotalTimeSpentMinutes: 20,
	}, *stats)

	_, ok := f.cache.Get(ctx, StatsKey(student.UserID))
	require.True(t, ok)

	f.progress(t, e1.ID, l1[0].ID, true, 5)
	_, ok = f.cache.Get(ctx, StatsKey(student.UserID))
	assert.False(t, ok, "progress update drops cached stats")

	stats, err = f.engine.UserStats(ctx, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), stats.TotalTimeSpentMinutes)

	empty, err := f.engine.UserStats(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, *empty)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := testutil.Student()
	c1, l1 := f.course(t, 1)
	c2, _ := f.course(t, 1)
	e1 := f.enroll(t, student, c1.ID)
	f.enroll(t, student, c2.ID)
	f.enroll(t, testutil.Student(), c1.ID)
	f.progress(t, e1.ID, l1[0].ID, true, 1)

	completed := true
	page, err := f.engine.ListForUser(ctx, student.UserID, ListFilter{Completed: &completed})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, e1.ID, page.Items[0].ID)
	require.NotNil(t, page.Stats)
	assert.Equal(t, int64(2), page.Stats.TotalEnrollments)

	page, err = f.engine.ListForUser(ctx, student.UserID, ListFilter{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Items, 1)

	_, err = f.engine.ListForCourse(ctx, testutil.Instructor(), c1.ID, 1, 10)
	assert.True(t, errors.Is(err, utils.ErrForbidden))
	byCourse, err := f.engine.ListForCourse(ctx, f.owner, c1.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byCourse.Total)

	_, err = f.engine.ListForInstructor(ctx, student, 1, 10)
	assert.True(t, errors.Is(err, utils.ErrForbidden))
	grouped, err := f.engine.ListForInstructor(ctx, f.owner, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), grouped.Total)
	require.Len(t, grouped.Courses, 2)
	totals := map[uuid.UUID]int64{}
	sizes := map[uuid.UUID]int{}
	for _, g := range grouped.Courses {
		totals[g.CourseID] = g.TotalEnrollments
		sizes[g.CourseID] = len(g.Enrollments)
	}
	assert.Equal(t, map[uuid.UUID]int64{c1.ID: 2, c2.ID: 1}, totals)
	assert.Equal(t, map[uuid.UUID]int{c1.ID: 2, c2.ID: 1}, sizes)

	paged, err := f.engine.ListForInstructor(ctx, f.owner, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), paged.Total)
	assert.Equal(t, 2, paged.Pages)
	require.Len(t, paged.Courses, 1)
	assert.Len(t, paged.Courses[0].Enrollments, 1)

	empty, err := f.engine.ListForInstructor(ctx, testutil.Instructor(), 1, 10)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Courses)
}
