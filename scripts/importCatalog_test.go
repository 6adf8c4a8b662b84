package main

import (
	"context"
	"testing"
	"time"

	courseModels "learnhub/models/course"
	courseService "learnhub/services/course"
	enrollmentService "learnhub/services/enrollment"
	"learnhub/testutil"
	"learnhub/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = []string{"instructor_id", "course_title", "description", "price", "lesson_title", "lesson_position", "lesson_content", "published"}

func TestImportRowsCreatesThenUpdates(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	catalog := newCatalog(db, utils.NoopCache{}, nil, time.Minute, utils.NopLogger())
	owner := testutil.Instructor().UserID.String()

	records := [][]string{
		header,
		{owner, "Go Basics", "intro", "9.5", "Syntax", "1", "", "true"},
		{owner, "Go Basics", "intro", "9.5", "Types", "2", "", "false"},
		{"not-a-uuid", "Go Basics", "", "", "Skipped", "3", "", "true"},
	}
	inserted, updated, skipped := importRows(ctx, db, catalog, records, utils.NopLogger())
	assert.Equal(t, [3]int{2, 0, 1}, [3]int{inserted, updated, skipped})

	var courses int64
	require.NoError(t, db.Model(&courseModels.Course{}).Count(&courses).Error)
	assert.Equal(t, int64(1), courses)

	records = [][]string{header, {owner, "Go Basics", "intro", "9.5", "Types", "2", "body", "true"}}
	inserted, updated, skipped = importRows(ctx, db, catalog, records, utils.NopLogger())
	assert.Equal(t, [3]int{0, 1, 0}, [3]int{inserted, updated, skipped})

	var lesson courseModels.Lesson
	require.NoError(t, db.Where("title = ?", "Types").First(&lesson).Error)
	assert.True(t, lesson.Published)
	assert.Equal(t, "body", lesson.Content)
}

func TestImportRecomputesExistingEnrollments(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.Instructor()
	course := testutil.SeedCourse(t, db, owner.UserID, true)
	lessons := testutil.SeedLessons(t, db, course.ID, 1, true)

	engine := enrollmentService.NewEngine(db, utils.NoopCache{}, time.Minute, utils.NopLogger())
	enr, _, err := engine.Enroll(ctx, testutil.Student(), course.ID)
	require.NoError(t, err)
	_, err = engine.UpdateLessonProgress(ctx, enrollmentService.ProgressUpdate{
		EnrollmentID: enr.ID, LessonID: lessons[0].ID, Completed: true, TimeSpentMinutes: 3,
	})
	require.NoError(t, err)

	catalog := newCatalog(db, utils.NoopCache{}, nil, time.Minute, utils.NopLogger())
	records := [][]string{header, {owner.UserID.String(), course.Title, "", "", "Extra", "2", "", "true"}}
	inserted, _, _ := importRows(ctx, db, catalog, records, utils.NopLogger())
	require.Equal(t, 1, inserted)

	var after courseModels.Enrollment
	require.NoError(t, db.Where("id = ?", enr.ID).First(&after).Error)
	assert.Equal(t, 50.0, after.ProgressPercentage)
	assert.False(t, after.Completed)
	assert.Nil(t, after.CompletedAt)
}

func TestFindOrCreateCourseStopsOnLookupError(t *testing.T) {
	db := testutil.NewDB(t)
	catalog := newCatalog(db, utils.NoopCache{}, nil, time.Minute, utils.NopLogger())
	owner := testutil.Instructor()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := findOrCreateCourse(ctx, db, catalog, owner, courseService.CourseInput{Title: "Go Basics"})
	assert.Error(t, err)

	var courses int64
	require.NoError(t, db.Model(&courseModels.Course{}).Count(&courses).Error)
	assert.Zero(t, courses)

	first, err := findOrCreateCourse(context.Background(), db, catalog, owner, courseService.CourseInput{Title: "Go Basics"})
	require.NoError(t, err)
	again, err := findOrCreateCourse(context.Background(), db, catalog, owner, courseService.CourseInput{Title: "Go Basics"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}
