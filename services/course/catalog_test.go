package course

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"learnhub/models"
	courseModels "learnhub/models/course"
	"learnhub/testutil"
	"learnhub/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryBlobs struct {
	objects map[string][]byte
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: map[string][]byte{}}
}

func (m *memoryBlobs) Store(_ context.Context, r io.Reader, objectPath string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := "mem://" + objectPath
	m.objects[url] = data
	return url, nil
}

func (m *memoryBlobs) Delete(_ context.Context, url string) error {
	delete(m.objects, url)
	return nil
}

func newCatalog(t *testing.T) (*Catalog, *memoryBlobs, *gorm.DB) {
	db := testutil.NewDB(t)
	blobs := newMemoryBlobs()
	return NewCatalog(db, blobs, utils.NopLogger()), blobs, db
}

func TestCreateCourseRequiresInstructor(t *testing.T) {
	catalog, _, _ := newCatalog(t)
	ctx := context.Background()

	_, err := catalog.CreateCourse(ctx, testutil.Student(), CourseInput{Title: "Go"})
	assert.True(t, errors.Is(err, utils.ErrForbidden))

	_, err = catalog.CreateCourse(ctx, testutil.Instructor(), CourseInput{Title: "  "})
	assert.True(t, errors.Is(err, utils.ErrValidation))

	inst := testutil.Instructor()
	c, err := catalog.CreateCourse(ctx, inst, CourseInput{Title: "Go", Price: 10})
	require.NoError(t, err)
	assert.Equal(t, inst.UserID, c.InstructorID)
	assert.False(t, c.Published)
}

func TestDraftCourseVisibility(t *testing.T) {
	catalog, _, _ := newCatalog(t)
	ctx := context.Background()
	owner := testutil.Instructor()

	draft, err := catalog.CreateCourse(ctx, owner, CourseInput{Title: "Draft"})
	require.NoError(t, err)
	live, err := catalog.CreateCourse(ctx, owner, CourseInput{Title: "Live"})
	require.NoError(t, err)
	_, err = catalog.PublishCourse(ctx, owner, live.ID, true)
	require.NoError(t, err)

	_, err = catalog.GetCourse(ctx, testutil.Student(), draft.ID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
	_, err = catalog.GetCourse(ctx, owner, draft.ID)
	assert.NoError(t, err)
	_, err = catalog.GetCourse(ctx, testutil.Admin(), draft.ID)
	assert.NoError(t, err)

	page, err := catalog.ListCourses(ctx, testutil.Student(), CourseFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, live.ID, page.Items[0].ID)

	page, err = catalog.ListCourses(ctx, owner, CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	published := false
	page, err = catalog.ListCourses(ctx, owner, CourseFilter{Published: &published})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, draft.ID, page.Items[0].ID)

	page, err = catalog.ListCourses(ctx, testutil.Admin(), CourseFilter{Search: "LIV", Limit: 5})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, 1, page.Pages)
}

func TestUpdateCourseOwnership(t *testing.T) {
	catalog, _, _ := newCatalog(t)
	ctx := context.Background()
	owner := testutil.Instructor()
	c, err := catalog.CreateCourse(ctx, owner, CourseInput{Title: "Go"})
	require.NoError(t, err)
	_, err = catalog.PublishCourse(ctx, owner, c.ID, true)
	require.NoError(t, err)

	title := "Go, revised"
	_, err = catalog.UpdateCourse(ctx, testutil.Instructor(), c.ID, CourseUpdate{Title: &title})
	assert.True(t, errors.Is(err, utils.ErrForbidden))

	updated, err := catalog.UpdateCourse(ctx, owner, c.ID, CourseUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
}

func TestLessonsHideDraftsFromStudents(t *testing.T) {
	catalog, _, _ := newCatalog(t)
	ctx := context.Background()
	owner := testutil.Instructor()
	c, err := catalog.CreateCourse(ctx, owner, CourseInput{Title: "Go"})
	require.NoError(t, err)
	_, err = catalog.PublishCourse(ctx, owner, c.ID, true)
	require.NoError(t, err)

	_, err = catalog.CreateLesson(ctx, owner, c.ID, LessonInput{Title: "Intro", Position: 1, Published: true})
	require.NoError(t, err)
	draft, err := catalog.CreateLesson(ctx, owner, c.ID, LessonInput{Title: "Draft", Position: 2})
	require.NoError(t, err)

	lessons, err := catalog.ListLessons(ctx, testutil.Student(), c.ID)
	require.NoError(t, err)
	assert.Len(t, lessons, 1)

	lessons, err = catalog.ListLessons(ctx, owner, c.ID)
	require.NoError(t, err)
	assert.Len(t, lessons, 2)

	_, err = catalog.GetLesson(ctx, testutil.Student(), c.ID, draft.ID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	n, err := CountPublishedLessons(catalog.db, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLessonChangesFireHook(t *testing.T) {
	catalog, _, _ := newCatalog(t)
	ctx := context.Background()
	owner := testutil.Instructor()
	c, err := catalog.CreateCourse(ctx, owner, CourseInput{Title: "Go"})
	require.NoError(t, err)

	var fired []uuid.UUID
	catalog.OnLessonsChanged(func(_ context.Context, courseID uuid.UUID) {
		fired = append(fired, courseID)
	})

	draft, err := catalog.CreateLesson(ctx, owner, c.ID, LessonInput{Title: "Draft"})
	require.NoError(t, err)
	assert.Empty(t, fired, "draft lessons do not change the published total")

	published := true
	_, err = catalog.UpdateLesson(ctx, owner, c.ID, draft.ID, LessonUpdate{Published: &published})
	require.NoError(t, err)
	require.NoError(t, catalog.DeleteLesson(ctx, owner, c.ID, draft.ID))
	assert.Equal(t, []uuid.UUID{c.ID, c.ID}, fired)
}

func TestDeleteCourseCascades(t *testing.T) {
	catalog, blobs, db := newCatalog(t)
	ctx := context.Background()
	owner := testutil.Instructor()
	c, err := catalog.CreateCourse(ctx, owner, CourseInput{Title: "Go"})
	require.NoError(t, err)
	lesson, err := catalog.CreateLesson(ctx, owner, c.ID, LessonInput{Title: "Intro", Published: true})
	require.NoError(t, err)

	_, err = catalog.SetCourseThumbnail(ctx, owner, c.ID, strings.NewReader("img"), "cover.png")
	require.NoError(t, err)
	_, err = catalog.SetLessonContent(ctx, owner, c.ID, lesson.ID, bytes.NewReader([]byte("video")), "intro.mp4")
	require.NoError(t, err)
	require.Len(t, blobs.objects, 2)

	student := uuid.New()
	enr := courseModels.Enrollment{UserID: student, CourseID: c.ID}
	require.NoError(t, db.Create(&enr).Error)
	require.NoError(t, db.Create(&courseModels.LessonProgress{EnrollmentID: enr.ID, LessonID: lesson.ID, CourseID: c.ID}).Error)
	require.NoError(t, db.Create(&courseModels.Feedback{UserID: student, CourseID: c.ID, Rating: 4}).Error)

	var removed []uuid.UUID
	catalog.OnCourseDeleted(func(_ context.Context, users []uuid.UUID) { removed = users })

	_, err = catalog.GetCourse(ctx, testutil.Student(), c.ID)
	require.Error(t, err)
	require.True(t, errors.Is(catalog.DeleteCourse(ctx, testutil.Instructor(), c.ID), utils.ErrNotFound))
	require.NoError(t, catalog.DeleteCourse(ctx, owner, c.ID))

	for _, model := range []interface{}{
		&courseModels.Course{}, &courseModels.Lesson{}, &courseModels.Enrollment{},
		&courseModels.LessonProgress{}, &courseModels.Feedback{},
	} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T rows left", model)
	}
	assert.Empty(t, blobs.objects)
	assert.Equal(t, []uuid.UUID{student}, removed)
}

func TestThumbnailReplacesPrevious(t *testing.T) {
	catalog, blobs, _ := newCatalog(t)
	ctx := context.Background()
	owner := testutil.Instructor()
	c, err := catalog.CreateCourse(ctx, owner, CourseInput{Title: "Go"})
	require.NoError(t, err)

	first, err := catalog.SetCourseThumbnail(ctx, owner, c.ID, strings.NewReader("a"), "a.png")
	require.NoError(t, err)
	firstURL := first.ThumbnailURL
	second, err := catalog.SetCourseThumbnail(ctx, owner, c.ID, strings.NewReader("b"), "b.png")
	require.NoError(t, err)

	assert.NotEqual(t, firstURL, second.ThumbnailURL)
	assert.Len(t, blobs.objects, 1)
	assert.Contains(t, blobs.objects, second.ThumbnailURL)
}

func TestFeedbackRequiresEnrollment(t *testing.T) {
	catalog, _, db := newCatalog(t)
	feedback := NewFeedbackService(db, catalog)
	ctx := context.Background()
	owner := testutil.Instructor()
	c := testutil.SeedCourse(t, db, owner.UserID, true)
	student := testutil.Student()

	_, err := feedback.Submit(ctx, student, c.ID, 5, "great")
	assert.True(t, errors.Is(err, utils.ErrForbidden))

	require.NoError(t, db.Create(&courseModels.Enrollment{UserID: student.UserID, CourseID: c.ID}).Error)

	_, err = feedback.Submit(ctx, student, c.ID, 6, "")
	assert.True(t, errors.Is(err, utils.ErrValidation))

	_, err = feedback.Submit(ctx, student, c.ID, 5, "great")
	require.NoError(t, err)
	fb, err := feedback.Submit(ctx, student, c.ID, 3, " changed my mind ")
	require.NoError(t, err)
	assert.Equal(t, 3, fb.Rating)
	assert.Equal(t, "changed my mind", fb.Comment)

	summary, err := feedback.ListForCourse(ctx, models.Identity{UserID: uuid.New(), Role: models.RoleStudent}, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, 3.0, summary.AverageRating)
}
