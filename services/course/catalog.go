package course

import (
	"context"
	"errors"
	"io"
	"strings"

	"learnhub/models"
	courseModels "learnhub/models/course"
	"learnhub/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseInput struct {
	Title       string
	Description string
	Price       float64
}

// CourseUpdate carries only the fields to change.
type CourseUpdate struct {
	Title       *string
	Description *string
	Price       *float64
}

// CourseFilter enumerates every supported course list predicate.
type CourseFilter struct {
	InstructorID *uuid.UUID
	Published    *bool
	Search       string
	Page         int
	Limit        int
}

type CoursePage struct {
	Items []courseModels.Course `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
	Pages int                   `json:"pages"`
}

type LessonInput struct {
	Title     string
	Content   string
	Position  int
	Published bool
}

type LessonUpdate struct {
	Title     *string
	Content   *string
	Position  *int
	Published *bool
}

// Catalog is plain CRUD over courses and lessons plus their media.
type Catalog struct {
	db    *gorm.DB
	blobs utils.BlobStore
	log   *utils.Logger

	onCourseDeleted  func(ctx context.Context, enrolledUsers []uuid.UUID)
	onLessonsChanged func(ctx context.Context, courseID uuid.UUID)
}

func NewCatalog(db *gorm.DB, blobs utils.BlobStore, log *utils.Logger) *Catalog {
	return &Catalog{db: db, blobs: blobs, log: log}
}

// OnCourseDeleted registers a hook run after a course delete commits, with
// the users whose enrollments were removed.
func (c *Catalog) OnCourseDeleted(fn func(ctx context.Context, enrolledUsers []uuid.UUID)) {
	c.onCourseDeleted = fn
}

// OnLessonsChanged registers a hook run whenever the set of published lessons
// of a course may have changed.
func (c *Catalog) OnLessonsChanged(fn func(ctx context.Context, courseID uuid.UUID)) {
	c.onLessonsChanged = fn
}

func (c *Catalog) lessonsChanged(ctx context.Context, courseID uuid.UUID) {
	if c.onLessonsChanged != nil {
		c.onLessonsChanged(ctx, courseID)
	}
}

// CountPublishedLessons is the lesson total that enrollment progress is
// measured against. It runs on the caller's handle so it can join a
// transaction.
func CountPublishedLessons(tx *gorm.DB, courseID uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&courseModels.Lesson{}).
		Where("course_id = ? AND published = ?", courseID, true).
		Count(&n).Error
	return n, err
}

func (c *Catalog) CreateCourse(ctx context.Context, viewer models.Identity, in CourseInput) (*courseModels.Course, error) {
	if viewer.Role != models.RoleInstructor && !viewer.IsAdmin() {
		return nil, utils.ForbiddenError("only instructors can create courses")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, utils.ValidationError("title is required")
	}
	if in.Price < 0 {
		return nil, utils.ValidationError("price must not be negative")
	}

	course := &courseModels.Course{
		InstructorID: viewer.UserID,
		Title:        title,
		Description:  in.Description,
		Price:        in.Price,
	}
	if err := c.db.WithContext(ctx).Create(course).Error; err != nil {
		return nil, utils.MapDBError(err)
	}
	return course, nil
}

func (c *Catalog) findCourse(ctx context.Context, id uuid.UUID) (*courseModels.Course, error) {
	var course courseModels.Course
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("course not found")
		}
		return nil, utils.MapDBError(err)
	}
	return &course, nil
}

// GetCourse returns the course if the viewer may see it. Hidden courses are
// reported as missing.
func (c *Catalog) GetCourse(ctx context.Context, viewer models.Identity, id uuid.UUID) (*courseModels.Course, error) {
	course, err := c.findCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if !VisibleTo(viewer.Role, viewer.UserID, course.InstructorID, course.Published) {
		return nil, utils.NotFoundError("course not found")
	}
	return course, nil
}

func (c *Catalog) managedCourse(ctx context.Context, viewer models.Identity, id uuid.UUID) (*courseModels.Course, error) {
	course, err := c.GetCourse(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if !CanManage(viewer, course.InstructorID) {
		return nil, utils.ForbiddenError("not the course owner")
	}
	return course, nil
}

func (c *Catalog) ListCourses(ctx context.Context, viewer models.Identity, f CourseFilter) (*CoursePage, error) {
	p := utils.NewPagination(f.Page, f.Limit)

	q := c.db.WithContext(ctx).Model(&courseModels.Course{})
	if !viewer.IsAdmin() {
		q = q.Where("(published = ? OR instructor_id = ?)", true, viewer.UserID)
	}
	if f.InstructorID != nil {
		q = q.Where("instructor_id = ?", *f.InstructorID)
	}
	if f.Published != nil {
		q = q.Where("published = ?", *f.Published)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, utils.MapDBError(err)
	}
	items := []courseModels.Course{}
	if err := q.Session(&gorm.Session{}).Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return nil, utils.MapDBError(err)
	}
	return &CoursePage{Items: items, Total: total, Page: p.Page, Limit: p.Limit, Pages: p.Pages(total)}, nil
}

func (c *Catalog) UpdateCourse(ctx context.Context, viewer models.Identity, id uuid.UUID, in CourseUpdate) (*courseModels.Course, error) {
	course, err := c.managedCourse(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, utils.ValidationError("title must not be empty")
		}
		updates["title"] = title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, utils.ValidationError("price must not be negative")
		}
		updates["price"] = *in.Price
	}
	if len(updates) == 0 {
		return course, nil
	}
	if err := c.db.WithContext(ctx).Model(course).Updates(updates).Error; err != nil {
		return nil, utils.MapDBError(err)
	}
	return c.findCourse(ctx, id)
}

func (c *Catalog) PublishCourse(ctx context.Context, viewer models.Identity, id uuid.UUID, published bool) (*courseModels.Course, error) {
	course, err := c.managedCourse(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if err := c.db.WithContext(ctx).Model(course).Update("published", published).Error; err != nil {
		return nil, utils.MapDBError(err)
	}
	course.Published = published
	return course, nil
}

// DeleteCourse removes the course with its lessons, enrollments, lesson
// progress and feedback, then drops its media from object storage.
func (c *Catalog) DeleteCourse(ctx context.Context, viewer models.Identity, id uuid.UUID) error {
	course, err := c.managedCourse(ctx, viewer, id)
	if err != nil {
		return err
	}

	var lessons []courseModels.Lesson
	var enrolledUsers []uuid.UUID
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Find(&lessons).Error; err != nil {
			return err
		}
		if err := tx.Model(&courseModels.Enrollment{}).Where("course_id = ?", id).Pluck("user_id", &enrolledUsers).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{
			&courseModels.LessonProgress{},
			&courseModels.Enrollment{},
			&courseModels.Feedback{},
			&courseModels.Lesson{},
		} {
			if err := tx.Where("course_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(course).Error
	})
	if err != nil {
		return utils.MapDBError(err)
	}

	c.deleteBlob(ctx, course.ThumbnailURL)
	for _, l := range lessons {
		c.deleteBlob(ctx, l.ContentURL)
	}
	if c.onCourseDeleted != nil && len(enrolledUsers) > 0 {
		c.onCourseDeleted(ctx, enrolledUsers)
	}
	return nil
}

func (c *Catalog) deleteBlob(ctx context.Context, url string) {
	if url == "" || c.blobs == nil {
		return
	}
	if err := c.blobs.Delete(ctx, url); err != nil {
		c.log.Warn("Failed to delete media", "url", url, "error", err)
	}
}

// SetCourseThumbnail uploads a new thumbnail and removes the previous one.
func (c *Catalog) SetCourseThumbnail(ctx context.Context, viewer models.Identity, id uuid.UUID, r io.Reader, filename string) (*courseModels.Course, error) {
	course, err := c.managedCourse(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	url, err := c.blobs.Store(ctx, r, utils.ObjectPath("thumbnails/"+id.String(), filename))
	if err != nil {
		return nil, err
	}
	previous := course.ThumbnailURL
	if err := c.db.WithContext(ctx).Model(course).Update("thumbnail_url", url).Error; err != nil {
		c.deleteBlob(ctx, url)
		return nil, utils.MapDBError(err)
	}
	c.deleteBlob(ctx, previous)
	course.ThumbnailURL = url
	return course, nil
}

func (c *Catalog) CreateLesson(ctx context.Context, viewer models.Identity, courseID uuid.UUID, in LessonInput) (*courseModels.Lesson, error) {
	if _, err := c.managedCourse(ctx, viewer, courseID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, utils.ValidationError("title is required")
	}

	lesson := &courseModels.Lesson{
		CourseID:  courseID,
		Title:     title,
		Content:   in.Content,
		Position:  in.Position,
		Published: in.Published,
	}
	if err := c.db.WithContext(ctx).Create(lesson).Error; err != nil {
		return nil, utils.MapDBError(err)
	}
	if lesson.Published {
		c.lessonsChanged(ctx, courseID)
	}
	return lesson, nil
}

func (c *Catalog) findLesson(ctx context.Context, courseID, lessonID uuid.UUID) (*courseModels.Lesson, error) {
	var lesson courseModels.Lesson
	err := c.db.WithContext(ctx).
		Where("id = ? AND course_id = ?", lessonID, courseID).
		First(&lesson).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("lesson not found")
		}
		return nil, utils.MapDBError(err)
	}
	return &lesson, nil
}

func (c *Catalog) GetLesson(ctx context.Context, viewer models.Identity, courseID, lessonID uuid.UUID) (*courseModels.Lesson, error) {
	course, err := c.GetCourse(ctx, viewer, courseID)
	if err != nil {
		return nil, err
	}
	lesson, err := c.findLesson(ctx, courseID, lessonID)
	if err != nil {
		return nil, err
	}
	if !VisibleTo(viewer.Role, viewer.UserID, course.InstructorID, lesson.Published) {
		return nil, utils.NotFoundError("lesson not found")
	}
	return lesson, nil
}

// ListLessons returns the lessons of a visible course in position order,
// hiding drafts from everyone but the owner and admins.
func (c *Catalog) ListLessons(ctx context.Context, viewer models.Identity, courseID uuid.UUID) ([]courseModels.Lesson, error) {
	course, err := c.GetCourse(ctx, viewer, courseID)
	if err != nil {
		return nil, err
	}
	q := c.db.WithContext(ctx).Where("course_id = ?", courseID)
	if !VisibleTo(viewer.Role, viewer.UserID, course.InstructorID, false) {
		q = q.Where("published = ?", true)
	}
	lessons := []courseModels.Lesson{}
	if err := q.Order("position ASC, created_at ASC").Find(&lessons).Error; err != nil {
		return nil, utils.MapDBError(err)
	}
	return lessons, nil
}

func (c *Catalog) UpdateLesson(ctx context.Context, viewer models.Identity, courseID, lessonID uuid.UUID, in LessonUpdate) (*courseModels.Lesson, error) {
	if _, err := c.managedCourse(ctx, viewer, courseID); err != nil {
		return nil, err
	}
	lesson, err := c.findLesson(ctx, courseID, lessonID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, utils.ValidationError("title must not be empty")
		}
		updates["title"] = title
	}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	if in.Position != nil {
		updates["position"] = *in.Position
	}
	publishChanged := in.Published != nil && *in.Published != lesson.Published
	if in.Published != nil {
		updates["published"] = *in.Published
	}
	if len(updates) == 0 {
		return lesson, nil
	}
	if err := c.db.WithContext(ctx).Model(lesson).Updates(updates).Error; err != nil {
		return nil, utils.MapDBError(err)
	}
	if publishChanged {
		c.lessonsChanged(ctx, courseID)
	}
	return c.findLesson(ctx, courseID, lessonID)
}

// DeleteLesson removes the lesson and every progress row recorded against it.
func (c *Catalog) DeleteLesson(ctx context.Context, viewer models.Identity, courseID, lessonID uuid.UUID) error {
	if _, err := c.managedCourse(ctx, viewer, courseID); err != nil {
		return err
	}
	lesson, err := c.findLesson(ctx, courseID, lessonID)
	if err != nil {
		return err
	}

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", lessonID).Delete(&courseModels.LessonProgress{}).Error; err != nil {
			return err
		}
		return tx.Delete(lesson).Error
	})
	if err != nil {
		return utils.MapDBError(err)
	}
	c.deleteBlob(ctx, lesson.ContentURL)
	c.lessonsChanged(ctx, courseID)
	return nil
}

// SetLessonContent uploads lesson media and removes the previous object.
func (c *Catalog) SetLessonContent(ctx context.Context, viewer models.Identity, courseID, lessonID uuid.UUID, r io.Reader, filename string) (*courseModels.Lesson, error) {
	if _, err := c.managedCourse(ctx, viewer, courseID); err != nil {
		return nil, err
	}
	lesson, err := c.findLesson(ctx, courseID, lessonID)
	if err != nil {
		return nil, err
	}
	url, err := c.blobs.Store(ctx, r, utils.ObjectPath("lessons/"+lessonID.String(), filename))
	if err != nil {
		return nil, err
	}
	previous := lesson.ContentURL
	if err := c.db.WithContext(ctx).Model(lesson).Update("content_url", url).Error; err != nil {
		c.deleteBlob(ctx, url)
		return nil, utils.MapDBError(err)
	}
	c.deleteBlob(ctx, previous)
	lesson.ContentURL = url
	return lesson, nil
}
