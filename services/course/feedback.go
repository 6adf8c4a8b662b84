package course

import (
	"context"
	"errors"
	"strings"

	"learnhub/models"
	courseModels "learnhub/models/course"
	"learnhub/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FeedbackSummary struct {
	Items         []courseModels.Feedback `json:"items"`
	Count         int                     `json:"count"`
	AverageRating float64                 `json:"average_rating"`
}

// FeedbackService stores one rating per enrolled user per course.
type FeedbackService struct {
	db      *gorm.DB
	catalog *Catalog
}

func NewFeedbackService(db *gorm.DB, catalog *Catalog) *FeedbackService {
	return &FeedbackService{db: db, catalog: catalog}
}

// Submit creates the viewer's feedback or replaces their earlier rating and
// comment.
func (s *FeedbackService) Submit(ctx context.Context, viewer models.Identity, courseID uuid.UUID, rating int, comment string) (*courseModels.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, utils.ValidationError("rating must be between 1 and 5")
	}
	if _, err := s.catalog.GetCourse(ctx, viewer, courseID); err != nil {
		return nil, err
	}

	var enrolled int64
	err := s.db.WithContext(ctx).Model(&courseModels.Enrollment{}).
		Where("user_id = ? AND course_id = ?", viewer.UserID, courseID).
		Count(&enrolled).Error
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	if enrolled == 0 {
		return nil, utils.ForbiddenError("only enrolled users can leave feedback")
	}

	comment = strings.TrimSpace(comment)
	fb, err := s.upsert(ctx, viewer.UserID, courseID, rating, comment)
	if utils.IsUniqueViolation(err) {
		// a concurrent first submit won, overwrite it
		fb, err = s.upsert(ctx, viewer.UserID, courseID, rating, comment)
	}
	if err != nil {
		return nil, utils.MapDBError(err)
	}
	return fb, nil
}

func (s *FeedbackService) upsert(ctx context.Context, userID, courseID uuid.UUID, rating int, comment string) (*courseModels.Feedback, error) {
	var fb courseModels.Feedback
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&fb).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		fb = courseModels.Feedback{UserID: userID, CourseID: courseID, Rating: rating, Comment: comment}
		if err := s.db.WithContext(ctx).Create(&fb).Error; err != nil {
			return nil, err
		}
		return &fb, nil
	case err != nil:
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&fb).Updates(map[string]interface{}{
		"rating":  rating,
		"comment": comment,
	}).Error; err != nil {
		return nil, err
	}
	fb.Rating = rating
	fb.Comment = comment
	return &fb, nil
}

func (s *FeedbackService) ListForCourse(ctx context.Context, viewer models.Identity, courseID uuid.UUID) (*FeedbackSummary, error) {
	if _, err := s.catalog.GetCourse(ctx, viewer, courseID); err != nil {
		return nil, err
	}
	items := []courseModels.Feedback{}
	if err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, utils.MapDBError(err)
	}

	summary := &FeedbackSummary{Items: items, Count: len(items)}
	if len(items) > 0 {
		total := 0
		for _, fb := range items {
			total += fb.Rating
		}
		summary.AverageRating = utils.Round2(float64(total) / float64(len(items)))
	}
	return summary, nil
}
