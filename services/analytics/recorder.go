package analytics

import (
	"context"
	"errors"
	"time"

	"learnhub/models"
	"learnhub/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TopCoursesKey          = "top_courses"
	courseMetricsKeyPrefix = "course_metrics:"
)

func CourseMetricsKey(courseID uuid.UUID) string {
	return courseMetricsKeyPrefix + courseID.String()
}

type EventInput struct {
	EventType models.EventType
	UserID    uuid.UUID
	CourseID  uuid.UUID
	UserRole  string
	// OccurredAt defaults to now. Its UTC day selects the metric bucket.
	OccurredAt time.Time
}

// Recorder appends audit events and keeps the daily counters in step with
// them.
type Recorder struct {
	db      *gorm.DB
	metrics *MetricStore
	cache   utils.Cache
	log     *utils.Logger
	now     func() time.Time
}

func NewRecorder(db *gorm.DB, metrics *MetricStore, cache utils.Cache, log *utils.Logger) *Recorder {
	return &Recorder{db: db, metrics: metrics, cache: cache, log: log, now: time.Now}
}

// RecordEvent inserts the event and increments its bucket in one
// transaction. Either both land or neither does.
func (r *Recorder) RecordEvent(ctx context.Context, in EventInput) (*models.AnalyticsEvent, error) {
	if !in.EventType.Valid() {
		return nil, utils.ValidationError("event_type must be view or enroll")
	}
	if in.UserID == uuid.Nil {
		return nil, utils.ValidationError("user_id is required")
	}
	if in.CourseID == uuid.Nil {
		return nil, utils.ValidationError("course_id is required")
	}

	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = r.now()
	}
	event := &models.AnalyticsEvent{
		EventType: in.EventType,
		UserID:    in.UserID,
		CourseID:  in.CourseID,
		UserRole:  in.UserRole,
		CreatedAt: occurredAt.UTC(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		return r.metrics.Increment(tx, in.CourseID, occurredAt, in.EventType)
	})
	if err != nil {
		if utils.IsUniqueViolation(err) {
			return nil, errors.Join(utils.ErrTransient, err)
		}
		return nil, utils.MapDBError(err)
	}

	r.cache.Delete(ctx, TopCoursesKey, CourseMetricsKey(in.CourseID))
	r.log.Debug("Recorded analytics event", "event_type", in.EventType, "course_id", in.CourseID, "event_id", event.ID)
	return event, nil
}
