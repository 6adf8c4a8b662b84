package enrollment

import (
	"context"
	"time"

	courseModels "learnhub/models/course"
	"learnhub/utils"

	"gorm.io/gorm"
)

const notifyTimeout = 15 * time.Second

// CompletionNotifier emails a student once their enrollment reaches 100%.
// Delivery is best effort: failures are logged and never reach the caller.
type CompletionNotifier struct {
	db     *gorm.DB
	users  utils.UserDirectory
	mailer utils.Mailer
	log    *utils.Logger
}

// NewCompletionNotifier returns nil when no user directory is configured,
// since there is no address to send to.
func NewCompletionNotifier(db *gorm.DB, users utils.UserDirectory, mailer utils.Mailer, log *utils.Logger) *CompletionNotifier {
	if users == nil || mailer == nil {
		return nil
	}
	return &CompletionNotifier{db: db, users: users, mailer: mailer, log: log}
}

// CourseCompleted sends the email in the background.
func (n *CompletionNotifier) CourseCompleted(enr courseModels.Enrollment) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := n.Notify(ctx, enr); err != nil {
			n.log.Warn("Completion email not sent", "enrollment_id", enr.ID, "error", err)
		}
	}()
}

func (n *CompletionNotifier) Notify(ctx context.Context, enr courseModels.Enrollment) error {
	var course courseModels.Course
	if err := n.db.WithContext(ctx).Where("id = ?", enr.CourseID).First(&course).Error; err != nil {
		return err
	}
	user, err := n.users.GetUser(ctx, enr.UserID.String())
	if err != nil {
		return err
	}
	if user.Email == "" {
		return nil
	}
	return utils.SendCourseCompletedEmail(ctx, n.mailer, user.Name, user.Email, course.Title)
}
