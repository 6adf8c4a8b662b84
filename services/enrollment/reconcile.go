package enrollment

import (
	"context"

	"learnhub/utils"

	"github.com/google/uuid"
)

const reconcileBatchSize = 200

// ReconcileAll recomputes every enrollment in id order and returns how many
// rows had drifted. Errors on a single enrollment are logged and skipped.
func (e *Engine) ReconcileAll(ctx context.Context) (int, error) {
	repaired := 0
	after := uuid.Nil
	for {
		ids, err := e.enrollments.IDsAfter(ctx, after, reconcileBatchSize)
		if err != nil {
			return repaired, utils.MapDBError(err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return repaired, err
			}
			enr, changed, err := e.recompute(ctx, id)
			if err != nil {
				e.log.Warn("Reconcile skipped enrollment", "enrollment_id", id, "error", err)
				continue
			}
			if changed {
				repaired++
				e.ForgetStats(ctx, enr.UserID)
			}
		}
		after = ids[len(ids)-1]
	}
	e.log.Info("Reconciled enrollments", "repaired", repaired)
	return repaired, nil
}

// RecomputeCourse refreshes every enrollment of a course, used when its
// published lesson set changes.
func (e *Engine) RecomputeCourse(ctx context.Context, courseID uuid.UUID) error {
	ids, err := e.enrollments.IDsByCourse(ctx, courseID)
	if err != nil {
		return utils.MapDBError(err)
	}
	for _, id := range ids {
		if _, err := e.Recompute(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
