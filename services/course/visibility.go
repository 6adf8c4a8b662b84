package course

import (
	"learnhub/models"

	"github.com/google/uuid"
)

// VisibleTo decides whether a viewer may see a course or lesson. Admins see
// everything, owners see their own drafts, everyone sees published content.
func VisibleTo(role string, viewerID, ownerID uuid.UUID, published bool) bool {
	if role == models.RoleAdmin {
		return true
	}
	if published {
		return true
	}
	return viewerID != uuid.Nil && viewerID == ownerID
}

// CanManage reports whether the viewer may modify a resource owned by ownerID.
func CanManage(viewer models.Identity, ownerID uuid.UUID) bool {
	return viewer.IsAdmin() || (viewer.UserID != uuid.Nil && viewer.UserID == ownerID)
}
