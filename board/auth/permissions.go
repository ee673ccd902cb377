package auth

import (
	"errors"
	"fmt"
	"net/http"
	"sustainboard/board/schema"
	"sustainboard/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func AdminOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if !IsAdmin(user) {
				http.Error(w, "admin access required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

type projectPermission int // Private so that no other permissions can be defined

const (
	NoPermission    projectPermission = 0
	ViewPermission  projectPermission = 1
	EditPermission  projectPermission = 2
	OwnerPermission projectPermission = 3
)

func projectPermissionToString(perm projectPermission) string {
	switch perm {
	case NoPermission:
		return "None"
	case ViewPermission:
		return "View"
	case EditPermission:
		return "Edit"
	case OwnerPermission:
		return "Owner"
	default:
		return "invalid permission"
	}
}

func collaboratorPermission(role string) projectPermission {
	switch role {
	case schema.CollaboratorOwner, schema.CollaboratorEditor:
		return EditPermission
	case schema.CollaboratorViewer:
		return ViewPermission
	}
	return NoPermission
}

// GetProjectPermissions resolves the caller's access to a project from the
// ownership/collaboration graph. Admins get no special treatment here:
// project access comes only from owning or collaborating on the project.
// A caller without a profile cannot hold any project access, so
// ErrProfileNotFound propagates (surfaced as 404, not 403). Re-evaluated on
// every request, nothing is cached.
func GetProjectPermissions(projectId uuid.UUID, user schema.User, db *gorm.DB) (projectPermission, error) {
	profile, err := schema.GetProfileForUser(user.Id, db)
	if err != nil {
		return NoPermission, err
	}

	project, err := schema.GetProject(projectId, db, false)
	if err != nil {
		return NoPermission, err
	}

	if project.ProfileId == profile.Id {
		return OwnerPermission, nil
	}

	collaborator, err := schema.GetCollaborator(projectId, profile.Id, db)
	if err != nil {
		if errors.Is(err, schema.ErrCollaboratorNotFound) {
			return NoPermission, nil
		}
		return NoPermission, err
	}

	return collaboratorPermission(collaborator.Role), nil
}

// ProjectAccessOnly gates routes carrying a {project_id} url parameter on
// the caller holding at least minPermission for that project.
func ProjectAccessOnly(db *gorm.DB, minPermission projectPermission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			projectId, err := utils.URLParamUUID(r, "project_id")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			permission, err := GetProjectPermissions(projectId, user, db)
			if err != nil {
				if errors.Is(err, schema.ErrProfileNotFound) || errors.Is(err, schema.ErrProjectNotFound) {
					http.Error(w, err.Error(), http.StatusNotFound)
					return
				}
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if permission >= minPermission {
				next.ServeHTTP(w, r)
				return
			}

			required, actual := projectPermissionToString(minPermission), projectPermissionToString(permission)
			http.Error(w, fmt.Sprintf("user %v does not have required permission for project %v (required=%v, actual=%v)", user.Id, projectId, required, actual), http.StatusForbidden)
		}
		return http.HandlerFunc(hfn)
	}
}
