// Package consistency implements the multi-row invariants of the data
// graph as explicit transaction-scoped operations: collaborator conflicts,
// ownership transfer on owner removal, and the cascades that keep projects,
// impacts, and sdg links from outliving their parents. Every function here
// expects to run inside a transaction so the graph is never observable in
// an intermediate state.
package consistency

import (
	"errors"
	"log/slog"
	"sustainboard/board/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrDuplicateCollaborator = errors.New("profile is already associated with project")

// AddCollaborator associates a profile with a project. The association
// conflicts if the profile is the project's owner or already listed as a
// collaborator.
func AddCollaborator(txn *gorm.DB, projectId, profileId uuid.UUID, role string) error {
	project, err := schema.GetProject(projectId, txn, false)
	if err != nil {
		return err
	}

	if _, err := schema.GetProfile(profileId, txn); err != nil {
		return err
	}

	if project.ProfileId == profileId {
		return ErrDuplicateCollaborator
	}

	_, err = schema.GetCollaborator(projectId, profileId, txn)
	if err == nil {
		return ErrDuplicateCollaborator
	}
	if !errors.Is(err, schema.ErrCollaboratorNotFound) {
		return err
	}

	collaborator := schema.ProjectCollaborator{ProjectId: projectId, ProfileId: profileId, Role: role}
	result := txn.Create(&collaborator)
	if result.Error != nil {
		slog.Error("sql error creating collaborator entry", "project_id", projectId, "profile_id", profileId, "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	return nil
}

// DeleteImpact removes an impact together with its sdg links.
func DeleteImpact(txn *gorm.DB, impactId uuid.UUID) error {
	result := txn.Where("impact_id = ?", impactId).Delete(&schema.ImpactSdg{})
	if result.Error != nil {
		slog.Error("sql error deleting impact sdg links", "impact_id", impactId, "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	result = txn.Delete(&schema.Impact{Id: impactId})
	if result.Error != nil {
		slog.Error("sql error deleting impact", "impact_id", impactId, "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	return nil
}

// DeleteProject removes a project and everything hanging off it: impacts,
// their sdg links, and collaborator rows.
func DeleteProject(txn *gorm.DB, projectId uuid.UUID) error {
	var impactIds []uuid.UUID
	result := txn.Model(&schema.Impact{}).Where("project_id = ?", projectId).Pluck("id", &impactIds)
	if result.Error != nil {
		slog.Error("sql error listing project impacts", "project_id", projectId, "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	if len(impactIds) > 0 {
		result = txn.Where("impact_id IN ?", impactIds).Delete(&schema.ImpactSdg{})
		if result.Error != nil {
			slog.Error("sql error deleting impact sdg links for project", "project_id", projectId, "error", result.Error)
			return schema.ErrDbAccessFailed
		}

		result = txn.Where("project_id = ?", projectId).Delete(&schema.Impact{})
		if result.Error != nil {
			slog.Error("sql error deleting project impacts", "project_id", projectId, "error", result.Error)
			return schema.ErrDbAccessFailed
		}
	}

	result = txn.Where("project_id = ?", projectId).Delete(&schema.ProjectCollaborator{})
	if result.Error != nil {
		slog.Error("sql error deleting project collaborators", "project_id", projectId, "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	result = txn.Delete(&schema.Project{Id: projectId})
	if result.Error != nil {
		slog.Error("sql error deleting project", "project_id", projectId, "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	return nil
}

// nextOwner picks the collaborator ownership transfers to when the current
// owner is removed: earliest association first, profile id as tiebreak so
// the pick is deterministic.
func nextOwner(txn *gorm.DB, projectId uuid.UUID) (schema.ProjectCollaborator, bool, error) {
	var collaborator schema.ProjectCollaborator

	result := txn.Order("created_at asc, profile_id asc").Limit(1).Find(&collaborator, "project_id = ?", projectId)
	if result.Error != nil {
		slog.Error("sql error finding successor collaborator", "project_id", projectId, "error", result.Error)
		return collaborator, false, schema.ErrDbAccessFailed
	}

	return collaborator, result.RowsAffected != 0, nil
}

// RemoveCollaborator removes a profile's association with a project.
// Removing a non-owner deletes just the association row. Removing the
// owner either transfers ownership to the next collaborator (whose own
// association row is then removed, since ownership is tracked on the
// project) or, when no collaborator remains, deletes the project entirely.
func RemoveCollaborator(txn *gorm.DB, projectId, profileId uuid.UUID) error {
	project, err := schema.GetProject(projectId, txn, false)
	if err != nil {
		return err
	}

	if project.ProfileId != profileId {
		if _, err := schema.GetCollaborator(projectId, profileId, txn); err != nil {
			return err
		}

		result := txn.Delete(&schema.ProjectCollaborator{ProjectId: projectId, ProfileId: profileId})
		if result.Error != nil {
			slog.Error("sql error deleting collaborator entry", "project_id", projectId, "profile_id", profileId, "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		return nil
	}

	successor, found, err := nextOwner(txn, projectId)
	if err != nil {
		return err
	}

	if !found {
		slog.Info("removing sole owner, deleting project", "project_id", projectId, "profile_id", profileId)
		return DeleteProject(txn, projectId)
	}

	result := txn.Model(&schema.Project{}).Where("id = ?", projectId).Update("profile_id", successor.ProfileId)
	if result.Error != nil {
		slog.Error("sql error transferring project ownership", "project_id", projectId, "new_owner", successor.ProfileId, "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	result = txn.Delete(&schema.ProjectCollaborator{ProjectId: projectId, ProfileId: successor.ProfileId})
	if result.Error != nil {
		slog.Error("sql error deleting promoted collaborator entry", "project_id", projectId, "profile_id", successor.ProfileId, "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	slog.Info("project ownership transferred", "project_id", projectId, "old_owner", profileId, "new_owner", successor.ProfileId)
	return nil
}

// DeleteUser removes a user, its profile, and applies the owner-removal
// rules to every project the profile owns: ownership transfers where
// another collaborator exists, otherwise the project and its dependents
// are deleted.
func DeleteUser(txn *gorm.DB, userId uuid.UUID) error {
	if _, err := schema.GetUser(userId, txn); err != nil {
		return err
	}

	profile, err := schema.GetProfileForUser(userId, txn)
	if err != nil && !errors.Is(err, schema.ErrProfileNotFound) {
		return err
	}

	if err == nil {
		var owned []schema.Project
		result := txn.Find(&owned, "profile_id = ?", profile.Id)
		if result.Error != nil {
			slog.Error("sql error listing owned projects", "profile_id", profile.Id, "error", result.Error)
			return schema.ErrDbAccessFailed
		}

		for _, project := range owned {
			if err := RemoveCollaborator(txn, project.Id, profile.Id); err != nil {
				return err
			}
		}

		result = txn.Where("profile_id = ?", profile.Id).Delete(&schema.ProjectCollaborator{})
		if result.Error != nil {
			slog.Error("sql error deleting collaborator entries for profile", "profile_id", profile.Id, "error", result.Error)
			return schema.ErrDbAccessFailed
		}

		result = txn.Delete(&schema.Profile{Id: profile.Id})
		if result.Error != nil {
			slog.Error("sql error deleting profile", "profile_id", profile.Id, "error", result.Error)
			return schema.ErrDbAccessFailed
		}
	}

	result := txn.Delete(&schema.User{Id: userId})
	if result.Error != nil {
		slog.Error("sql error deleting user", "user_id", userId, "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	return nil
}

// DeleteAllNonAdminUsers applies DeleteUser to every non-admin user.
// Returns the number of users removed.
func DeleteAllNonAdminUsers(txn *gorm.DB) (int, error) {
	var userIds []uuid.UUID
	result := txn.Model(&schema.User{}).Where("role <> ?", schema.RoleAdmin).Pluck("id", &userIds)
	if result.Error != nil {
		slog.Error("sql error listing non-admin users", "error", result.Error)
		return 0, schema.ErrDbAccessFailed
	}

	for _, userId := range userIds {
		if err := DeleteUser(txn, userId); err != nil {
			return 0, err
		}
	}

	return len(userIds), nil
}
