package schema

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrProjectNotFound      = errors.New("project not found")
	ErrImpactNotFound       = errors.New("impact not found")
	ErrCollaboratorNotFound = errors.New("project collaborator not found")
	ErrDbAccessFailed       = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetProfile(profileId uuid.UUID, db *gorm.DB) (Profile, error) {
	var profile Profile

	result := db.First(&profile, "id = ?", profileId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return profile, ErrProfileNotFound
		}
		slog.Error("sql error in get profile", "profile_id", profileId, "error", result.Error)
		return profile, ErrDbAccessFailed
	}

	return profile, nil
}

// GetProfileForUser resolves the profile owned by the given user. Most
// resource checks start here since projects and collaborations hang off
// profiles, not users.
func GetProfileForUser(userId uuid.UUID, db *gorm.DB) (Profile, error) {
	var profile Profile

	result := db.First(&profile, "user_id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return profile, ErrProfileNotFound
		}
		slog.Error("sql error in get profile for user", "user_id", userId, "error", result.Error)
		return profile, ErrDbAccessFailed
	}

	return profile, nil
}

func GetProject(projectId uuid.UUID, db *gorm.DB, loadCollaborators bool) (Project, error) {
	var project Project

	query := db
	if loadCollaborators {
		query = query.Preload("Collaborators")
	}

	result := query.First(&project, "id = ?", projectId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return project, ErrProjectNotFound
		}
		slog.Error("sql error in get project", "project_id", projectId, "error", result.Error)
		return project, ErrDbAccessFailed
	}

	return project, nil
}

func GetImpact(impactId uuid.UUID, db *gorm.DB, loadSdgs bool) (Impact, error) {
	var impact Impact

	query := db
	if loadSdgs {
		query = query.Preload("Sdgs")
	}

	result := query.First(&impact, "id = ?", impactId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return impact, ErrImpactNotFound
		}
		slog.Error("sql error in get impact", "impact_id", impactId, "error", result.Error)
		return impact, ErrDbAccessFailed
	}

	return impact, nil
}

func GetCollaborator(projectId, profileId uuid.UUID, db *gorm.DB) (ProjectCollaborator, error) {
	var collaborator ProjectCollaborator

	result := db.First(&collaborator, "project_id = ? and profile_id = ?", projectId, profileId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return collaborator, ErrCollaboratorNotFound
		}
		slog.Error("sql error in get collaborator", "project_id", projectId, "profile_id", profileId, "error", result.Error)
		return collaborator, ErrDbAccessFailed
	}

	return collaborator, nil
}

// The 17 UN Sustainable Development Goals, ids 1-17.
var SdgNames = []string{
	"No Poverty",
	"Zero Hunger",
	"Good Health and Well-being",
	"Quality Education",
	"Gender Equality",
	"Clean Water and Sanitation",
	"Affordable and Clean Energy",
	"Decent Work and Economic Growth",
	"Industry, Innovation and Infrastructure",
	"Reduced Inequalities",
	"Sustainable Cities and Communities",
	"Responsible Consumption and Production",
	"Climate Action",
	"Life Below Water",
	"Life on Land",
	"Peace, Justice and Strong Institutions",
	"Partnerships for the Goals",
}

// SeedSdgs inserts the fixed SDG reference rows if they are not already
// present. Safe to call on every startup.
func SeedSdgs(db *gorm.DB) error {
	return db.Transaction(func(txn *gorm.DB) error {
		var count int64
		result := txn.Model(&Sdg{}).Count(&count)
		if result.Error != nil {
			slog.Error("sql error counting sdg rows", "error", result.Error)
			return ErrDbAccessFailed
		}
		if count == int64(len(SdgNames)) {
			return nil
		}

		for i, name := range SdgNames {
			sdg := Sdg{Id: i + 1, Name: name}
			result := txn.Save(&sdg)
			if result.Error != nil {
				slog.Error("sql error seeding sdg row", "sdg_id", sdg.Id, "error", result.Error)
				return ErrDbAccessFailed
			}
		}
		return nil
	})
}

func CheckValidDimension(dimension string) error {
	switch dimension {
	case DimensionEnvironmental, DimensionSocial, DimensionEconomic:
		return nil
	}
	return fmt.Errorf("invalid sustainability dimension '%v'", dimension)
}

func CheckValidRelationType(relationType string) error {
	switch relationType {
	case RelationDirect, RelationIndirect, RelationHidden:
		return nil
	}
	return fmt.Errorf("invalid relation type '%v'", relationType)
}

func CheckValidCollaboratorRole(role string) error {
	switch role {
	case CollaboratorOwner, CollaboratorEditor, CollaboratorViewer:
		return nil
	}
	return fmt.Errorf("invalid collaborator role '%v'", role)
}
