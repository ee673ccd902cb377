package schema

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	Role string `gorm:"size:50;not null;default:'User'"`

	Profile *Profile `gorm:"constraint:OnDelete:CASCADE"`
}

type Profile struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserId uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	User   *User

	Name         string `gorm:"size:100;not null"`
	AvatarPath   string `gorm:"size:500"`
	JobTitle     string `gorm:"size:100"`
	Department   string `gorm:"size:100"`
	Organization string `gorm:"size:100"`
	Location     string `gorm:"size:100"`

	Projects []Project `gorm:"foreignKey:ProfileId"`
}

type Project struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Title       string `gorm:"size:200;not null"`
	Description string

	ProfileId uuid.UUID `gorm:"type:uuid;not null"`
	Profile   *Profile

	Impacts       []Impact              `gorm:"constraint:OnDelete:CASCADE"`
	Collaborators []ProjectCollaborator `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	CollaboratorOwner  = "Owner"
	CollaboratorEditor = "Editor"
	CollaboratorViewer = "Viewer"
)

type ProjectCollaborator struct {
	ProjectId uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProfileId uuid.UUID `gorm:"type:uuid;primaryKey"`

	Role string `gorm:"size:50;not null;default:'Viewer'"`

	Project *Project `gorm:"constraint:OnDelete:CASCADE"`
	Profile *Profile `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
}

const (
	DimensionEnvironmental = "Environmental"
	DimensionSocial        = "Social"
	DimensionEconomic      = "Economic"
)

const (
	RelationDirect   = "Direct"
	RelationIndirect = "Indirect"
	RelationHidden   = "Hidden"
)

const (
	MinImpactScore = 1
	MaxImpactScore = 10
)

type Impact struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	ProjectId uuid.UUID `gorm:"type:uuid;not null;index"`
	Project   *Project

	SectionType  string `gorm:"size:100"`
	Title        string `gorm:"size:200;not null"`
	Description  string
	Score        int    `gorm:"not null"`
	Dimension    string `gorm:"size:50;not null"`
	RelationType string `gorm:"size:50;not null"`

	Sdgs []ImpactSdg `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type ImpactSdg struct {
	ImpactId uuid.UUID `gorm:"type:uuid;primaryKey"`
	SdgId    int       `gorm:"primaryKey"`

	Impact *Impact `gorm:"constraint:OnDelete:CASCADE"`
	Sdg    *Sdg
}

// Sdg rows are fixed reference data, seeded once with ids 1-17 and never
// modified afterwards.
type Sdg struct {
	Id   int    `gorm:"primaryKey"`
	Name string `gorm:"size:200;not null"`
}

type AppSetting struct {
	Key       string `gorm:"primaryKey;size:100"`
	Value     string `gorm:"size:500;not null"`
	UpdatedAt time.Time
}
