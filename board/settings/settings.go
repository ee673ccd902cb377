// Package settings holds the two admin-controlled gate values: the
// registration code required to self-register, and the master password
// required to bootstrap an admin account. Both are persisted as AppSetting
// rows and read through to built-in defaults when storage is unreadable,
// so a broken settings table never locks everyone out.
package settings

import (
	"errors"
	"log/slog"
	"strings"
	"sustainboard/board/schema"

	"gorm.io/gorm"
)

const (
	RegistrationCodeKey = "registration_code"
	MasterPasswordKey   = "master_password"
)

type Store struct {
	db *gorm.DB

	defaultRegistrationCode string
	defaultMasterPassword   string
}

func NewStore(db *gorm.DB, defaultRegistrationCode, defaultMasterPassword string) *Store {
	return &Store{
		db:                      db,
		defaultRegistrationCode: defaultRegistrationCode,
		defaultMasterPassword:   defaultMasterPassword,
	}
}

// get reads the current value for key, falling back to fallback if the row
// is missing or the read fails. Values are read on every call so an admin
// update takes effect immediately.
func (s *Store) get(key, fallback string) string {
	var setting schema.AppSetting

	result := s.db.First(&setting, "key = ?", key)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			slog.Error("sql error reading app setting, using default", "key", key, "error", result.Error)
		}
		return fallback
	}

	return setting.Value
}

func (s *Store) set(key, value string) error {
	setting := schema.AppSetting{Key: key, Value: value}

	result := s.db.Save(&setting)
	if result.Error != nil {
		slog.Error("sql error writing app setting", "key", key, "error", result.Error)
		return schema.ErrDbAccessFailed
	}

	return nil
}

func (s *Store) RegistrationCode() string {
	return s.get(RegistrationCodeKey, s.defaultRegistrationCode)
}

func (s *Store) SetRegistrationCode(code string) error {
	return s.set(RegistrationCodeKey, code)
}

func (s *Store) MasterPassword() string {
	return s.get(MasterPasswordKey, s.defaultMasterPassword)
}

func (s *Store) SetMasterPassword(password string) error {
	return s.set(MasterPasswordKey, password)
}

// CheckRegistrationCode is case-insensitive, the gate code is shared out of
// band and users retype it.
func (s *Store) CheckRegistrationCode(code string) bool {
	return strings.EqualFold(code, s.RegistrationCode())
}

// CheckMasterPassword is case-sensitive, unlike the registration code.
func (s *Store) CheckMasterPassword(password string) bool {
	return password == s.MasterPassword()
}
