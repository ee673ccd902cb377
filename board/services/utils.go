package services

import (
	"errors"
	"log/slog"
	"net/http"
	"sustainboard/board/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

func checkUserExists(txn *gorm.DB, userId uuid.UUID) error {
	if _, err := schema.GetUser(userId, txn); err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkProjectExists(txn *gorm.DB, projectId uuid.UUID) error {
	if _, err := schema.GetProject(projectId, txn, false); err != nil {
		if errors.Is(err, schema.ErrProjectNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

// callerProfile resolves the caller's profile, mapping a missing profile to
// 404 since every profile-dependent operation treats it as a prerequisite.
func callerProfile(db *gorm.DB, userId uuid.UUID) (schema.Profile, error) {
	profile, err := schema.GetProfileForUser(userId, db)
	if err != nil {
		if errors.Is(err, schema.ErrProfileNotFound) {
			return profile, CodedError(err, http.StatusNotFound)
		}
		return profile, CodedError(err, http.StatusInternalServerError)
	}
	return profile, nil
}

// checkValidSdgIds verifies every referenced sdg id is one of the 17 fixed
// reference rows.
func checkValidSdgIds(sdgIds []int) error {
	for _, id := range sdgIds {
		if id < 1 || id > len(schema.SdgNames) {
			return errors.New("sdg ids must be between 1 and 17")
		}
	}
	return nil
}
