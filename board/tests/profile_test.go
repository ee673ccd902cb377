package tests

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"sustainboard/board/services"
)

func (c *client) getProfile(profileId string) (services.ProfileInfo, error) {
	var profile services.ProfileInfo
	err := c.Get(fmt.Sprintf("/profiles/%v", profileId)).Do(&profile)
	return profile, err
}

func TestProfileReadAndUpdate(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	profile, err := user.getProfile(user.profileId)
	if err != nil {
		t.Fatal(err)
	}
	if profile.Name != "abc" || profile.UserId.String() != user.userId || profile.HasPicture {
		t.Fatalf("unexpected profile %v", profile)
	}

	update := map[string]string{
		"name": "Alice", "jobTitle": "Analyst", "department": "ESG",
		"organization": "Acme", "location": "Berlin",
	}
	err = user.Put(fmt.Sprintf("/profiles/%v", user.profileId)).Json(update).Do(&profile)
	if err != nil {
		t.Fatal(err)
	}
	if profile.Name != "Alice" || profile.JobTitle != "Analyst" || profile.Location != "Berlin" {
		t.Fatalf("update not applied: %v", profile)
	}

	err = user.Put(fmt.Sprintf("/profiles/%v", user.profileId)).Json(map[string]string{"jobTitle": "no name"}).Do(nil)
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("profile update requires a name: %v", err)
	}
}

func TestProfileSelfOrAdminRule(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.newUser("xyz")
	if err != nil {
		t.Fatal(err)
	}
	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	_, err = other.getProfile(user.profileId)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("users cannot read other profiles: %v", err)
	}

	profile, err := admin.getProfile(user.profileId)
	if err != nil {
		t.Fatal(err)
	}
	if profile.Name != "abc" {
		t.Fatalf("unexpected profile %v", profile)
	}

	_, err = user.getProfile("00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown profile should be not found: %v", err)
	}
}

func TestProfilePicture(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	err = user.Get(fmt.Sprintf("/profiles/%v/picture", user.profileId)).Do(nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing picture should be not found: %v", err)
	}

	picture := []byte("\x89PNG fake image bytes")
	err = user.Put(fmt.Sprintf("/profiles/%v/picture", user.profileId)).Body(bytes.NewReader(picture)).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	profile, err := user.getProfile(user.profileId)
	if err != nil {
		t.Fatal(err)
	}
	if !profile.HasPicture {
		t.Fatalf("profile should report a picture: %v", profile)
	}

	req := user.Get(fmt.Sprintf("/profiles/%v/picture", user.profileId))
	var buf bytes.Buffer
	if err := req.DoRaw(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), picture) {
		t.Fatalf("picture roundtrip mismatch, got %d bytes", buf.Len())
	}

	other, err := env.newUser("xyz")
	if err != nil {
		t.Fatal(err)
	}
	err = other.Get(fmt.Sprintf("/profiles/%v/picture", user.profileId)).Do(nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("users cannot read other users' pictures: %v", err)
	}
}
