package tests

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("user%d", i)
		email := fmt.Sprintf("user%d@mail.com", i)
		password := fmt.Sprintf("user%d_password", i)

		client := env.newClient()
		login, err := client.register(name, email, password, registrationCode)
		if err != nil {
			t.Fatal(err)
		}

		_, err = client.register(name, email, password, registrationCode)
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("duplicate registration should conflict: %v", err)
		}

		err = client.login(loginInfo{Email: "nobody@mail.com", Password: password})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("login should fail with wrong email: %v", err)
		}

		err = client.login(loginInfo{Email: email, Password: "wrong_password"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("login should fail with wrong password: %v", err)
		}

		err = client.login(login)
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestRegistrationCodeGate(t *testing.T) {
	env := setupTestEnv(t)

	client := env.newClient()
	_, err := client.register("abc", "abc@mail.com", "abc_password", "wrong_code")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong registration code should be rejected: %v", err)
	}

	_, err = client.register("abc", "abc@mail.com", "abc_password", "")
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("missing registration code should be a bad request: %v", err)
	}

	// the code check ignores letter case
	_, err = client.register("abc", "abc@mail.com", "abc_password", "letmein")
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreateAdmin(t *testing.T) {
	env := setupTestEnv(t)

	client := env.newClient()
	err := client.createAdmin("boss", "boss@mail.com", "boss_password", "wrong_master")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong master password should be rejected: %v", err)
	}

	// the master password check is case sensitive
	err = client.createAdmin("boss", "boss@mail.com", "boss_password", "master_password_123")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("master password with wrong case should be rejected: %v", err)
	}

	err = client.createAdmin("boss", "boss@mail.com", "boss_password", masterPassword)
	if err != nil {
		t.Fatal(err)
	}

	users, err := client.listUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Role != "Admin" || users[0].Name != "boss" {
		t.Fatalf("unexpected user listing %v", users)
	}
}

func TestListUsersIsAdminOnly(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	_, err = user.listUsers()
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("regular users cannot list users: %v", err)
	}

	anonymous := env.newClient()
	_, err = anonymous.listUsers()
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unauthenticated requests are rejected: %v", err)
	}

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	users, err := admin.listUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %v", users)
	}
}

func TestUpdateEmail(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.newUser("xyz")
	if err != nil {
		t.Fatal(err)
	}

	err = user.Put("/users/email").Json(map[string]string{"email": "xyz@mail.com"}).Do(nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("email change to a taken address should conflict: %v", err)
	}

	err = user.Put("/users/email").Json(map[string]string{"email": "new@mail.com"}).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	err = user.login(loginInfo{Email: "abc@mail.com", Password: "abc_password"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old email should no longer work: %v", err)
	}

	err = user.login(loginInfo{Email: "new@mail.com", Password: "abc_password"})
	if err != nil {
		t.Fatal(err)
	}

	err = other.login(loginInfo{Email: "xyz@mail.com", Password: "xyz_password"})
	if err != nil {
		t.Fatal(err)
	}
}

func TestDeleteUser(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	err = user.deleteUser(admin.userId)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("regular users cannot delete users: %v", err)
	}

	if err := admin.deleteUser(user.userId); err != nil {
		t.Fatal(err)
	}

	// the deleted user's token is no longer usable
	_, err = user.listProjects()
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("token of a deleted user should be rejected: %v", err)
	}

	users, err := admin.listUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("expected only the admin to remain, got %v", users)
	}
}

func TestDeleteUserRemovesAvatarBlob(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	picture := bytes.NewReader([]byte("\x89PNG fake image bytes"))
	err = user.Put(fmt.Sprintf("/profiles/%v/picture", user.profileId)).Body(picture).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	blobPath := fmt.Sprintf("avatars/%v", user.profileId)
	exists, err := env.storage.Exists(blobPath)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("avatar blob should exist after upload")
	}

	if err := admin.deleteUser(user.userId); err != nil {
		t.Fatal(err)
	}

	exists, err = env.storage.Exists(blobPath)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("avatar blob should be removed with its user")
	}
}

func TestDeleteAllNonAdminUsers(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	var first client
	for i := 0; i < 3; i++ {
		user, err := env.newUser(fmt.Sprintf("user%d", i))
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			first = user
		}
	}

	picture := bytes.NewReader([]byte("\x89PNG fake image bytes"))
	err = first.Put(fmt.Sprintf("/profiles/%v/picture", first.profileId)).Body(picture).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	var res map[string]int
	err = admin.Delete("/users/admin/delete-all-non-admin").Do(&res)
	if err != nil {
		t.Fatal(err)
	}
	if res["deleted"] != 3 {
		t.Fatalf("expected 3 deleted users, got %v", res)
	}

	users, err := admin.listUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Role != "Admin" {
		t.Fatalf("only the admin should remain, got %v", users)
	}

	exists, err := env.storage.Exists(fmt.Sprintf("avatars/%v", first.profileId))
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("avatar blobs should be removed with their users")
	}
}
