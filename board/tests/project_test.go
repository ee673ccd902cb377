package tests

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestProjectCrud(t *testing.T) {
	env := setupTestEnv(t)

	owner, err := env.newUser("owner")
	if err != nil {
		t.Fatal(err)
	}

	err = owner.Post("/projects").Json(map[string]string{"description": "no title"}).Do(nil)
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("project creation requires a title: %v", err)
	}

	project, err := owner.createProject("Solar Farm", "rooftop solar rollout")
	if err != nil {
		t.Fatal(err)
	}
	if project.Title != "Solar Farm" || project.OwnerProfileId.String() != owner.profileId {
		t.Fatalf("unexpected project %v", project)
	}

	got, err := owner.getProject(project.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Id != project.Id || got.Description != "rooftop solar rollout" {
		t.Fatalf("unexpected project %v", got)
	}

	err = owner.Put(fmt.Sprintf("/projects/%v", project.Id)).
		Json(map[string]string{"title": "Solar Farm v2", "description": "updated"}).Do(&got)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Solar Farm v2" {
		t.Fatalf("update not applied: %v", got)
	}

	if err := owner.deleteProject(project.Id); err != nil {
		t.Fatal(err)
	}

	_, err = owner.getProject(project.Id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted project should be gone: %v", err)
	}
}

func TestProjectListVisibility(t *testing.T) {
	env := setupTestEnv(t)

	owner, err := env.newUser("owner")
	if err != nil {
		t.Fatal(err)
	}
	member, err := env.newUser("member")
	if err != nil {
		t.Fatal(err)
	}
	outsider, err := env.newUser("outsider")
	if err != nil {
		t.Fatal(err)
	}

	mine, err := owner.createProject("mine", "")
	if err != nil {
		t.Fatal(err)
	}
	shared, err := owner.createProject("shared", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := owner.addCollaborator(shared.Id, member.profileId, "Viewer"); err != nil {
		t.Fatal(err)
	}

	ownerProjects, err := owner.listProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(ownerProjects) != 2 {
		t.Fatalf("owner should see both projects, got %v", ownerProjects)
	}

	memberProjects, err := member.listProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(memberProjects) != 1 || memberProjects[0].Id != shared.Id {
		t.Fatalf("member should see only the shared project, got %v", memberProjects)
	}

	outsiderProjects, err := outsider.listProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(outsiderProjects) != 0 {
		t.Fatalf("outsider should see no projects, got %v", outsiderProjects)
	}

	_, err = outsider.getProject(mine.Id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("outsider access should be forbidden: %v", err)
	}
}

func TestProjectPermissionLadder(t *testing.T) {
	env := setupTestEnv(t)

	owner, err := env.newUser("owner")
	if err != nil {
		t.Fatal(err)
	}
	editor, err := env.newUser("editor")
	if err != nil {
		t.Fatal(err)
	}
	viewer, err := env.newUser("viewer")
	if err != nil {
		t.Fatal(err)
	}
	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	project, err := owner.createProject("proj", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := owner.addCollaborator(project.Id, editor.profileId, "Editor"); err != nil {
		t.Fatal(err)
	}
	if err := owner.addCollaborator(project.Id, viewer.profileId, "Viewer"); err != nil {
		t.Fatal(err)
	}

	update := map[string]string{"title": "renamed"}

	if _, err := viewer.getProject(project.Id); err != nil {
		t.Fatal(err)
	}
	err = viewer.Put(fmt.Sprintf("/projects/%v", project.Id)).Json(update).Do(nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("viewers cannot edit: %v", err)
	}

	err = editor.Put(fmt.Sprintf("/projects/%v", project.Id)).Json(update).Do(nil)
	if err != nil {
		t.Fatal(err)
	}
	err = editor.deleteProject(project.Id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("editors cannot delete: %v", err)
	}

	// the admin role grants nothing on projects it is not a member of
	err = admin.Put(fmt.Sprintf("/projects/%v", project.Id)).Json(update).Do(nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-member admins cannot edit: %v", err)
	}
	err = admin.deleteProject(project.Id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-member admins cannot delete: %v", err)
	}

	if err := owner.deleteProject(project.Id); err != nil {
		t.Fatal(err)
	}
}

func TestProjectAccessIgnoresAdminRole(t *testing.T) {
	env := setupTestEnv(t)

	owner, err := env.newUser("owner")
	if err != nil {
		t.Fatal(err)
	}
	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	project, err := owner.createProject("proj", "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = admin.projectAnalysis(project.Id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-member admins cannot read analysis: %v", err)
	}
	_, err = admin.getProject(project.Id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-member admins cannot read the project: %v", err)
	}

	if err := owner.addCollaborator(project.Id, admin.profileId, "Viewer"); err != nil {
		t.Fatal(err)
	}
	if _, err := admin.projectAnalysis(project.Id); err != nil {
		t.Fatal(err)
	}
}

func TestProjectNotFound(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	_, err = user.getProject(uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown project should be not found: %v", err)
	}

	err = user.Get("/projects/not-a-uuid").Do(nil)
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("invalid project id should be a bad request: %v", err)
	}
}

func TestCollaboratorLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	owner, err := env.newUser("owner")
	if err != nil {
		t.Fatal(err)
	}
	member, err := env.newUser("member")
	if err != nil {
		t.Fatal(err)
	}

	project, err := owner.createProject("proj", "")
	if err != nil {
		t.Fatal(err)
	}

	err = member.addCollaborator(project.Id, member.profileId, "Editor")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("only the owner can add collaborators: %v", err)
	}

	if err := owner.addCollaborator(project.Id, member.profileId, "Editor"); err != nil {
		t.Fatal(err)
	}

	err = owner.addCollaborator(project.Id, member.profileId, "Viewer")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate collaborator should conflict: %v", err)
	}

	err = owner.addCollaborator(project.Id, owner.profileId, "Editor")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("owner cannot be added as collaborator: %v", err)
	}

	collaborators, err := owner.listCollaborators(project.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(collaborators) != 1 || collaborators[0].Role != "Editor" || collaborators[0].Name != "member" {
		t.Fatalf("unexpected collaborators %v", collaborators)
	}

	if err := owner.removeCollaborator(project.Id, member.profileId); err != nil {
		t.Fatal(err)
	}

	err = owner.removeCollaborator(project.Id, member.profileId)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("removing a non-collaborator should be not found: %v", err)
	}
}

func TestCollaboratorSelfRemoval(t *testing.T) {
	env := setupTestEnv(t)

	owner, err := env.newUser("owner")
	if err != nil {
		t.Fatal(err)
	}
	member, err := env.newUser("member")
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.newUser("other")
	if err != nil {
		t.Fatal(err)
	}

	project, err := owner.createProject("proj", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := owner.addCollaborator(project.Id, member.profileId, "Viewer"); err != nil {
		t.Fatal(err)
	}
	if err := owner.addCollaborator(project.Id, other.profileId, "Viewer"); err != nil {
		t.Fatal(err)
	}

	err = member.removeCollaborator(project.Id, other.profileId)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("collaborators cannot remove each other: %v", err)
	}

	if err := member.removeCollaborator(project.Id, member.profileId); err != nil {
		t.Fatal(err)
	}

	_, err = member.getProject(project.Id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("removed collaborator loses access: %v", err)
	}
}

func TestOwnerRemovalTransfersOwnership(t *testing.T) {
	env := setupTestEnv(t)

	owner, err := env.newUser("owner")
	if err != nil {
		t.Fatal(err)
	}
	first, err := env.newUser("first")
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.newUser("second")
	if err != nil {
		t.Fatal(err)
	}

	project, err := owner.createProject("proj", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := owner.addCollaborator(project.Id, first.profileId, "Viewer"); err != nil {
		t.Fatal(err)
	}
	if err := owner.addCollaborator(project.Id, second.profileId, "Editor"); err != nil {
		t.Fatal(err)
	}

	if err := owner.removeCollaborator(project.Id, owner.profileId); err != nil {
		t.Fatal(err)
	}

	got, err := first.getProject(project.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.OwnerProfileId.String() != first.profileId {
		t.Fatalf("ownership should transfer to the first collaborator, got %v", got)
	}

	// the promoted collaborator no longer appears as a collaborator row
	collaborators, err := first.listCollaborators(project.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(collaborators) != 1 || collaborators[0].ProfileId.String() != second.profileId {
		t.Fatalf("unexpected collaborators after transfer %v", collaborators)
	}

	_, err = owner.getProject(project.Id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("removed owner loses access: %v", err)
	}
}

func TestSoleOwnerRemovalDeletesProject(t *testing.T) {
	env := setupTestEnv(t)

	owner, err := env.newUser("owner")
	if err != nil {
		t.Fatal(err)
	}

	project, err := owner.createProject("proj", "")
	if err != nil {
		t.Fatal(err)
	}
	impact, err := owner.createImpact(impactParams{
		ProjectId: project.Id, Title: "emissions", Score: 7,
		Dimension: "Environmental", RelationType: "Direct", Sdgs: []int{13},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := owner.removeCollaborator(project.Id, owner.profileId); err != nil {
		t.Fatal(err)
	}

	_, err = owner.getProject(project.Id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("project should be deleted with its sole owner: %v", err)
	}

	err = owner.Get(fmt.Sprintf("/impacts/%v", impact.Id)).Do(nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("impacts should be deleted with the project: %v", err)
	}
}
