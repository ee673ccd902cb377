package tests

import (
	"errors"
	"testing"

	"sustainboard/board/services"
)

func TestProjectAnalysis(t *testing.T) {
	env := setupTestEnv(t)

	owner, err := env.newUser("owner")
	if err != nil {
		t.Fatal(err)
	}
	viewer, err := env.newUser("viewer")
	if err != nil {
		t.Fatal(err)
	}
	outsider, err := env.newUser("outsider")
	if err != nil {
		t.Fatal(err)
	}

	project, err := owner.createProject("proj", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := owner.addCollaborator(project.Id, viewer.profileId, "Viewer"); err != nil {
		t.Fatal(err)
	}

	analysis, err := owner.projectAnalysis(project.Id)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.Summary.TotalEntries != 0 || len(analysis.SdgCounts) != 0 {
		t.Fatalf("empty project should have empty analysis, got %v", analysis)
	}

	_, err = owner.createImpact(validImpact(impactParams{
		ProjectId: project.Id, Dimension: "Environmental", RelationType: "Direct", Sdgs: []int{1, 2},
	}))
	if err != nil {
		t.Fatal(err)
	}
	_, err = owner.createImpact(validImpact(impactParams{
		ProjectId: project.Id, Dimension: "Social", RelationType: "Direct", Sdgs: []int{2},
	}))
	if err != nil {
		t.Fatal(err)
	}

	analysis, err = viewer.projectAnalysis(project.Id)
	if err != nil {
		t.Fatal(err)
	}

	expectedSummary := services.AnalysisSummary{TotalEntries: 2, SdgsCovered: 2, ActiveDimensions: 2}
	if analysis.Summary != expectedSummary {
		t.Fatalf("unexpected summary %v", analysis.Summary)
	}

	if len(analysis.ImpactDistribution) != 1 || analysis.ImpactDistribution[0] != (services.NameValue{Name: "Direct", Value: 2}) {
		t.Fatalf("unexpected impact distribution %v", analysis.ImpactDistribution)
	}

	expectedDimensions := []services.NameValue{{Name: "Environmental", Value: 1}, {Name: "Social", Value: 1}}
	if len(analysis.DimensionDistribution) != 2 ||
		analysis.DimensionDistribution[0] != expectedDimensions[0] ||
		analysis.DimensionDistribution[1] != expectedDimensions[1] {
		t.Fatalf("unexpected dimension distribution %v", analysis.DimensionDistribution)
	}

	expectedSdgs := []services.SdgCount{{Sdg: 1, Count: 1}, {Sdg: 2, Count: 2}}
	if len(analysis.SdgCounts) != 2 || analysis.SdgCounts[0] != expectedSdgs[0] || analysis.SdgCounts[1] != expectedSdgs[1] {
		t.Fatalf("unexpected sdg counts %v", analysis.SdgCounts)
	}

	_, err = outsider.projectAnalysis(project.Id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("outsiders cannot read the analysis: %v", err)
	}
}

func TestSdgCatalog(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("abc")
	if err != nil {
		t.Fatal(err)
	}

	var sdgs []services.SdgInfo
	if err := user.Get("/sdgs").Do(&sdgs); err != nil {
		t.Fatal(err)
	}

	if len(sdgs) != 17 {
		t.Fatalf("expected 17 sdgs, got %d", len(sdgs))
	}
	if sdgs[0].Id != 1 || sdgs[0].Name != "No Poverty" {
		t.Fatalf("unexpected first sdg %v", sdgs[0])
	}
	if sdgs[16].Id != 17 {
		t.Fatalf("catalog should be ordered by id, got %v", sdgs[16])
	}

	anonymous := env.newClient()
	err = anonymous.Get("/sdgs").Do(nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("catalog requires authentication: %v", err)
	}
}
