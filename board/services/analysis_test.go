package services

import (
	"testing"

	"sustainboard/board/schema"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func testImpact(relation, dimension string, sdgs ...int) schema.Impact {
	impact := schema.Impact{
		Id:           uuid.New(),
		Title:        "impact",
		Score:        5,
		Dimension:    dimension,
		RelationType: relation,
	}
	for _, sdg := range sdgs {
		impact.Sdgs = append(impact.Sdgs, schema.ImpactSdg{ImpactId: impact.Id, SdgId: sdg})
	}
	return impact
}

func TestAnalyzeEmpty(t *testing.T) {
	analysis := Analyze(nil)

	assert.Equal(t, AnalysisSummary{}, analysis.Summary)
	assert.Empty(t, analysis.ImpactDistribution)
	assert.Empty(t, analysis.DimensionDistribution)
	assert.Empty(t, analysis.SdgCounts)
}

func TestAnalyzeTwoImpacts(t *testing.T) {
	impacts := []schema.Impact{
		testImpact(schema.RelationDirect, schema.DimensionEnvironmental, 1, 2),
		testImpact(schema.RelationDirect, schema.DimensionSocial, 2),
	}

	analysis := Analyze(impacts)

	assert.Equal(t, AnalysisSummary{TotalEntries: 2, SdgsCovered: 2, ActiveDimensions: 2}, analysis.Summary)
	assert.Equal(t, []NameValue{{Name: schema.RelationDirect, Value: 2}}, analysis.ImpactDistribution)
	assert.Equal(t, []NameValue{
		{Name: schema.DimensionEnvironmental, Value: 1},
		{Name: schema.DimensionSocial, Value: 1},
	}, analysis.DimensionDistribution)
	assert.Equal(t, []SdgCount{{Sdg: 1, Count: 1}, {Sdg: 2, Count: 2}}, analysis.SdgCounts)
}

func TestAnalyzeDistributionsFollowEnumOrder(t *testing.T) {
	impacts := []schema.Impact{
		testImpact(schema.RelationHidden, schema.DimensionEconomic),
		testImpact(schema.RelationDirect, schema.DimensionEconomic, 17),
		testImpact(schema.RelationHidden, schema.DimensionEnvironmental, 3, 17),
	}

	analysis := Analyze(impacts)

	assert.Equal(t, []NameValue{
		{Name: schema.RelationDirect, Value: 1},
		{Name: schema.RelationHidden, Value: 2},
	}, analysis.ImpactDistribution)
	assert.Equal(t, []NameValue{
		{Name: schema.DimensionEnvironmental, Value: 1},
		{Name: schema.DimensionEconomic, Value: 2},
	}, analysis.DimensionDistribution)
	assert.Equal(t, []SdgCount{{Sdg: 3, Count: 1}, {Sdg: 17, Count: 2}}, analysis.SdgCounts)
}

func TestAnalyzeIsPure(t *testing.T) {
	impacts := []schema.Impact{
		testImpact(schema.RelationIndirect, schema.DimensionSocial, 5, 6),
		testImpact(schema.RelationDirect, schema.DimensionSocial, 5),
	}

	first := Analyze(impacts)
	second := Analyze(impacts)

	assert.Equal(t, first, second)
}
