package services

import (
	"sort"
	"sustainboard/board/schema"
)

type AnalysisSummary struct {
	TotalEntries     int `json:"totalEntries"`
	SdgsCovered      int `json:"sdgsCovered"`
	ActiveDimensions int `json:"activeDimensions"`
}

type NameValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type SdgCount struct {
	Sdg   int `json:"sdg"`
	Count int `json:"count"`
}

type ProjectAnalysis struct {
	Summary               AnalysisSummary `json:"summary"`
	ImpactDistribution    []NameValue     `json:"impactDistribution"`
	DimensionDistribution []NameValue     `json:"dimensionDistribution"`
	SdgCounts             []SdgCount      `json:"sdgCounts"`
}

var (
	relationTypes = []string{schema.RelationDirect, schema.RelationIndirect, schema.RelationHidden}
	dimensions    = []string{schema.DimensionEnvironmental, schema.DimensionSocial, schema.DimensionEconomic}
)

// distribution folds counts into {name, value} pairs in declared enum
// order, omitting names with zero entries.
func distribution(counts map[string]int, names []string) []NameValue {
	result := make([]NameValue, 0, len(names))
	for _, name := range names {
		if counts[name] > 0 {
			result = append(result, NameValue{Name: name, Value: counts[name]})
		}
	}
	return result
}

// Analyze computes the project analytics from its current impact set. It
// is a pure fold: same impacts in, same analysis out, and the only ordering
// guarantees are the enum order of the distributions and the ascending sdg
// id sort of SdgCounts. Impacts must have their sdg links loaded.
func Analyze(impacts []schema.Impact) ProjectAnalysis {
	relationCounts := make(map[string]int)
	dimensionCounts := make(map[string]int)
	sdgCounts := make(map[int]int)

	for _, impact := range impacts {
		relationCounts[impact.RelationType]++
		dimensionCounts[impact.Dimension]++
		for _, link := range impact.Sdgs {
			sdgCounts[link.SdgId]++
		}
	}

	sdgIds := make([]int, 0, len(sdgCounts))
	for id := range sdgCounts {
		sdgIds = append(sdgIds, id)
	}
	sort.Ints(sdgIds)

	sdgs := make([]SdgCount, 0, len(sdgIds))
	for _, id := range sdgIds {
		sdgs = append(sdgs, SdgCount{Sdg: id, Count: sdgCounts[id]})
	}

	return ProjectAnalysis{
		Summary: AnalysisSummary{
			TotalEntries:     len(impacts),
			SdgsCovered:      len(sdgCounts),
			ActiveDimensions: len(dimensionCounts),
		},
		ImpactDistribution:    distribution(relationCounts, relationTypes),
		DimensionDistribution: distribution(dimensionCounts, dimensions),
		SdgCounts:             sdgs,
	}
}
