package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbagrov/bimtally/internal/model"
)

func summaryWith(top, sub, label string, count int, volume float64) *model.Summary {
	s := model.NewSummary()
	g := s.EnsureGroup(top, sub)
	g.Label = label
	g.TotalCount = count
	g.TotalVolumeM3 = Round3(volume)
	g.Breakdown = []model.BreakdownItem{
		{TypeName: label, Count: count, VolumeM3: volume},
	}
	return s
}

func TestMerge_AddsTotalsAndConcatenatesBreakdowns(t *testing.T) {
	base := summaryWith("structural", "wall", "Стены", 5, 10.5)
	extra := summaryWith("structural", "wall", "Стены", 3, 2.25)
	extra.Unrecognized = []model.UnrecognizedItem{
		{Category: "Walls", TypeName: "Парапет", Count: 2, VolumeM3: 0.8},
	}

	Merge(base, extra)

	g := base.Group("structural", "wall")
	require.NotNil(t, g)
	assert.Equal(t, 8, g.TotalCount)
	assert.Equal(t, 12.75, g.TotalVolumeM3)
	assert.Len(t, g.Breakdown, 2)
	require.Len(t, base.Unrecognized, 1)
	assert.Equal(t, 1, base.Meta.UnrecognizedCount)
}

func TestMerge_CopiesGroupsMissingFromBase(t *testing.T) {
	base := summaryWith("structural", "wall", "Стены", 5, 10.0)
	extra := summaryWith("mep", "duct", "Воздуховоды", 12, 0)

	Merge(base, extra)

	require.NotNil(t, base.Group("structural", "wall"))
	duct := base.Group("mep", "duct")
	require.NotNil(t, duct)
	assert.Equal(t, "Воздуховоды", duct.Label)
	assert.Equal(t, 12, duct.TotalCount)
}

func TestMerge_OrderDoesNotChangeTotals(t *testing.T) {
	build := func() (*model.Summary, *model.Summary, *model.Summary) {
		return summaryWith("structural", "wall", "Стены", 1, 1.111),
			summaryWith("structural", "wall", "Стены", 2, 2.222),
			summaryWith("structural", "wall", "Стены", 4, 4.444)
	}

	a1, b1, c1 := build()
	Merge(a1, b1)
	Merge(a1, c1)

	a2, b2, c2 := build()
	Merge(b2, c2)
	Merge(a2, b2)

	left := a1.Group("structural", "wall")
	right := a2.Group("structural", "wall")
	require.NotNil(t, left)
	require.NotNil(t, right)
	assert.Equal(t, left.TotalCount, right.TotalCount)
	assert.InDelta(t, left.TotalVolumeM3, right.TotalVolumeM3, 0.001)
}

func TestMerge_CombinesLevels(t *testing.T) {
	base := summaryWith("structural", "wall", "Стены", 1, 1.0)
	base.Group("structural", "wall").Levels = map[string]model.LevelTotals{
		"Level 1": {Count: 1, VolumeM3: 1.0},
	}
	extra := summaryWith("structural", "wall", "Стены", 1, 2.0)
	extra.Group("structural", "wall").Levels = map[string]model.LevelTotals{
		"Level 1": {Count: 2, VolumeM3: 2.0},
		"Level 2": {Count: 3, VolumeM3: 3.5},
	}

	Merge(base, extra)

	levels := base.Group("structural", "wall").Levels
	require.Len(t, levels, 2)
	assert.Equal(t, 3, levels["Level 1"].Count)
	assert.Equal(t, 3.0, levels["Level 1"].VolumeM3)
	assert.Equal(t, 3.5, levels["Level 2"].VolumeM3)
}

func TestTagSource_PreservesExistingSource(t *testing.T) {
	s := summaryWith("structural", "wall", "Стены", 2, 4.0)
	s.Group("structural", "wall").Breakdown = append(
		s.Group("structural", "wall").Breakdown,
		model.BreakdownItem{TypeName: "Из связи", Count: 1, Source: "ARC_link.rvt"},
	)
	s.Unrecognized = []model.UnrecognizedItem{{TypeName: "Непонятное", Count: 1}}

	TagSource(s, "host")

	breakdown := s.Group("structural", "wall").Breakdown
	assert.Equal(t, "host", breakdown[0].Source)
	assert.Equal(t, "ARC_link.rvt", breakdown[1].Source)
	assert.Equal(t, "host", s.Unrecognized[0].Source)
}

func TestMerge_NilSafe(t *testing.T) {
	s := summaryWith("structural", "wall", "Стены", 1, 1.0)
	Merge(s, nil)
	Merge(nil, s)
	assert.Equal(t, 1, s.Group("structural", "wall").TotalCount)
}
