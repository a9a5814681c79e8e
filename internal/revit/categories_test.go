package revit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("all entries have OST names", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, spec := range Registry {
			assert.NotEmpty(t, spec.Name)
			assert.True(t, strings.HasPrefix(spec.OST, "OST_"), "category %s has OST %s", spec.Name, spec.OST)
			assert.False(t, seen[spec.Name], "duplicate category %s", spec.Name)
			seen[spec.Name] = true
		}
	})

	t.Run("known quantity flags", func(t *testing.T) {
		walls, ok := LookupCategory("Walls")
		require.True(t, ok)
		assert.True(t, walls.HasVolume)
		assert.True(t, walls.HasArea)
		assert.False(t, walls.HasLength)

		pipes, ok := LookupCategory("Pipes")
		require.True(t, ok)
		assert.Equal(t, "OST_PipeCurves", pipes.OST)
		assert.True(t, pipes.HasLength)
		assert.False(t, pipes.HasVolume)

		doors, ok := LookupCategory("Doors")
		require.True(t, ok)
		assert.False(t, doors.HasVolume)
		assert.False(t, doors.HasArea)
		assert.False(t, doors.HasLength)
	})

	t.Run("lookup misses unknown names", func(t *testing.T) {
		_, ok := LookupCategory("Spaceships")
		assert.False(t, ok)
		_, ok = LookupCategory("")
		assert.False(t, ok)
	})

	t.Run("lookup is case sensitive", func(t *testing.T) {
		_, ok := LookupCategory("walls")
		assert.False(t, ok)
	})
}

func TestCategoryNames(t *testing.T) {
	names := CategoryNames()
	assert.Len(t, names, len(Registry))
	assert.Equal(t, "Walls", names[0])
}

func TestBatches(t *testing.T) {
	batches := Batches()
	require.NotEmpty(t, batches)

	total := 0
	for i, batch := range batches {
		assert.LessOrEqual(t, len(batch), MaxBatchSize)
		if i < len(batches)-1 {
			assert.Len(t, batch, MaxBatchSize)
		}
		total += len(batch)
	}
	assert.Equal(t, len(Registry), total)
}

func TestBatchesFor(t *testing.T) {
	t.Run("chunks known categories", func(t *testing.T) {
		names := []string{"Walls", "Floors", "Roofs", "Ceilings", "Columns", "Doors", "Windows"}
		batches, unknown := BatchesFor(names)
		assert.Empty(t, unknown)
		require.Len(t, batches, 2)
		assert.Len(t, batches[0], MaxBatchSize)
		assert.Len(t, batches[1], 2)
		assert.Equal(t, "Walls", batches[0][0].Name)
		assert.Equal(t, "Windows", batches[1][1].Name)
	})

	t.Run("reports unknown names", func(t *testing.T) {
		batches, unknown := BatchesFor([]string{"Walls", "Bogus", "Pipes"})
		assert.Equal(t, []string{"Bogus"}, unknown)
		require.Len(t, batches, 1)
		assert.Len(t, batches[0], 2)
	})

	t.Run("all unknown yields no batches", func(t *testing.T) {
		batches, unknown := BatchesFor([]string{"Nope"})
		assert.Empty(t, batches)
		assert.Equal(t, []string{"Nope"}, unknown)
	})
}
