package revit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbagrov/bimtally/internal/common"
)

func TestScanner_InspectElement(t *testing.T) {
	t.Run("rejects non-positive ids", func(t *testing.T) {
		scanner := newTestScanner(&fakeExec{})
		for _, id := range []int64{0, -5} {
			_, err := scanner.InspectElement(context.Background(), id, 0)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)
		}
	})

	t.Run("parses element dump", func(t *testing.T) {
		fake := &fakeExec{responses: []string{`{
			"element_id": 316224,
			"type_name": "Кладка 250мм",
			"type_id": 111,
			"category": "Стены",
			"level": "Уровень 3",
			"location": {"type": "curve", "start": [0.0, 1.5, 9.0], "end": [4.2, 1.5, 9.0], "length_m": 4.2},
			"instance_params": {"Объем": 2.135401, "Комментарии": "несущая"},
			"type_params": {"Ширина": 0.25}
		}`}}

		scanner := newTestScanner(fake)
		info, err := scanner.InspectElement(context.Background(), 316224, 0)
		require.NoError(t, err)

		assert.Equal(t, int64(316224), info.ElementID)
		assert.Equal(t, "Кладка 250мм", info.TypeName)
		assert.Equal(t, "Уровень 3", info.Level)
		assert.Equal(t, "curve", info.Location["type"])
		assert.Equal(t, 2.135401, info.InstanceParams["Объем"])
		assert.Equal(t, 0.25, info.TypeParams["Ширина"])

		assert.Contains(t, fake.codes[0], "eid = 316224")
		assert.Contains(t, fake.codes[0], "max_params = 200")
	})

	t.Run("missing element reports not found", func(t *testing.T) {
		fake := &fakeExec{responses: []string{`{"error": "Element not found: 999"}`}}

		scanner := newTestScanner(fake)
		_, err := scanner.InspectElement(context.Background(), 999, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.Contains(t, err.Error(), "Element not found: 999")
	})

	t.Run("custom parameter cap is embedded", func(t *testing.T) {
		fake := &fakeExec{responses: []string{`{"element_id": 5, "instance_params": {}, "type_params": {}}`}}

		scanner := newTestScanner(fake)
		_, err := scanner.InspectElement(context.Background(), 5, 50)
		require.NoError(t, err)
		assert.Contains(t, fake.codes[0], "max_params = 50")
	})

	t.Run("snippet converts location to meters", func(t *testing.T) {
		code := buildInspectSnippet(42, DefaultMaxParams)
		assert.Contains(t, code, "FT_TO_M = 0.3048")
		assert.Contains(t, code, "LocationPoint")
		assert.Contains(t, code, "LocationCurve")
		assert.Contains(t, code, "Element not found: ")
	})
}
