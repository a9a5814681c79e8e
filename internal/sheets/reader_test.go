package sheets

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbagrov/bimtally/internal/common"
)

func newTestReader(t *testing.T, fake *fakeSheetsAPI) *Reader {
	t.Helper()
	return &Reader{
		service: newFakeService(t, fake),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestReader_ReadBoQ(t *testing.T) {
	fake := &fakeSheetsAPI{
		valuesResult: [][]any{
			{"Ведомость объёмов работ"},
			{},
			{"№", "Наименование работ", "Ед.изм.", "Объем"},
			{"1", "Кладка стен из кирпича", "м3", "214,5"},
			{"2", "Устройство перекрытий", "м2", 1450},
			{"", "Итого", "", "1 664,50"},
		},
	}
	reader := newTestReader(t, fake)

	doc, err := reader.ReadBoQ(context.Background(), "ss1", "Смета!A1:D100")
	require.NoError(t, err)

	assert.Equal(t, "sheets:ss1", doc.Source)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "Кладка стен из кирпича", doc.Lines[0].Name)
	assert.InDelta(t, 214.5, doc.Lines[0].Volume, 1e-9)
	// Numeric cells survive the round trip through the values API
	assert.InDelta(t, 1450.0, doc.Lines[1].Volume, 1e-9)
	assert.Empty(t, doc.Warnings)

	require.Len(t, fake.getRanges, 1)
	assert.Equal(t, "Смета!A1:D100", fake.getRanges[0])
}

func TestReader_ReadBoQ_DefaultRange(t *testing.T) {
	fake := &fakeSheetsAPI{
		valuesResult: [][]any{
			{"Наименование", "Ед.", "Кол-во"},
			{"Кладка", "м3", "10"},
		},
	}
	reader := newTestReader(t, fake)

	doc, err := reader.ReadBoQ(context.Background(), "ss1", "")
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)

	require.Len(t, fake.getRanges, 1)
	assert.Equal(t, DefaultReadRange, fake.getRanges[0])
}

func TestReader_ReadBoQ_MissingID(t *testing.T) {
	fake := &fakeSheetsAPI{}
	reader := newTestReader(t, fake)

	_, err := reader.ReadBoQ(context.Background(), "", "A1:Z100")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, fake.getRanges)
}

func TestReader_ReadBoQ_NoHeader(t *testing.T) {
	fake := &fakeSheetsAPI{
		valuesResult: [][]any{
			{"Протокол совещания"},
			{"Присутствовали", "5"},
		},
	}
	reader := newTestReader(t, fake)

	_, err := reader.ReadBoQ(context.Background(), "ss1", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoHeaderRow)
}
