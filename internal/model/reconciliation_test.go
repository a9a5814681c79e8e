package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchStatus_Label(t *testing.T) {
	assert.Equal(t, "OK", StatusOK.Label())
	assert.Equal(t, "Расхождение", StatusRedFlag.Label())
	assert.Equal(t, "Нулевой объём в ВОР", StatusZeroInVOR.Label())
	assert.Equal(t, "Нет соответствия в BIM", StatusNoBIMMatch.Label())
	assert.Equal(t, "mystery", MatchStatus("mystery").Label())
}
