package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Status
	}{
		{"exact wire value", "EM ANDAMENTO", StatusInProgress},
		{"lowercase", "concluída", StatusCompleted},
		{"surrounding space", "  NÃO INICIADA ", StatusNotStarted},
		{"english alias", "in_progress", StatusInProgress},
		{"english alias dashed", "not-started", StatusNotStarted},
		{"completed alias", "completed", StatusCompleted},
		// U+0301 combining acute: "concluída" typed with a dead-key layout.
		{"decomposed accents", "CONCLUÍDA", StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatus_Unknown(t *testing.T) {
	_, err := ParseStatus("FINALIZADA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FINALIZADA")
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusNotStarted.Valid())
	assert.True(t, StatusInProgress.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, Status("").Valid())
	assert.False(t, Status("DONE").Valid())
}
