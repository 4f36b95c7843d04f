package inspection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value any
		empty bool
	}{
		{"nil", nil, true},
		{"blank string", "   ", true},
		{"string", "Good", false},
		{"empty list", []any{}, true},
		{"list", []any{"No Problem"}, false},
		{"empty object", map[string]any{}, true},
		{"zero number", float64(0), false},
		{"false", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, IsEmpty(tt.value))
		})
	}
}

func TestDecodeForm(t *testing.T) {
	t.Run("Should decode object", func(t *testing.T) {
		f, err := DecodeForm([]byte(`{"drivingExperience":"Good","problems":["No Problem"]}`))
		require.NoError(t, err)
		assert.Equal(t, "Good", f.String("drivingExperience"))
		assert.Equal(t, 1, f.Len("problems"))
	})

	t.Run("Should treat null as empty form", func(t *testing.T) {
		f, err := DecodeForm([]byte("null"))
		require.NoError(t, err)
		assert.NotNil(t, f)
		assert.Empty(t, f)
	})

	t.Run("Should reject non-object", func(t *testing.T) {
		_, err := DecodeForm([]byte(`[1,2]`))
		assert.Error(t, err)
	})
}

func TestParseModuleKey(t *testing.T) {
	m, err := ParseModuleKey("TESTDRIVE")
	require.NoError(t, err)
	assert.Equal(t, ModuleTestDrive, m)

	_, err = ParseModuleKey("paint")
	assert.Error(t, err)
	assert.Len(t, ChecklistModules, 9)
}
