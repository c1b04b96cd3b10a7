package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain lowercase", "mmcfly", "mmcfly"},
		{"uppercase", "MMcFly", "mmcfly"},
		{"spaces become dashes", "martin mcfly", "martin-mcfly"},
		{"consecutive separators collapse", "martin _ mcfly", "martin-mcfly"},
		{"leading and trailing junk", "  !mcfly!  ", "mcfly"},
		{"digits survive", "user1955", "user1955"},
		{"empty", "", ""},
		{"only junk", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slugify(tt.input))
		})
	}
}

func TestSlugifyUniquely(t *testing.T) {
	takenSet := func(taken ...string) func(string) (bool, error) {
		set := make(map[string]bool, len(taken))
		for _, name := range taken {
			set[name] = true
		}
		return func(candidate string) (bool, error) {
			return set[candidate], nil
		}
	}

	t.Run("free name is used as-is", func(t *testing.T) {
		got, err := slugifyUniquely("mmcfly", takenSet())
		require.NoError(t, err)
		assert.Equal(t, "mmcfly", got)
	})

	t.Run("first collision gets -1", func(t *testing.T) {
		got, err := slugifyUniquely("mmcfly", takenSet("mmcfly"))
		require.NoError(t, err)
		assert.Equal(t, "mmcfly-1", got)
	})

	t.Run("suffix grows deterministically", func(t *testing.T) {
		got, err := slugifyUniquely("mmcfly", takenSet("mmcfly", "mmcfly-1", "mmcfly-2"))
		require.NoError(t, err)
		assert.Equal(t, "mmcfly-3", got)
	})

	t.Run("empty base falls back to user", func(t *testing.T) {
		got, err := slugifyUniquely("", takenSet())
		require.NoError(t, err)
		assert.Equal(t, "user", got)
	})

	t.Run("lookup error propagates", func(t *testing.T) {
		wantErr := assert.AnError
		_, err := slugifyUniquely("mmcfly", func(string) (bool, error) { return false, wantErr })
		assert.ErrorIs(t, err, wantErr)
	})
}
