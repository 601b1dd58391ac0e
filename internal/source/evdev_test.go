package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvdevMap(t *testing.T) {
	tests := []struct {
		name      string
		spec      map[string]uint32
		positions uint32
		want      map[uint16]uint32
		wantErr   string
	}{
		{
			name: "names and numbers",
			spec: map[string]uint32{"KEY_A": 0, "s": 1, "32": 2, "0x27": 3},
			want: map[uint16]uint32{30: 0, 31: 1, 32: 2, 39: 3},
		},
		{
			name:    "unknown name",
			spec:    map[string]uint32{"KEY_BOGUS": 0},
			wantErr: "unknown evdev key",
		},
		{
			name:    "same code twice",
			spec:    map[string]uint32{"KEY_A": 0, "30": 1},
			wantErr: "mapped twice",
		},
		{
			name:      "position out of range",
			spec:      map[string]uint32{"KEY_A": 4},
			positions: 4,
			wantErr:   "out of range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvdevMap(tt.spec, tt.positions)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvdevKeyNamesSorted(t *testing.T) {
	names := EvdevKeyNames()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "KEY_CAPSLOCK")
}
