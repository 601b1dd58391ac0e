package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keyflow/layout"
)

func TestParseBinding(t *testing.T) {
	tests := []struct {
		in      string
		want    layout.Ref
		wantErr bool
	}{
		{in: "&kp A", want: layout.Ref{Label: "kp", Params: []string{"A"}}},
		{in: "  &mo   nav ", want: layout.Ref{Label: "mo", Params: []string{"nav"}}},
		{in: "&trans", want: layout.Ref{Label: "trans", Params: []string{}}},
		{in: "&mm LS(A) B", want: layout.Ref{Label: "mm", Params: []string{"LS(A)", "B"}}},
		{in: "", wantErr: true},
		{in: "kp A", wantErr: true},
		{in: "& A", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := layout.ParseBinding(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Label, got.Label)
			assert.ElementsMatch(t, tt.want.Params, got.Params)
		})
	}
}

func TestSplitBindings(t *testing.T) {
	got, err := layout.SplitBindings("&kp A &kp LS(B)   &trans")
	require.NoError(t, err)
	assert.Equal(t, []string{"&kp A", "&kp LS(B)", "&trans"}, got)

	got, err = layout.SplitBindings("   ")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = layout.SplitBindings("kp A")
	assert.Error(t, err)
	_, err = layout.SplitBindings("&kp A && B")
	assert.Error(t, err)
}

func TestRefString(t *testing.T) {
	assert.Equal(t, "&kp LS(A)", layout.Ref{Label: "kp", Params: []string{"LS(A)"}}.String())
	assert.Equal(t, "&trans", layout.Ref{Label: "trans"}.String())
}
