package snaptap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ktest "github.com/Alia5/keyflow/internal/testing"
)

func TestSnapTap(t *testing.T) {
	h := ktest.NewEngine(t, `
layers:
  - bindings: "&st A D &st D A"
`)
	h.Press(0, 0)
	h.Press(1, 10)
	assert.Equal(t, []string{"D"}, h.Held(), "the newer key wins")

	h.Release(1, 20)
	assert.Equal(t, []string{"A"}, h.Held(), "the opposing key is restored")

	h.Release(0, 30)
	assert.Empty(t, h.Held())
	assert.Equal(t, []string{
		"press A", "release A", "press D", "release D", "press A", "release A",
	}, h.Rec.Effects)
}

func TestSnapTapReleasedOpponentStaysUp(t *testing.T) {
	h := ktest.NewEngine(t, `
layers:
  - bindings: "&st A D &st D A"
`)
	h.Press(0, 0)
	h.Press(1, 10)
	h.Release(0, 20)
	assert.Equal(t, []string{"D"}, h.Held())
	h.Release(1, 30)
	assert.Empty(t, h.Held())
	assert.Equal(t, 1, h.Rec.Count("press D"))
}
