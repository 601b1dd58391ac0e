package nonoverlap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/keyflow/behavior/nonoverlap"
	ktest "github.com/Alia5/keyflow/internal/testing"
)

func newNonOverlap(t *testing.T, props string) (*ktest.Harness, *nonoverlap.NonOverlap) {
	t.Helper()
	h := ktest.NewEngine(t, `
behaviors:
  - name: no
    compatible: non-overlap
`+props+`
layers:
  - bindings: "&no A &no B &no C"
`)
	return h, h.Engine.Behavior("no").(*nonoverlap.NonOverlap)
}

func TestNonOverlap(t *testing.T) {
	h, no := newNonOverlap(t, "")
	h.Press(0, 0)
	h.Press(1, 10)
	h.Press(2, 20)
	assert.Equal(t, []string{"C"}, h.Held())
	assert.Equal(t, 3, no.Held())

	h.Release(2, 30)
	assert.Equal(t, []string{"B"}, h.Held(), "previous key comes back")

	h.Release(0, 40)
	assert.Equal(t, []string{"B"}, h.Held(), "an older key is only forgotten")

	h.Release(1, 50)
	assert.Empty(t, h.Held())
	assert.Zero(t, no.Held())
	assert.Equal(t, []string{
		"press A", "release A", "press B", "release B", "press C",
		"release C", "press B", "release B",
	}, h.Rec.Effects)
}

func TestNonOverlapEvictsOldest(t *testing.T) {
	h, no := newNonOverlap(t, "    keep-active-size: 2")
	h.Press(0, 0)
	h.Press(1, 10)
	h.Press(2, 20)
	assert.Equal(t, 2, no.Held())

	h.Release(2, 30)
	h.Release(1, 40)
	assert.Empty(t, h.Held(), "A was evicted and is not re-pressed")
	h.Release(0, 50)
	assert.Equal(t, 1, h.Rec.Count("press A"))
}
