package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailanalytics/internal/models"
)

func personAt(x, y int) models.Detection {
	return models.Detection{
		BBox:    models.BBox{X1: x, Y1: y, X2: x + 50, Y2: y + 100},
		Label:   models.PersonLabel,
		TrackID: models.UntrackedID,
	}
}

func TestIoU(t *testing.T) {
	a := models.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}

	assert.InDelta(t, 1.0, IoU(a, a), 1e-9)
	assert.Zero(t, IoU(a, models.BBox{X1: 20, Y1: 20, X2: 30, Y2: 30}))
	assert.Zero(t, IoU(a, models.BBox{X1: 10, Y1: 0, X2: 20, Y2: 10}), "touching edges")
	assert.InDelta(t, 50.0/150.0, IoU(a, models.BBox{X1: 5, Y1: 0, X2: 15, Y2: 10}), 1e-9)
}

func TestUpdate_KeepsIDWhileMoving(t *testing.T) {
	tr := NewTracker(0, 0)

	first := tr.Update([]models.Detection{personAt(100, 100)})
	require.Len(t, first, 1)
	id := first[0].TrackID
	assert.Equal(t, 1, id)

	for x := 105; x <= 150; x += 5 {
		out := tr.Update([]models.Detection{personAt(x, 100)})
		assert.Equal(t, id, out[0].TrackID)
	}
	assert.Equal(t, 1, tr.Len())
}

func TestUpdate_NewPersonGetsNewID(t *testing.T) {
	tr := NewTracker(0, 0)

	tr.Update([]models.Detection{personAt(0, 0)})
	out := tr.Update([]models.Detection{personAt(0, 0), personAt(400, 300)})

	assert.Equal(t, 1, out[0].TrackID)
	assert.Equal(t, 2, out[1].TrackID)
}

func TestUpdate_NonPersonsUntracked(t *testing.T) {
	tr := NewTracker(0, 0)

	out := tr.Update([]models.Detection{{Label: "chair", TrackID: 3}})

	assert.Equal(t, models.UntrackedID, out[0].TrackID)
	assert.Zero(t, tr.Len())
}

func TestUpdate_ExpiresAfterMaxAge(t *testing.T) {
	tr := NewTracker(2, 0)
	tr.Update([]models.Detection{personAt(0, 0)})

	tr.Update(nil)
	tr.Update(nil)
	assert.Equal(t, 1, tr.Len())

	out := tr.Update([]models.Detection{personAt(0, 0)})
	assert.Equal(t, 1, out[0].TrackID, "re-acquired within max age")

	for i := 0; i < 3; i++ {
		tr.Update(nil)
	}
	assert.Zero(t, tr.Len())

	out = tr.Update([]models.Detection{personAt(0, 0)})
	assert.Equal(t, 2, out[0].TrackID)
}

func TestReset_IDsKeepIncreasing(t *testing.T) {
	tr := NewTracker(0, 0)
	tr.Update([]models.Detection{personAt(0, 0)})

	tr.Reset()
	out := tr.Update([]models.Detection{personAt(0, 0)})

	assert.Equal(t, 2, out[0].TrackID)
}
