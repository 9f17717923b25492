package cluster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticCounts is a countsSource that always returns the same counts.
type staticCounts struct{ c Counts }

func (s staticCounts) WaitForCountsContext(context.Context) (Counts, error) { return s.c, nil }

type drawCall struct {
	kind      light.LightType
	instances uint32
}

type recordingRasterizer struct {
	begun   int
	draws   []drawCall
	failOn  light.LightType
	failErr error
}

func (r *recordingRasterizer) BeginTiles(Counts) error {
	r.begun++
	return nil
}

func (r *recordingRasterizer) DrawProxies(kind light.LightType, n uint32, _ Counts) error {
	if r.failErr != nil && kind == r.failOn {
		return r.failErr
	}
	r.draws = append(r.draws, drawCall{kind, n})
	return nil
}

func TestTileAssigner_DrawsPerType(t *testing.T) {
	tests := []struct {
		name   string
		counts Counts
		want   []drawCall
	}{
		{"both", Counts{Point: 5, Spot: 2}, []drawCall{{light.LightTypePoint, 5}, {light.LightTypeSpot, 2}}},
		{"points only", Counts{Point: 3}, []drawCall{{light.LightTypePoint, 3}}},
		{"spots only", Counts{Spot: 1}, []drawCall{{light.LightTypeSpot, 1}}},
		{"none", Counts{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recordingRasterizer{}
			got, err := NewTileAssigner(staticCounts{tt.counts}, r, nil).Assign()
			require.NoError(t, err)
			assert.Equal(t, tt.counts, got)
			assert.Equal(t, 1, r.begun)
			assert.Equal(t, tt.want, r.draws)
		})
	}
}

func TestTileAssigner_WrapsRasterizerError(t *testing.T) {
	boom := errors.New("boom")
	r := &recordingRasterizer{failOn: light.LightTypeSpot, failErr: boom}
	_, err := NewTileAssigner(staticCounts{Counts{Frame: 4, Point: 1, Spot: 1}}, r, nil).Assign()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "draw spot proxies for frame 4")
}

func TestTileAssigner_WaitsOnHandoff(t *testing.T) {
	h := NewCountsHandoff()
	r := &recordingRasterizer{}
	a := NewTileAssigner(h, r, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := a.AssignContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, r.begun)

	h.Publish(Counts{Frame: 1, Point: 2})
	got, err := a.Assign()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Frame)

	h.Close()
	_, err = a.Assign()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewTileAssigner_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewTileAssigner(nil, &recordingRasterizer{}, nil) })
	assert.Panics(t, func() { NewTileAssigner(NewCountsHandoff(), nil, nil) })
}
