package cluster

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTileGrid(t *testing.T) {
	tests := []struct {
		name         string
		w, h, tile   uint32
		wantX, wantY uint32
	}{
		{"exact", 1280, 720, 16, 80, 45},
		{"partial tiles", 1281, 721, 16, 81, 46},
		{"tiny screen", 1, 1, 16, 1, 1},
		{"zero tile size", 10, 10, 0, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewTileGrid(tt.w, tt.h, tt.tile)
			assert.Equal(t, tt.wantX, g.TilesX)
			assert.Equal(t, tt.wantY, g.TilesY)
			assert.Equal(t, int(tt.wantX*tt.wantY), g.Count())
		})
	}
}

func TestTileGrid_TileAtClamps(t *testing.T) {
	g := NewTileGrid(100, 50, 10)
	x, y := g.TileAt(-40, -3)
	assert.Equal(t, [2]uint32{0, 0}, [2]uint32{x, y})
	x, y = g.TileAt(55, 23)
	assert.Equal(t, [2]uint32{5, 2}, [2]uint32{x, y})
	x, y = g.TileAt(1000, 1000)
	assert.Equal(t, [2]uint32{9, 4}, [2]uint32{x, y})
}

func TestTileBitmask_PartitionsByType(t *testing.T) {
	g := NewTileGrid(64, 32, 16) // 4×2 tiles
	m := NewTileBitmask(g, 128)
	m.Reset(g, Counts{Point: 40, Spot: 3})

	assert.Equal(t, 2, m.WordsPerTile(light.LightTypePoint))
	assert.Equal(t, 1, m.WordsPerTile(light.LightTypeSpot))
	assert.Len(t, m.Words(), g.Count()*3)

	m.Set(light.LightTypePoint, 5, 33)
	m.Set(light.LightTypePoint, 5, 0)
	m.Set(light.LightTypeSpot, 5, 2)

	assert.Equal(t, []int{0, 33}, m.Lights(light.LightTypePoint, 5))
	assert.Equal(t, []int{2}, m.Lights(light.LightTypeSpot, 5))
	assert.Empty(t, m.Lights(light.LightTypePoint, 4))
	assert.True(t, m.Test(light.LightTypeSpot, 5, 2))
	assert.False(t, m.Test(light.LightTypePoint, 5, 2))
	assert.False(t, m.Test(light.LightTypeSpot, 5, 40))
}

func TestTileBitmask_SetRectAndReset(t *testing.T) {
	g := NewTileGrid(64, 64, 16)
	m := NewTileBitmask(g, 8)
	m.Reset(g, Counts{Point: 1})

	m.SetRect(light.LightTypePoint, 0, 1, 1, 2, 3)
	for y := range g.TilesY {
		for x := range g.TilesX {
			want := x >= 1 && x <= 2 && y >= 1 && y <= 3
			assert.Equal(t, want, m.Test(light.LightTypePoint, g.Index(x, y), 0), "tile %d,%d", x, y)
		}
	}

	m.Reset(g, Counts{Point: 1})
	for _, w := range m.Words() {
		require.Zero(t, w)
	}
}

func TestTileBitmask_Marshal(t *testing.T) {
	g := NewTileGrid(16, 16, 16)
	m := NewTileBitmask(g, 32)
	m.Reset(g, Counts{Point: 32, Spot: 32})
	m.Set(light.LightTypePoint, 0, 31)
	m.Set(light.LightTypeSpot, 0, 1)

	buf := m.Marshal()
	require.Len(t, buf, 8)
	assert.Equal(t, uint32(1<<31), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[4:8]))
}
