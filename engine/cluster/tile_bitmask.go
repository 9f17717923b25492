package cluster

import (
	"encoding/binary"
	"math/bits"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
)

// DefaultTileSize is the width and height in pixels of each screen-space tile.
const DefaultTileSize = 16

// TileGrid describes how the screen is divided into square tiles.
type TileGrid struct {
	TileSize uint32
	TilesX   uint32
	TilesY   uint32
}

// NewTileGrid computes the number of tiles in each dimension for a screen size.
//
// Parameters:
//   - screenWidth: screen width in pixels
//   - screenHeight: screen height in pixels
//   - tileSize: tile edge in pixels
//
// Returns:
//   - TileGrid: the tile grid
func NewTileGrid(screenWidth, screenHeight, tileSize uint32) TileGrid {
	tileSize = max(tileSize, 1)
	return TileGrid{
		TileSize: tileSize,
		TilesX:   common.CeilDiv(screenWidth, tileSize),
		TilesY:   common.CeilDiv(screenHeight, tileSize),
	}
}

// Count returns the total number of tiles.
func (g TileGrid) Count() int { return int(g.TilesX * g.TilesY) }

// Index returns the linear tile index of tile (x, y).
func (g TileGrid) Index(x, y uint32) int { return int(y*g.TilesX + x) }

// TileAt returns the tile containing pixel (px, py), clamped to the grid.
func (g TileGrid) TileAt(px, py int) (x, y uint32) {
	x = uint32(common.ClampValue(px/int(g.TileSize), 0, int(g.TilesX)-1))
	y = uint32(common.ClampValue(py/int(g.TileSize), 0, int(g.TilesY)-1))
	return x, y
}

// TileBitmask stores, per tile, one bit per surviving light, partitioned by light
// type. Bit i of a tile's point partition stands for the i-th entry of the point
// index list, and likewise for spots. Each partition is laid out tile-major: all
// words of tile 0, then tile 1, and so on; the spot partition follows the point one.
type TileBitmask struct {
	grid   TileGrid
	words  [light.LightTypeCount]int
	offset [light.LightTypeCount]int
	bits   []uint32
}

// NewTileBitmask allocates a bitmask able to hold capacity lights per type for the
// given grid without reallocating.
func NewTileBitmask(grid TileGrid, capacity int) *TileBitmask {
	m := &TileBitmask{}
	perTile := common.CeilDiv(capacity, 32) * light.LightTypeCount
	m.bits = make([]uint32, 0, grid.Count()*perTile)
	m.Reset(grid, Counts{})
	return m
}

// Reset clears the mask and re-partitions it for a grid and per-type counts.
//
// Parameters:
//   - grid: the tile grid of the frame
//   - counts: the per-type survivor counts
func (m *TileBitmask) Reset(grid TileGrid, counts Counts) {
	m.grid = grid
	total := 0
	for k := range light.LightTypeCount {
		m.words[k] = common.CeilDiv(int(counts.Of(light.LightType(k))), 32)
		m.offset[k] = total
		total += m.words[k] * grid.Count()
	}
	if cap(m.bits) < total {
		m.bits = make([]uint32, total)
		return
	}
	m.bits = m.bits[:total]
	clear(m.bits)
}

// Grid returns the tile grid the mask is partitioned for.
func (m *TileBitmask) Grid() TileGrid { return m.grid }

// WordsPerTile returns the number of 32-bit words each tile uses for a light type.
func (m *TileBitmask) WordsPerTile(kind light.LightType) int { return m.words[kind] }

// Set marks light i of the given type as touching tile.
func (m *TileBitmask) Set(kind light.LightType, tile, i int) {
	m.bits[m.wordIndex(kind, tile, i)] |= 1 << (i % 32)
}

// Test reports whether light i of the given type touches tile.
func (m *TileBitmask) Test(kind light.LightType, tile, i int) bool {
	if i < 0 || i/32 >= m.words[kind] {
		return false
	}
	return m.bits[m.wordIndex(kind, tile, i)]&(1<<(i%32)) != 0
}

// SetRect marks light i of the given type in every tile of the inclusive rectangle.
func (m *TileBitmask) SetRect(kind light.LightType, i int, x0, y0, x1, y1 uint32) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			m.Set(kind, m.grid.Index(x, y), i)
		}
	}
}

// Lights returns the indices of every light of the given type touching tile.
func (m *TileBitmask) Lights(kind light.LightType, tile int) []int {
	var out []int
	base := m.offset[kind] + tile*m.words[kind]
	for w := range m.words[kind] {
		word := m.bits[base+w]
		for word != 0 {
			bit := bits.TrailingZeros32(word)
			out = append(out, w*32+bit)
			word &= word - 1
		}
	}
	return out
}

// Words returns the raw mask words.
func (m *TileBitmask) Words() []uint32 { return m.bits }

// Marshal serializes the mask words for upload as a storage buffer.
//
// Returns:
//   - []byte: little-endian words
func (m *TileBitmask) Marshal() []byte {
	buf := make([]byte, len(m.bits)*4)
	for i, w := range m.bits {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

func (m *TileBitmask) wordIndex(kind light.LightType, tile, i int) int {
	return m.offset[kind] + tile*m.words[kind] + i/32
}
