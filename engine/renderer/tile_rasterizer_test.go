package renderer

import (
	"strings"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileProxyShaderSource(t *testing.T) {
	src := TileProxyShaderSource
	for _, want := range []string{
		"struct Light", "struct ClusterUniforms",
		"fn vs_point", "fn vs_spot", "fn fs_point", "fn fs_spot",
		"array<atomic<u32>>", "atomicOr",
	} {
		assert.Contains(t, src, want)
	}
	assert.Less(t, strings.Index(src, "struct Light"), strings.Index(src, "var<storage, read> lights"))
}

func TestTileProxyLayoutEntries(t *testing.T) {
	entries := tileProxyLayoutEntries()
	require.Len(t, entries, 5)

	for i, e := range entries {
		assert.Equal(t, uint32(i), e.Binding)
	}
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[BindingUniforms].Buffer.Type)
	assert.Equal(t, uint64(cluster.GPUClusterUniformsSize), entries[BindingUniforms].Buffer.MinBindingSize)
	for _, b := range []int{BindingLights, BindingPointIndices, BindingSpotIndices} {
		assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, entries[b].Buffer.Type)
		assert.Equal(t, wgpu.ShaderStageVertex, entries[b].Visibility)
	}
	assert.Equal(t, wgpu.BufferBindingTypeStorage, entries[BindingTileMasks].Buffer.Type)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[BindingTileMasks].Visibility)
}

func TestTileMaskBytes(t *testing.T) {
	grid := cluster.NewTileGrid(1280, 720, 16)

	tests := []struct {
		name     string
		capacity int
		want     uint64
	}{
		{"one word", 32, 3600 * 2 * 1 * 4},
		{"partial word", 33, 3600 * 2 * 2 * 4},
		{"default capacity", light.DefaultMaxLights, 3600 * 2 * 32 * 4},
		{"zero capacity", 0, 3600 * 2 * 1 * 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tileMaskBytes(grid, tt.capacity))
		})
	}
}

func TestWGPUTileRasterizer_WithoutDevice(t *testing.T) {
	_, err := NewWGPUTileRasterizer(nil)
	assert.ErrorIs(t, err, ErrNoDevice)

	_, err = NewTilePipelines(nil, DefaultTargetFormat, 1)
	assert.ErrorIs(t, err, ErrNoDevice)

	r := &WGPUTileRasterizer{capacity: 4}
	res := &cluster.FillResult{}

	assert.Error(t, r.BeginTiles(cluster.Counts{Frame: 1}))
	assert.ErrorIs(t, r.BeginTiles(cluster.Counts{Frame: 1, Point: 5, Result: res}), ErrCapacity)
	assert.ErrorIs(t, r.BeginTiles(cluster.Counts{Frame: 1, Point: 2, Result: res}), ErrNoDevice)
	assert.ErrorIs(t, r.UploadFrame(&cluster.FrameOutput{FillResult: res}), ErrNoDevice)
}

func TestWGPUTileRasterizer_DrawProxiesRequiresPass(t *testing.T) {
	r := &WGPUTileRasterizer{}

	assert.NoError(t, r.DrawProxies(light.LightTypePoint, 0, cluster.Counts{}))
	assert.ErrorIs(t, r.DrawProxies(light.LightTypeSpot, 3, cluster.Counts{}), ErrNoPass)

	// Releasing an empty rasterizer is a no-op.
	r.Release()
	assert.Nil(t, r.TileMaskBuffer())
}

func TestHeadlessBackend_FrameOrder(t *testing.T) {
	b := &headlessBackendImpl{mu: &sync.Mutex{}}

	_, err := b.BeginFrame()
	assert.Error(t, err)
	assert.ErrorIs(t, b.EndFrame(), ErrNoFrame)
	assert.Error(t, b.Resize(0, 720))
}
