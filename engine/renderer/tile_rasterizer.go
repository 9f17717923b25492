package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/logging"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoDevice is returned when a GPU operation is attempted without a device.
var ErrNoDevice = errors.New("renderer: no WebGPU device")

// ErrNoPass is returned by DrawProxies when no render pass has been set.
var ErrNoPass = errors.New("renderer: no render pass set")

// ErrCapacity is returned when a frame holds more survivors than the buffers were sized for.
var ErrCapacity = errors.New("renderer: frame exceeds light capacity")

// proxyBuffers is one proxy mesh uploaded to the GPU.
type proxyBuffers struct {
	vertex     *wgpu.Buffer
	index      *wgpu.Buffer
	indexCount uint32
}

func (p *proxyBuffers) release() {
	if p.vertex != nil {
		p.vertex.Release()
		p.vertex = nil
	}
	if p.index != nil {
		p.index.Release()
		p.index = nil
	}
}

// WGPUTileRasterizer is the WebGPU TileRasterizer. It owns the storage buffers of
// the clustered-lighting pass and records the instanced proxy draws into a render
// pass supplied by the caller through SetPass.
//
// Buffers are sized once from the light capacity. Only the tile mask buffer is
// reallocated, when the screen's tile grid grows.
type WGPUTileRasterizer struct {
	mu     sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue
	logger logging.Logger

	capacity    int
	binCount    int
	tileSize    uint32
	format      wgpu.TextureFormat
	sampleCount uint32

	pipelines     *TilePipelines
	ownsPipelines bool
	sphere        proxyBuffers
	cone          proxyBuffers

	uniforms     *wgpu.Buffer
	lights       *wgpu.Buffer
	pointIndices *wgpu.Buffer
	spotIndices  *wgpu.Buffer
	zbins        *wgpu.Buffer
	tileMasks    *wgpu.Buffer
	maskBytes    uint64
	bindGroup    *wgpu.BindGroup

	pass *wgpu.RenderPassEncoder

	indexScratch []byte
	binScratch   []byte
	zeros        []byte
}

var _ cluster.TileRasterizer = &WGPUTileRasterizer{}

// tileMaskBytes returns the byte size of both tile mask partitions for a grid when
// every light of capacity survives as a single type.
func tileMaskBytes(grid cluster.TileGrid, capacity int) uint64 {
	words := common.CeilDiv(max(capacity, 1), 32)
	return uint64(grid.Count()) * 2 * uint64(words) * 4
}

// SetPass sets the render pass the next DrawProxies calls record into. The caller
// begins and ends the pass.
//
// Parameters:
//   - pass: the render pass encoder; nil detaches
func (r *WGPUTileRasterizer) SetPass(pass *wgpu.RenderPassEncoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pass = pass
}

// BeginTiles uploads the frame's light records, per-type index lists and proxy
// uniforms, and clears the tile masks.
func (r *WGPUTileRasterizer) BeginTiles(counts cluster.Counts) error {
	if counts.Result == nil {
		return fmt.Errorf("renderer: frame %d has no fill result", counts.Frame)
	}
	if int(counts.Total()) > r.capacity {
		return fmt.Errorf("renderer: frame %d has %d survivors, capacity %d: %w", counts.Frame, counts.Total(), r.capacity, ErrCapacity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device == nil {
		return ErrNoDevice
	}

	res := counts.Result
	grid := cluster.NewTileGrid(res.View.ScreenWidth, res.View.ScreenHeight, r.tileSize)
	if err := r.ensureTileMasks(grid); err != nil {
		return err
	}

	u := cluster.TileUniforms(counts, r.tileSize)
	if err := r.queue.WriteBuffer(r.uniforms, 0, u.Marshal()); err != nil {
		return fmt.Errorf("renderer: upload uniforms: %w", err)
	}
	if len(res.Records) > 0 {
		if err := r.queue.WriteBuffer(r.lights, 0, res.Records); err != nil {
			return fmt.Errorf("renderer: upload light records: %w", err)
		}
	}
	if err := r.writeIndices(r.pointIndices, res.PointIndices); err != nil {
		return err
	}
	if err := r.writeIndices(r.spotIndices, res.SpotIndices); err != nil {
		return err
	}

	used := uint64(grid.Count()) * uint64(u.PointWords+u.SpotWords) * 4
	if used > 0 {
		if err := r.queue.WriteBuffer(r.tileMasks, 0, r.zeros[:used]); err != nil {
			return fmt.Errorf("renderer: clear tile masks: %w", err)
		}
	}
	return nil
}

func (r *WGPUTileRasterizer) writeIndices(buf *wgpu.Buffer, indices []uint32) error {
	if len(indices) == 0 {
		return nil
	}
	r.indexScratch = cluster.MarshalIndices(indices, r.indexScratch)
	if err := r.queue.WriteBuffer(buf, 0, r.indexScratch); err != nil {
		return fmt.Errorf("renderer: upload light indices: %w", err)
	}
	return nil
}

// DrawProxies records one instanced draw of the proxy mesh for kind.
func (r *WGPUTileRasterizer) DrawProxies(kind light.LightType, instanceCount uint32, counts cluster.Counts) error {
	if instanceCount == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pass == nil {
		return ErrNoPass
	}
	if r.bindGroup == nil {
		return fmt.Errorf("renderer: frame %d: DrawProxies before BeginTiles", counts.Frame)
	}

	pipeline, proxy := r.pipelines.Point, &r.sphere
	if kind == light.LightTypeSpot {
		pipeline, proxy = r.pipelines.Spot, &r.cone
	}

	r.pass.SetPipeline(pipeline)
	r.pass.SetBindGroup(0, r.bindGroup, nil)
	r.pass.SetVertexBuffer(0, proxy.vertex, 0, wgpu.WholeSize)
	r.pass.SetIndexBuffer(proxy.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	r.pass.DrawIndexed(proxy.indexCount, instanceCount, 0, 0, 0)
	return nil
}

// UploadFrame writes the finished frame's Z-bins and full uniform block, so the lit
// pass sees bin data the proxy pass did not have.
//
// Parameters:
//   - out: the frame output returned by the engine's Wait
//
// Returns:
//   - error: error if an upload fails
func (r *WGPUTileRasterizer) UploadFrame(out *cluster.FrameOutput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device == nil {
		return ErrNoDevice
	}
	if len(out.Bins) > r.binCount {
		return fmt.Errorf("renderer: frame %d has %d bins, buffer holds %d", out.Frame, len(out.Bins), r.binCount)
	}

	if err := r.queue.WriteBuffer(r.uniforms, 0, out.Uniforms.Marshal()); err != nil {
		return fmt.Errorf("renderer: upload uniforms: %w", err)
	}
	r.binScratch = cluster.MarshalZBins(out.Bins, r.binScratch)
	if len(r.binScratch) > 0 {
		if err := r.queue.WriteBuffer(r.zbins, 0, r.binScratch); err != nil {
			return fmt.Errorf("renderer: upload z-bins: %w", err)
		}
	}
	return nil
}

// UniformBuffer returns the ClusterUniforms buffer.
func (r *WGPUTileRasterizer) UniformBuffer() *wgpu.Buffer { return r.uniforms }

// LightBuffer returns the sorted light record buffer.
func (r *WGPUTileRasterizer) LightBuffer() *wgpu.Buffer { return r.lights }

// ZBinBuffer returns the Z-bin buffer.
func (r *WGPUTileRasterizer) ZBinBuffer() *wgpu.Buffer { return r.zbins }

// TileMaskBuffer returns the tile mask buffer. It is replaced when the tile grid
// grows, so fetch it after BeginTiles.
func (r *WGPUTileRasterizer) TileMaskBuffer() *wgpu.Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tileMasks
}

// Release frees every GPU object the rasterizer created.
func (r *WGPUTileRasterizer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bindGroup != nil {
		r.bindGroup.Release()
		r.bindGroup = nil
	}
	for _, buf := range []**wgpu.Buffer{&r.uniforms, &r.lights, &r.pointIndices, &r.spotIndices, &r.zbins, &r.tileMasks} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
	r.sphere.release()
	r.cone.release()
	if r.ownsPipelines && r.pipelines != nil {
		r.pipelines.Release()
	}
	r.pipelines = nil
	r.pass = nil
	r.maskBytes = 0
}

// ensureTileMasks grows the tile mask buffer for grid and rebuilds the bind group.
func (r *WGPUTileRasterizer) ensureTileMasks(grid cluster.TileGrid) error {
	need := tileMaskBytes(grid, r.capacity)
	if r.tileMasks != nil && need <= r.maskBytes {
		return nil
	}

	buf, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Tile Mask Buffer",
		Size:  need,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("renderer: tile mask buffer (%d bytes): %w", need, err)
	}
	if r.tileMasks != nil {
		r.tileMasks.Release()
	}
	r.tileMasks = buf
	r.maskBytes = need
	r.zeros = make([]byte, need)
	r.logger.Debugf("tile masks resized to %d bytes for %dx%d tiles", need, grid.TilesX, grid.TilesY)

	return r.rebuildBindGroup()
}

func (r *WGPUTileRasterizer) rebuildBindGroup() error {
	entry := func(binding uint32, buf *wgpu.Buffer) wgpu.BindGroupEntry {
		return wgpu.BindGroupEntry{Binding: binding, Buffer: buf, Offset: 0, Size: wgpu.WholeSize}
	}
	bg, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Tile Proxy Bind Group",
		Layout: r.pipelines.Layout,
		Entries: []wgpu.BindGroupEntry{
			entry(BindingUniforms, r.uniforms),
			entry(BindingLights, r.lights),
			entry(BindingPointIndices, r.pointIndices),
			entry(BindingSpotIndices, r.spotIndices),
			entry(BindingTileMasks, r.tileMasks),
		},
	})
	if err != nil {
		return fmt.Errorf("renderer: tile proxy bind group: %w", err)
	}
	if r.bindGroup != nil {
		r.bindGroup.Release()
	}
	r.bindGroup = bg
	return nil
}

// createBuffers allocates the fixed-size buffers and uploads the proxy meshes.
func (r *WGPUTileRasterizer) createBuffers() error {
	lights := max(r.capacity, 1)
	sized := []struct {
		dst   **wgpu.Buffer
		label string
		size  uint64
		usage wgpu.BufferUsage
	}{
		{&r.uniforms, "Cluster Uniform Buffer", cluster.GPUClusterUniformsSize, wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst},
		{&r.lights, "Sorted Light Buffer", uint64(lights * light.GPULightSize), wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst},
		{&r.pointIndices, "Point Index Buffer", uint64(lights * 4), wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst},
		{&r.spotIndices, "Spot Index Buffer", uint64(lights * 4), wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst},
		{&r.zbins, "Z-Bin Buffer", uint64(max(r.binCount, 1) * cluster.GPUZBinSize), wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst},
	}
	for _, s := range sized {
		buf, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: s.label,
			Size:  s.size,
			Usage: s.usage,
		})
		if err != nil {
			return fmt.Errorf("renderer: %s: %w", s.label, err)
		}
		*s.dst = buf
	}

	var err error
	if r.sphere, err = r.uploadProxy("Sphere Proxy", light.SphereProxy(light.DefaultSphereRings, light.DefaultSphereSegments)); err != nil {
		return err
	}
	if r.cone, err = r.uploadProxy("Cone Proxy", light.ConeProxy(light.DefaultConeSegments)); err != nil {
		return err
	}
	return nil
}

func (r *WGPUTileRasterizer) uploadProxy(label string, mesh light.ProxyMesh) (proxyBuffers, error) {
	var p proxyBuffers
	vertexData, indexData := mesh.VertexBytes(), mesh.IndexBytes()

	buf, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return p, fmt.Errorf("renderer: %s vertex buffer: %w", label, err)
	}
	p.vertex = buf
	if err := r.queue.WriteBuffer(buf, 0, vertexData); err != nil {
		p.release()
		return proxyBuffers{}, fmt.Errorf("renderer: %s vertices: %w", label, err)
	}

	buf, err = r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		p.release()
		return proxyBuffers{}, fmt.Errorf("renderer: %s index buffer: %w", label, err)
	}
	p.index = buf
	if err := r.queue.WriteBuffer(buf, 0, indexData); err != nil {
		p.release()
		return proxyBuffers{}, fmt.Errorf("renderer: %s indices: %w", label, err)
	}
	p.indexCount = mesh.IndexCount()
	return p, nil
}
