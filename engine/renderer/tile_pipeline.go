package renderer

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/tile_proxy.wgsl
var tileProxyBody string

// TileProxyShaderSource is the complete WGSL module for the tile proxy pass. The Light
// and ClusterUniforms structs are prepended from their canonical sources.
var TileProxyShaderSource = light.GPULightSource + "\n" + cluster.GPUClusterUniformsSource + "\n" + tileProxyBody

// Bindings of the tile proxy bind group (group 0).
const (
	BindingUniforms     = 0
	BindingLights       = 1
	BindingPointIndices = 2
	BindingSpotIndices  = 3
	BindingTileMasks    = 4
)

// TilePipelines holds the bind group layout and the two render pipelines of the tile
// proxy pass. Both pipelines share one layout.
type TilePipelines struct {
	Layout *wgpu.BindGroupLayout
	Point  *wgpu.RenderPipeline
	Spot   *wgpu.RenderPipeline

	pipelineLayout *wgpu.PipelineLayout
	module         *wgpu.ShaderModule
}

// tileProxyLayoutEntries describes group 0 of the tile proxy shader.
func tileProxyLayoutEntries() []wgpu.BindGroupLayoutEntry {
	readOnly := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageVertex,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeReadOnlyStorage,
			},
		}
	}
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    BindingUniforms,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uint64(cluster.GPUClusterUniformsSize),
			},
		},
		readOnly(BindingLights),
		readOnly(BindingPointIndices),
		readOnly(BindingSpotIndices),
		{
			Binding:    BindingTileMasks,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeStorage,
			},
		},
	}
}

// NewTilePipelines compiles the tile proxy shader and creates the point and spot
// pipelines. Culling is disabled so a camera inside a proxy still rasterizes its back
// faces, and no depth test is bound so occluded tiles stay conservative.
//
// Parameters:
//   - device: the WebGPU device
//   - format: the color target format of the pass the proxies are drawn in
//   - sampleCount: the pass sample count (1 when not multisampled)
//
// Returns:
//   - *TilePipelines: the created pipelines
//   - error: error if any GPU object cannot be created
func NewTilePipelines(device *wgpu.Device, format wgpu.TextureFormat, sampleCount uint32) (*TilePipelines, error) {
	if device == nil {
		return nil, ErrNoDevice
	}
	p := &TilePipelines{}
	var err error

	p.module, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Tile Proxy Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: TileProxyShaderSource},
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: tile proxy shader: %w", err)
	}

	p.Layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Tile Proxy Bind Group Layout",
		Entries: tileProxyLayoutEntries(),
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("renderer: tile proxy bind group layout: %w", err)
	}

	p.pipelineLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Tile Proxy Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.Layout},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("renderer: tile proxy pipeline layout: %w", err)
	}

	if p.Point, err = p.create(device, format, sampleCount, "point"); err != nil {
		p.Release()
		return nil, err
	}
	if p.Spot, err = p.create(device, format, sampleCount, "spot"); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *TilePipelines) create(device *wgpu.Device, format wgpu.TextureFormat, sampleCount uint32, kind string) (*wgpu.RenderPipeline, error) {
	created, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Tile Proxy " + kind + " Render Pipeline",
		Layout: p.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: "vs_" + kind,
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: light.ProxyVertexStride,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{{
					Format:         wgpu.VertexFormatFloat32x3,
					Offset:         0,
					ShaderLocation: 0,
				}},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_" + kind,
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: max(sampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: tile proxy %s pipeline: %w", kind, err)
	}
	return created, nil
}

// Release frees every GPU object held by p. Safe on partially created pipelines.
func (p *TilePipelines) Release() {
	if p.Point != nil {
		p.Point.Release()
		p.Point = nil
	}
	if p.Spot != nil {
		p.Spot.Release()
		p.Spot = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	if p.Layout != nil {
		p.Layout.Release()
		p.Layout = nil
	}
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}
