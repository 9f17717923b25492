package cluster

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	testWidth  = 1280
	testHeight = 720
	testNear   = 0.1
	testFar    = 1000
)

// testFrame returns a frame with the camera at the origin looking down -Z.
func testFrame() common.FrameView {
	return common.NewFrameView(mgl32.Ident4(), mgl32.DegToRad(60), testNear, testFar, testWidth, testHeight)
}

// lookFrame returns a frame with the camera at eye looking at target.
func lookFrame(eye, target mgl32.Vec3) common.FrameView {
	view := mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
	return common.NewFrameView(view, mgl32.DegToRad(60), testNear, testFar, testWidth, testHeight)
}

// pointOfRadius returns options for a white point light of influence radius r at p.
func pointOfRadius(p mgl32.Vec3, r float32) []light.LightBuilderOption {
	return []light.LightBuilderOption{
		light.WithPositionVec(p),
		light.WithColor(1, 1, 1),
		light.WithIntensity(light.SpectrumForRadius(r)),
	}
}

// goParallel is a parallelFunc backed by plain goroutines.
func goParallel(n int, fn func(i int)) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			fn(i)
		}()
	}
	wg.Wait()
}

// randomRegistry fills a registry with n random point and spot lights spread in
// front of and around the origin.
func randomRegistry(rng *rand.Rand, n int) light.Registry {
	reg := light.NewRegistry(light.WithMaxLights(n))
	for range n {
		pos := mgl32.Vec3{
			rng.Float32()*400 - 200,
			rng.Float32()*100 - 50,
			rng.Float32()*-600 + 50,
		}
		opts := pointOfRadius(pos, 1+rng.Float32()*30)
		if rng.IntN(3) == 0 {
			opts = append(opts,
				light.WithDirection(rng.Float32()*2-1, rng.Float32()*2-1, rng.Float32()*2-1),
				light.WithSpotCone(5+rng.Float32()*20, 10+rng.Float32()*60),
			)
			reg.AddLight(light.LightTypeSpot, opts...)
			continue
		}
		reg.AddLight(light.LightTypePoint, opts...)
	}
	return reg
}

// referenceCull is the scalar culler the lane culler must agree with, along with
// the minimum plane margin (distance + radius) of every light.
func referenceCull(view light.View, frame common.FrameView) (keep []bool, margin []float32) {
	planes := common.ExtractFrustumFromMatrix(frame.Projection)
	keep = make([]bool, view.Len())
	margin = make([]float32, view.Len())
	for i := range view.Len() {
		bs := view.Light(i).BoundingSphere()
		c := mgl32.TransformCoordinate(bs.Center, frame.View)
		m := float32(math.Inf(1))
		for _, p := range planes.CullingPlanes() {
			m = min(m, p.SignedDistance(c)+bs.Radius)
		}
		margin[i] = m
		keep[i] = view.Light(i).Enabled() && planes.ContainsSphere(c, bs.Radius)
	}
	return keep, margin
}

func isSorted(entries []CulledLightEntry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i-1].FrontDepth > entries[i].FrontDepth {
			return false
		}
	}
	return true
}
