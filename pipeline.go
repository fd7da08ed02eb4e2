package stage

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// PipelineStats counts pipeline calls since the last ResetStats.
type PipelineStats struct {
	CommonPrepares int
	ViewPrepares   int
	Submits        int
	Passes         int
	Draws          int
}

// Pipeline turns scenes into ordered passes for a Backend.
type Pipeline struct {
	backend       Backend
	ShadowMapSize int
	Stats         PipelineStats
}

func newPipeline(backend Backend) *Pipeline {
	if backend == nil {
		backend = &RecordingBackend{}
	}
	return &Pipeline{backend: backend, ShadowMapSize: 1024}
}

func (p *Pipeline) Backend() Backend {
	return p.backend
}

func (p *Pipeline) ResetStats() {
	p.Stats = PipelineStats{}
}

func nextView(vid *ViewID) ViewID {
	id := *vid
	*vid++
	return id
}

func (p *Pipeline) lock(scene *Scene) func() {
	scene.AddLock(LockSubmit)
	return func() {
		if err := scene.RemoveLock(LockSubmit); err != nil {
			Config.Logger().Error("failed to apply deferred node operations", "err", err)
		}
	}
}

// PrepareCommonRenderData collects the draws and lights of scene into rd and
// allocates the view-independent shadow passes. It runs once per frame,
// whatever the number of views.
func (p *Pipeline) PrepareCommonRenderData(vid *ViewID, scene *Scene, rd *RenderData, res *Resources) error {
	defer p.lock(scene)()
	rd.reset()
	rd.generation = scene.Generation()

	visible := newCursor(newQuery().Or(ObjectComponent, LightComponent), scene)
	for visible.Next() {
		n := visible.Node()
		world := n.Transform().World()
		if obj, ok := n.Object(); ok {
			if err := p.collectDraws(rd, scene, n, &obj, world, res); err != nil {
				visible.Reset()
				return err
			}
		}
		if light, ok := n.Light(); ok {
			rd.lights = append(rd.lights, LightData{Node: n.ref, Light: *light, World: world})
		}
	}

	for i := range rd.lights {
		ld := &rd.lights[i]
		if ld.Light.Kind != SpotLight || !ld.Light.CastsShadow() {
			continue
		}
		state := spotShadowViewState(ld.World, ld.Light)
		ld.Shadow = nextView(vid)
		ld.HasShadow = true
		rd.shadowPasses = append(rd.shadowPasses, Pass{
			View:   ld.Shadow,
			Kind:   PassShadow,
			Rect:   MakeRectFromWidthHeight(p.ShadowMapSize, p.ShadowMapSize),
			State:  state,
			Clear:  true,
			Draws:  shadowCasters(rd.draws, state),
			Light:  ld.Node,
			Target: Backbuffer,
		})
	}
	rd.prepared = true
	p.Stats.CommonPrepares++
	return nil
}

func (p *Pipeline) collectDraws(rd *RenderData, scene *Scene, n Node, obj *Object, world mgl32.Mat4, res *Resources) error {
	if !obj.Model.IsValid() {
		return nil
	}
	model, err := res.Models.Get(obj.Model)
	if err != nil {
		return fmt.Errorf("node %v: %w", n.ref, err)
	}
	center := world.Mul4x1(model.BoundsCenter().Vec4(1)).Vec3()
	radius := model.BoundsRadius() * maxScale(world)
	for _, list := range model.DisplayLists() {
		ref, ok := obj.Material(list.Material)
		if !ok {
			ref, ok = obj.Material(0)
		}
		if !ok {
			continue
		}
		mat, err := res.Materials.Get(ref)
		if err != nil {
			return fmt.Errorf("node %v: %w", n.ref, err)
		}
		rd.draws = append(rd.draws, Draw{
			Node:        n.ref,
			Model:       obj.Model,
			Material:    ref,
			List:        list,
			World:       world,
			Center:      center,
			Radius:      radius,
			Transparent: mat.Transparent(),
			CastShadow:  mat.CastShadow,
			Seq:         scene.nodeSeq(n.ref),
		})
	}
	return nil
}

func maxScale(m mgl32.Mat4) float32 {
	return math32.Max(m.Col(0).Vec3().Len(), math32.Max(m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()))
}

func spotShadowViewState(world mgl32.Mat4, l Light) ViewState {
	fov := math32.Min(2*l.OuterAngle, Deg(170))
	if fov <= 0 {
		fov = Deg(90)
	}
	far := l.Radius
	if far <= 0 {
		far = 100
	}
	return ComputePerspectiveViewState(world, fov, 1, 0.05, far)
}

func shadowCasters(draws []Draw, state ViewState) []Draw {
	var casters []Draw
	for _, d := range draws {
		if d.CastShadow && !d.Transparent && state.Frustum.ContainsSphere(d.Center, d.Radius) {
			casters = append(casters, d)
		}
	}
	sortDraws(casters, state.Position())
	return casters
}

// PrepareViewDependentRenderData culls the frame draws against view and
// allocates the shadow passes of linear lights, fitted to view.
func (p *Pipeline) PrepareViewDependentRenderData(vid *ViewID, view ViewState, scene *Scene, rd *RenderData, res *Resources) error {
	if err := checkRenderData(scene, rd); err != nil {
		return err
	}
	defer p.lock(scene)()
	rd.resetView()

	for _, d := range rd.draws {
		if view.Frustum.ContainsSphere(d.Center, d.Radius) {
			rd.visible = append(rd.visible, d)
		}
	}
	for i := range rd.lights {
		ld := &rd.lights[i]
		if ld.Light.Kind != LinearLight || !ld.Light.CastsShadow() {
			continue
		}
		// Linear shadow maps are fitted to the view being prepared.
		ld.HasShadow = false
		for _, state := range linearShadowViewStates(ld.World, ld.Light, view) {
			pass := Pass{
				View:  nextView(vid),
				Kind:  PassShadow,
				Rect:  MakeRectFromWidthHeight(p.ShadowMapSize, p.ShadowMapSize),
				State: state,
				Clear: true,
				Draws: shadowCasters(rd.draws, state),
				Light: ld.Node,
			}
			if !ld.HasShadow {
				ld.Shadow, ld.HasShadow = pass.View, true
			}
			rd.viewShadows = append(rd.viewShadows, pass)
		}
	}
	rd.viewReady = true
	p.Stats.ViewPrepares++
	return nil
}

// linearShadowViewStates returns one orthographic view per split distance of
// l, centered on the viewer and looking down the light direction.
func linearShadowViewStates(world mgl32.Mat4, l Light, view ViewState) []ViewState {
	dir := world.Col(2).Vec3().Normalize().Mul(-1)
	eye := view.Position()
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(dir.Dot(up)) > 0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	var states []ViewState
	for _, split := range l.PSSMSplits {
		if split <= 0 {
			continue
		}
		lightView := mgl32.LookAtV(eye.Sub(dir.Mul(split)), eye, up)
		proj := mgl32.Ortho(-split, split, -split, split, 0, 2*split)
		states = append(states, newViewState(lightView, proj))
	}
	if len(states) == 0 {
		lightView := mgl32.LookAtV(eye.Sub(dir.Mul(50)), eye, up)
		states = append(states, newViewState(lightView, mgl32.Ortho(-50, 50, -50, 50, 0, 100)))
	}
	return states
}

func checkRenderData(scene *Scene, rd *RenderData) error {
	if !rd.prepared || rd.generation != scene.Generation() {
		return StaleRenderDataError{Prepared: rd.generation, Current: scene.Generation()}
	}
	return nil
}

// Submit hands the pending shadow passes and one color pass for view to the
// backend. Opaque draws go front to back, then transparent draws back to
// front; equal depths keep creation order.
func (p *Pipeline) Submit(vid *ViewID, scene *Scene, rect Rect, view ViewState, rd *RenderData, res *Resources, target FrameBuffer) error {
	if err := checkRenderData(scene, rd); err != nil {
		return err
	}
	if !rd.viewReady {
		if err := p.PrepareViewDependentRenderData(vid, view, scene, rd, res); err != nil {
			return err
		}
	}
	defer p.lock(scene)()

	if !rd.shadowsSent {
		for _, pass := range rd.shadowPasses {
			if err := p.send(pass); err != nil {
				return err
			}
		}
		rd.shadowsSent = true
	}
	for _, pass := range rd.viewShadows {
		if err := p.send(pass); err != nil {
			return err
		}
	}

	draws := slices.Clone(rd.visible)
	sortDraws(draws, view.Position())
	color := Pass{
		View:        nextView(vid),
		Kind:        PassColor,
		Rect:        rect,
		Target:      target,
		State:       view,
		Clear:       scene.Canvas.Clear,
		ClearColor:  scene.Canvas.ClearColor,
		Environment: scene.Environment,
		Draws:       draws,
		Lights:      slices.Clone(rd.lights),
	}
	rd.resetView()
	if err := p.send(color); err != nil {
		return err
	}
	p.Stats.Submits++
	return nil
}

func (p *Pipeline) send(pass Pass) error {
	if err := p.backend.Submit(pass); err != nil {
		return fmt.Errorf("failed to submit %s pass %d: %w", pass.Kind, pass.View, err)
	}
	p.Stats.Passes++
	p.Stats.Draws += len(pass.Draws)
	return nil
}

func sortDraws(draws []Draw, eye mgl32.Vec3) {
	depth := func(d Draw) float32 {
		return d.Center.Sub(eye).LenSqr()
	}
	slices.SortStableFunc(draws, func(a, b Draw) int {
		if a.Transparent != b.Transparent {
			if a.Transparent {
				return 1
			}
			return -1
		}
		da, db := depth(a), depth(b)
		if a.Transparent {
			da, db = db, da
		}
		if c := cmp.Compare(da, db); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}

// SubmitScene draws scene once from its current camera into target.
func (p *Pipeline) SubmitScene(vid *ViewID, scene *Scene, rect Rect, aspect float32, res *Resources, target FrameBuffer) error {
	cam, err := scene.CurrentCamera()
	if err != nil {
		return err
	}
	c, _ := cam.Camera()
	view := ComputeCameraViewState(cam.Transform().World(), *c, aspect)

	var rd RenderData
	if err := p.PrepareCommonRenderData(vid, scene, &rd, res); err != nil {
		return err
	}
	if err := p.PrepareViewDependentRenderData(vid, view, scene, &rd, res); err != nil {
		return err
	}
	return p.Submit(vid, scene, rect, view, &rd, res, target)
}

// SubmitViews draws scene from several views sharing one common
// preparation. No views means nothing is submitted.
func (p *Pipeline) SubmitViews(vid *ViewID, scene *Scene, views []ViewSpec, res *Resources) error {
	if len(views) == 0 {
		return nil
	}
	var rd RenderData
	if err := p.PrepareCommonRenderData(vid, scene, &rd, res); err != nil {
		return err
	}
	for _, v := range views {
		if err := p.PrepareViewDependentRenderData(vid, v.State, scene, &rd, res); err != nil {
			return err
		}
		if err := p.Submit(vid, scene, v.Rect, v.State, &rd, res, v.Target); err != nil {
			return err
		}
	}
	return nil
}

// SubmitStereo draws one view per eye, each into its own target.
func (p *Pipeline) SubmitStereo(vid *ViewID, scene *Scene, left, right ViewSpec, res *Resources) error {
	return p.SubmitViews(vid, scene, []ViewSpec{left, right}, res)
}
