package stage

import (
	"errors"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Lock bits held on a scene while its nodes must not be reclaimed.
const (
	LockSubmit uint32 = iota
	LockCursor
	LockUser
)

// Canvas describes how the color target is cleared before a scene is drawn.
type Canvas struct {
	ClearColor Color
	Clear      bool
}

type Environment struct {
	Ambient  Color
	FogColor Color
	FogNear  float32
	FogFar   float32
}

// Scene owns a node store, the current camera and the per-scene drawing
// settings.
//
// A Scene is not safe for concurrent use. Programs updating it from several
// goroutines must hold one lock around the whole tick.
type Scene struct {
	Canvas      Canvas
	Environment Environment

	sto           *store
	res           *Resources
	currentCamera NodeRef
	bridges       []Bridge
	updateStamp   uint64
}

func newScene(res *Resources) *Scene {
	if res == nil {
		res = newResources()
	}
	return &Scene{
		Canvas:      Canvas{ClearColor: Black, Clear: true},
		Environment: Environment{Ambient: Color{R: 0.1, G: 0.1, B: 0.1, A: 1}, FogFar: 1000},
		sto:         newStore(res),
		res:         res,
	}
}

func (s *Scene) Resources() *Resources {
	return s.res
}

// CreateNode adds a node posed at trs carrying the given component values.
func (s *Scene) CreateNode(trs Transform, values ...ComponentValue) (NodeRef, error) {
	comps := make([]Component, len(values))
	for i, v := range values {
		comps[i] = v.Component()
	}
	ref, err := s.sto.create(comps)
	if err != nil {
		return NodeRef{}, err
	}
	n := Node{ref: ref, sto: s.sto}
	trs.stamp = 0
	trs.world = trs.Local()
	*n.Transform() = trs
	for _, v := range values {
		v.assign(n)
	}
	if err := s.sto.syncObject(ref); err != nil {
		if _, rerr := s.sto.reclaim([]uint32{ref.Index}); rerr != nil {
			return NodeRef{}, errors.Join(err, rerr)
		}
		return NodeRef{}, err
	}
	return ref, nil
}

// CreateObject adds a renderable node drawing model with one material per
// display list.
func (s *Scene) CreateObject(trs Transform, model ModelRef, materials ...MaterialRef) (NodeRef, error) {
	return s.CreateNode(trs, With(ObjectComponent, Object{Model: model, Materials: materials}))
}

func (s *Scene) CreateCamera(trs Transform, cam Camera) (NodeRef, error) {
	return s.CreateNode(trs, With(CameraComponent, cam))
}

func (s *Scene) CreateLight(trs Transform, light Light) (NodeRef, error) {
	return s.CreateNode(trs, With(LightComponent, light))
}

// CreatePointLight places a point light at pos.
func (s *Scene) CreatePointLight(pos mgl32.Vec3, radius float32, diffuse, specular Color) (NodeRef, error) {
	return s.CreateLight(TranslationTransform(pos), MakePointLight(radius, diffuse, specular))
}

// CreateSpotLight places a spot light at trs shining down its -Z axis.
func (s *Scene) CreateSpotLight(trs Transform, radius, inner, outer float32, diffuse, specular Color, shadow ShadowType, bias float32) (NodeRef, error) {
	return s.CreateLight(trs, MakeSpotLight(radius, inner, outer, diffuse, specular, shadow, bias))
}

func (s *Scene) CreateLinearLight(trs Transform, diffuse, specular Color, shadow ShadowType, bias float32, splits mgl32.Vec4) (NodeRef, error) {
	return s.CreateLight(trs, MakeLinearLight(diffuse, specular, shadow, bias, splits))
}

// GetNode resolves ref. Nodes marked for destruction resolve until the next
// garbage collection.
func (s *Scene) GetNode(ref NodeRef) (Node, error) {
	if _, ok := s.sto.lookup(ref); !ok {
		return Node{}, StaleReferenceError{Ref: ref}
	}
	return Node{ref: ref, sto: s.sto}, nil
}

func (s *Scene) IsValid(ref NodeRef) bool {
	_, ok := s.sto.lookup(ref)
	return ok
}

// DestroyNode marks ref and the nodes owned by its instance for destruction.
// Stale references are ignored. While the scene is locked the request is
// applied on unlock.
func (s *Scene) DestroyNode(ref NodeRef) {
	refs := s.destroySet(ref, nil)
	if len(refs) == 0 {
		return
	}
	if s.sto.locked() {
		s.sto.opQueue.enqueueDestroy(refs)
		return
	}
	for _, r := range refs {
		s.sto.markPending(r)
	}
}

func (s *Scene) destroySet(ref NodeRef, acc []NodeRef) []NodeRef {
	if !s.IsValid(ref) || slices.Contains(acc, ref) {
		return acc
	}
	acc = append(acc, ref)
	if inst := InstanceComponent.GetFromNode(Node{ref: ref, sto: s.sto}); inst != nil {
		for _, child := range inst.Children {
			acc = s.destroySet(child, acc)
		}
	}
	return acc
}

// Collect reclaims every node marked for destruction and returns how many
// were reclaimed. It fails with LockedSceneError while the scene is locked.
//
// Surviving children of reclaimed nodes are detached with their world pose
// kept as their new local pose.
func (s *Scene) Collect() (int, error) {
	if s.sto.locked() {
		return 0, LockedSceneError{}
	}
	s.sto.resyncObjects()
	if len(s.sto.pending) == 0 {
		return 0, nil
	}
	n, err := s.sto.reclaim(slices.Clone(s.sto.pending))
	if err != nil {
		return n, err
	}
	if n > 0 {
		s.sto.generation++
		s.detachOrphans()
		if !s.IsValid(s.currentCamera) {
			s.currentCamera = NodeRef{}
		}
		Config.Logger().Debug("scene garbage collected", "nodes", n, "generation", s.sto.generation)
	}
	return n, nil
}

// GarbageCollect is Collect with errors logged instead of returned.
func (s *Scene) GarbageCollect() int {
	n, err := s.Collect()
	if err != nil {
		Config.Logger().Warn("garbage collection skipped", "err", err)
	}
	return n
}

// GCReport counts what a reconciled collection pass reclaimed.
type GCReport struct {
	Nodes   int
	Bridges []int
}

func (r GCReport) Total() int {
	total := r.Nodes
	for _, n := range r.Bridges {
		total += n
	}
	return total
}

// GarbageCollectAll collects the scene, then lets every bridge drop state
// attached to reclaimed nodes.
func (s *Scene) GarbageCollectAll() GCReport {
	report := GCReport{Nodes: s.GarbageCollect()}
	for _, b := range s.bridges {
		report.Bridges = append(report.Bridges, b.GarbageCollect(s))
	}
	return report
}

func (s *Scene) detachOrphans() {
	for _, idx := range s.sto.order {
		t := TransformComponent.GetFromNode(Node{ref: s.sto.refOf(idx), sto: s.sto})
		if t == nil || !t.Parent.IsValid() || s.IsValid(t.Parent) {
			continue
		}
		world := t.World()
		t.SetFromMat4(world)
		t.Parent = NodeRef{}
		t.world = world
	}
}

// Nodes returns the nodes not marked for destruction in creation order.
func (s *Scene) Nodes() []NodeRef {
	refs := make([]NodeRef, 0, len(s.sto.order))
	for _, idx := range s.sto.order {
		if s.sto.slots[idx].pending {
			continue
		}
		refs = append(refs, s.sto.refOf(idx))
	}
	return refs
}

func (s *Scene) NodeCount() int {
	return len(s.sto.order) - len(s.sto.pending)
}

// PendingCount is the number of nodes waiting for the next collection.
func (s *Scene) PendingCount() int {
	return len(s.sto.pending)
}

// Generation increases with every collection pass that reclaimed nodes.
func (s *Scene) Generation() uint64 {
	return s.sto.generation
}

// SetCurrentCamera selects the camera used by SubmitScene. The node must
// carry a camera component.
func (s *Scene) SetCurrentCamera(ref NodeRef) error {
	n, err := s.GetNode(ref)
	if err != nil {
		return err
	}
	if !n.Has(CameraComponent) {
		return ComponentNotFoundError{Component: CameraComponent}
	}
	s.currentCamera = ref
	return nil
}

func (s *Scene) CurrentCamera() (Node, error) {
	if !s.IsValid(s.currentCamera) {
		return Node{}, NoCurrentCameraError{}
	}
	return Node{ref: s.currentCamera, sto: s.sto}, nil
}

// SetParent makes child's transform relative to parent.
func (s *Scene) SetParent(child, parent NodeRef) error {
	n, err := s.GetNode(child)
	if err != nil {
		return err
	}
	return n.SetParent(parent)
}

// AddBridge registers a bridge stepped by every Update.
func (s *Scene) AddBridge(b Bridge) {
	s.bridges = append(s.bridges, b)
}

// Update steps the bridges, then recomputes every world matrix parents
// first.
func (s *Scene) Update(dt time.Duration) error {
	for _, b := range s.bridges {
		if err := b.Step(s, dt); err != nil {
			return err
		}
	}
	s.updateWorld()
	return nil
}

func (s *Scene) updateWorld() {
	s.updateStamp++
	for _, idx := range s.sto.order {
		s.worldOf(s.sto.refOf(idx))
	}
}

func (s *Scene) worldOf(ref NodeRef) mgl32.Mat4 {
	t := TransformComponent.GetFromNode(Node{ref: ref, sto: s.sto})
	if t == nil {
		return mgl32.Ident4()
	}
	if t.stamp == s.updateStamp {
		return t.world
	}
	t.stamp = s.updateStamp
	t.world = t.Local()
	if t.Parent.IsValid() && s.IsValid(t.Parent) {
		t.world = s.worldOf(t.Parent).Mul4(t.world)
	}
	return t.world
}

// AddLock marks the scene as in use by the holder of bit. Destroy and
// component requests are deferred and collection refuses to run until
// every lock is removed.
func (s *Scene) AddLock(bit uint32) {
	s.sto.addLock(bit)
}

// RemoveLock releases bit and applies deferred requests once no lock is
// held.
func (s *Scene) RemoveLock(bit uint32) error {
	return s.sto.removeLock(bit)
}

func (s *Scene) Locked() bool {
	return s.sto.locked()
}

// nodeSeq is the creation sequence number of ref.
func (s *Scene) nodeSeq(ref NodeRef) uint64 {
	sl, ok := s.sto.lookup(ref)
	if !ok {
		return 0
	}
	return sl.seq
}
