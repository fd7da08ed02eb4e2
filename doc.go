/*
Package stage provides the scene graph and frame submission core used by real-time 3D demos.

Nodes live in a generation-checked store: a NodeRef stays valid until the node it names is
reclaimed, and never resolves to a node created later in the same slot. Component rows are kept
in archetype tables, one per component set, so nodes are selected by the components they carry.

Core Concepts:

  - Resources: named, reference-counted models, materials, textures and programs behind handles.
  - Node: a transform plus optional object, light, camera and instance components.
  - Scene: the node store, the current camera and the per-scene canvas and environment.
  - Bridge: an animation or physics system stepped by Scene.Update.
  - Pipeline: turns a scene into ordered shadow and color passes for a Backend.
  - Loop: acquires subsystems, ticks the scene and releases everything in reverse order.

Basic Usage:

	res := stage.Factory.NewResources()
	scene := stage.Factory.NewScene(res)

	cube := res.Models.Add("cube", stage.CreateCubeModel(1, 1, 1))
	mat := res.Materials.Add("white", stage.CreateMaterial(stage.ProgramRef{}))
	scene.CreateObject(stage.IdentityTransform(), cube, mat)

	cam, _ := scene.CreateCamera(stage.TranslationTransform(mgl32.Vec3{0, 0, 5}), stage.Camera{ZNear: 0.1, ZFar: 100, Fov: stage.Deg(60)})
	scene.SetCurrentCamera(cam)

	pipeline := stage.Factory.NewPipeline(backend)
	var vid stage.ViewID
	scene.Update(0)
	pipeline.SubmitScene(&vid, scene, stage.MakeRectFromWidthHeight(1280, 720), 1280.0/720.0, res, stage.Backbuffer)

Destroying a node only marks it. Scene.GarbageCollect reclaims marked nodes between frames and
returns how many were reclaimed.
*/
package stage
