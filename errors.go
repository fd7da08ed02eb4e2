package stage

import "fmt"

// StaleReferenceError is returned when a node reference no longer matches the
// generation of the slot it points to.
type StaleReferenceError struct {
	Ref NodeRef
}

func (e StaleReferenceError) Error() string {
	return fmt.Sprintf("stale node reference %v", e.Ref)
}

type ResourceNotFoundError struct {
	Kind string
	Name string
}

func (e ResourceNotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s not found: %q", e.Kind, e.Name)
}

// PartialInstantiationError reports a failed instancing call. Nodes created by
// the call have already been removed when it is returned, unless Rollback
// is set.
type PartialInstantiationError struct {
	Template string
	Created  int
	Err      error
	// Rollback is the error that kept created nodes from being removed.
	Rollback error
}

func (e PartialInstantiationError) Error() string {
	if e.Rollback != nil {
		return fmt.Sprintf("instantiation of %q failed: %v; rollback failed: %v", e.Template, e.Err, e.Rollback)
	}
	return fmt.Sprintf("instantiation of %q rolled back (%d nodes removed): %v", e.Template, e.Created, e.Err)
}

func (e PartialInstantiationError) Unwrap() []error {
	if e.Rollback == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Rollback}
}

type NoCurrentCameraError struct{}

func (e NoCurrentCameraError) Error() string {
	return "scene has no current camera"
}

type LockedSceneError struct{}

func (e LockedSceneError) Error() string {
	return "scene is currently locked"
}

// StaleRenderDataError is returned when render data prepared for one scene
// generation is submitted after a garbage collection pass.
type StaleRenderDataError struct {
	Prepared, Current uint64
}

func (e StaleRenderDataError) Error() string {
	return fmt.Sprintf("render data prepared for scene generation %d, scene is at %d", e.Prepared, e.Current)
}

// FatalInitError is returned by Loop.Init when a subsystem cannot be acquired.
type FatalInitError struct {
	Subsystem string
	Err       error
}

func (e FatalInitError) Error() string {
	return fmt.Sprintf("failed to acquire %s: %v", e.Subsystem, e.Err)
}

func (e FatalInitError) Unwrap() error {
	return e.Err
}

type NodeRelationError struct {
	Child, Parent NodeRef
}

func (e NodeRelationError) Error() string {
	return fmt.Sprintf("cannot parent %v to %v: would create a cycle", e.Child, e.Parent)
}

type ComponentExistsError struct {
	Component Component
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component already exists on node: %T", e.Component)
}

type ComponentNotFoundError struct {
	Component Component
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component does not exist on node: %T", e.Component)
}
