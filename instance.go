package stage

import "fmt"

// TemplateNode describes one node of a template. Parent indexes an earlier
// node of the same template, or is negative for top-level nodes.
type TemplateNode struct {
	Name      string
	Parent    int
	Transform Transform
	Model     string
	Materials []string
	Light     *Light
	Camera    *Camera
}

// Template is a node hierarchy that can be instantiated many times.
type Template struct {
	Name  string
	Nodes []TemplateNode
}

// CreateInstance loads the template at path and instantiates it under a new
// root node posed at trs. The root carries an Instance component owning every
// created node, so destroying the root destroys the whole instance.
//
// Instantiation is all-or-nothing: on failure every node created by the call
// is removed before a PartialInstantiationError is returned.
func (s *Scene) CreateInstance(trs Transform, path string, loader TemplateLoader, res *Resources) (NodeRef, error) {
	tpl, err := loader.LoadTemplate(path, res)
	if err != nil {
		return NodeRef{}, PartialInstantiationError{Template: path, Err: err}
	}
	root, err := s.CreateNode(trs, With(InstanceComponent, Instance{Template: path}))
	if err != nil {
		return NodeRef{}, PartialInstantiationError{Template: path, Err: err}
	}
	children, err := s.instantiate(tpl, root, res)
	if err != nil {
		created, rerr := s.rollback(append([]NodeRef{root}, children...))
		return NodeRef{}, PartialInstantiationError{Template: path, Created: created, Err: err, Rollback: rerr}
	}
	n := Node{ref: root, sto: s.sto}
	inst, _ := n.Instance()
	inst.Children = children
	Config.Logger().Debug("instance created", "template", path, "root", root, "nodes", len(children))
	return root, nil
}

// LoadScene instantiates the template at path directly into the scene,
// without an instance root, and returns the created nodes in template order.
func (s *Scene) LoadScene(path string, loader TemplateLoader, res *Resources) ([]NodeRef, error) {
	tpl, err := loader.LoadTemplate(path, res)
	if err != nil {
		return nil, PartialInstantiationError{Template: path, Err: err}
	}
	nodes, err := s.instantiate(tpl, NodeRef{}, res)
	if err != nil {
		created, rerr := s.rollback(nodes)
		return nil, PartialInstantiationError{Template: path, Created: created, Err: err, Rollback: rerr}
	}
	return nodes, nil
}

// instantiate creates the nodes of tpl. On error it returns the nodes created
// so far.
func (s *Scene) instantiate(tpl *Template, root NodeRef, res *Resources) ([]NodeRef, error) {
	created := make([]NodeRef, 0, len(tpl.Nodes))
	for i, tn := range tpl.Nodes {
		var values []ComponentValue
		if tn.Model != "" {
			obj, err := resolveObject(tn, res)
			if err != nil {
				return created, fmt.Errorf("node %d (%s): %w", i, tn.Name, err)
			}
			values = append(values, With(ObjectComponent, obj))
		}
		if tn.Light != nil {
			values = append(values, With(LightComponent, *tn.Light))
		}
		if tn.Camera != nil {
			values = append(values, With(CameraComponent, *tn.Camera))
		}

		parent := root
		if tn.Parent >= 0 {
			if tn.Parent >= i {
				return created, fmt.Errorf("node %d (%s): parent %d is not an earlier node", i, tn.Name, tn.Parent)
			}
			parent = created[tn.Parent]
		}

		ref, err := s.CreateNode(tn.Transform, values...)
		if err != nil {
			return created, fmt.Errorf("node %d (%s): %w", i, tn.Name, err)
		}
		created = append(created, ref)
		if parent.IsValid() {
			if err := s.SetParent(ref, parent); err != nil {
				return created, fmt.Errorf("node %d (%s): %w", i, tn.Name, err)
			}
		}
	}
	return created, nil
}

func resolveObject(tn TemplateNode, res *Resources) (Object, error) {
	model, err := res.Models.Find(tn.Model)
	if err != nil {
		return Object{}, err
	}
	obj := Object{Model: model}
	for _, name := range tn.Materials {
		mat, err := res.Materials.Find(name)
		if err != nil {
			return Object{}, err
		}
		obj.Materials = append(obj.Materials, mat)
	}
	return obj, nil
}

// rollback removes refs immediately and returns how many were removed.
func (s *Scene) rollback(refs []NodeRef) (int, error) {
	indices := make([]uint32, 0, len(refs))
	for _, ref := range refs {
		if s.IsValid(ref) {
			indices = append(indices, ref.Index)
		}
	}
	n, err := s.sto.reclaim(indices)
	if err != nil {
		Config.Logger().Error("failed to roll back instantiation", "err", err)
		return n, err
	}
	return n, nil
}
