package stage

import (
	"strings"

	"github.com/TheBitDrifter/mask"
	"github.com/go-gl/mathgl/mgl32"
)

// ProgramFeature is an optional compile-time branch of a program, enabled when
// the material sets the texture uniform it names.
type ProgramFeature struct {
	Define  string
	Uniform string
}

// Program is a shader program description. Backends compile one variant per
// set of enabled features.
type Program struct {
	Name     string
	Vertex   string
	Fragment string
	Features []ProgramFeature
}

// Defines lists the preprocessor defines of variant, in feature order.
func (p *Program) Defines(variant mask.Mask) []string {
	var defines []string
	for i, f := range p.Features {
		if variantHas(variant, uint32(i)) {
			defines = append(defines, f.Define)
		}
	}
	return defines
}

// VariantName is a stable, human readable key for variant.
func (p *Program) VariantName(variant mask.Mask) string {
	defines := p.Defines(variant)
	if len(defines) == 0 {
		return p.Name
	}
	return p.Name + "+" + strings.Join(defines, "+")
}

func variantHas(variant mask.Mask, bit uint32) bool {
	var probe mask.Mask
	probe.Mark(bit)
	return variant.ContainsAll(probe)
}

// Texture is CPU-side RGBA8 image data.
type Texture struct {
	Width, Height int
	Pixels        []uint8
}

type TextureSlot struct {
	Texture TextureRef
	Stage   uint8
}

type BlendMode int

const (
	BlendOpaque BlendMode = iota
	BlendAlpha
	BlendAdditive
)

type FaceCulling int

const (
	CullBack FaceCulling = iota
	CullFront
	CullDisabled
)

// UniformSetValue names a vec4 uniform value.
type UniformSetValue struct {
	Name  string
	Value mgl32.Vec4
}

func MakeUniformSetValue(name string, value mgl32.Vec4) UniformSetValue {
	return UniformSetValue{Name: name, Value: value}
}

// Material binds a program to uniform values and textures. It is mutated in
// place; call UpdateMaterialProgramVariant after changing textures.
type Material struct {
	Program    ProgramRef
	Values     map[string]mgl32.Vec4
	Textures   map[string]TextureSlot
	Blend      BlendMode
	Culling    FaceCulling
	CastShadow bool
	variant    mask.Mask
}

func CreateMaterial(prg ProgramRef, values ...UniformSetValue) Material {
	mat := Material{
		Program:    prg,
		Values:     make(map[string]mgl32.Vec4, len(values)),
		Textures:   make(map[string]TextureSlot),
		CastShadow: true,
	}
	for _, v := range values {
		mat.Values[v.Name] = v.Value
	}
	return mat
}

func SetMaterialValue(mat *Material, name string, value mgl32.Vec4) {
	if mat.Values == nil {
		mat.Values = make(map[string]mgl32.Vec4)
	}
	mat.Values[name] = value
}

// SetMaterialTexture binds tex to the named sampler uniform. Passing
// InvalidTextureRef removes the binding.
func SetMaterialTexture(mat *Material, name string, tex TextureRef, stage uint8) {
	if !tex.IsValid() {
		delete(mat.Textures, name)
		return
	}
	if mat.Textures == nil {
		mat.Textures = make(map[string]TextureSlot)
	}
	mat.Textures[name] = TextureSlot{Texture: tex, Stage: stage}
}

func SetMaterialProgram(mat *Material, prg ProgramRef) {
	mat.Program = prg
	var none mask.Mask
	mat.variant = none
}

// Variant returns the shader variant derived by the last
// UpdateMaterialProgramVariant call.
func (m *Material) Variant() mask.Mask {
	return m.variant
}

func (m *Material) Transparent() bool {
	return m.Blend != BlendOpaque
}

// UpdateMaterialProgramVariant derives the shader variant of mat from which
// feature uniforms currently have a texture bound.
func UpdateMaterialProgramVariant(mat *Material, res *Resources) error {
	prg, err := res.Programs.Get(mat.Program)
	if err != nil {
		return err
	}
	var variant mask.Mask
	for i, f := range prg.Features {
		slot, ok := mat.Textures[f.Uniform]
		if ok && res.Textures.Has(slot.Texture) {
			variant.Mark(uint32(i))
		}
	}
	mat.variant = variant
	return nil
}
