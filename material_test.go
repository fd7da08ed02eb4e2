package stage

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testProgram() Program {
	return Program{
		Name: "lit",
		Features: []ProgramFeature{
			{Define: "DIFFUSE_MAP", Uniform: "uDiffuseMap"},
			{Define: "NORMAL_MAP", Uniform: "uNormalMap"},
		},
	}
}

// TestUpdateMaterialProgramVariant tests that the variant follows the bound
// textures
func TestUpdateMaterialProgramVariant(t *testing.T) {
	tests := []struct {
		name          string
		bind          []string
		unbind        []string
		expectDefines []string
		expectName    string
	}{
		{name: "No textures", expectName: "lit"},
		{name: "Diffuse map", bind: []string{"uDiffuseMap"}, expectDefines: []string{"DIFFUSE_MAP"}, expectName: "lit+DIFFUSE_MAP"},
		{
			name:          "Both maps",
			bind:          []string{"uNormalMap", "uDiffuseMap"},
			expectDefines: []string{"DIFFUSE_MAP", "NORMAL_MAP"},
			expectName:    "lit+DIFFUSE_MAP+NORMAL_MAP",
		},
		{name: "Unbound again", bind: []string{"uDiffuseMap"}, unbind: []string{"uDiffuseMap"}, expectName: "lit"},
		{name: "Unknown uniform", bind: []string{"uOther"}, expectName: "lit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Factory.NewResources()
			prgRef := res.Programs.Add("lit", testProgram())
			tex := res.Textures.Add("checker", Texture{Width: 1, Height: 1, Pixels: []uint8{255, 255, 255, 255}})
			mat := CreateMaterial(prgRef, MakeUniformSetValue("uDiffuseColor", mgl32.Vec4{1, 0, 0, 1}))

			for _, u := range tt.bind {
				SetMaterialTexture(&mat, u, tex, 0)
			}
			for _, u := range tt.unbind {
				SetMaterialTexture(&mat, u, InvalidTextureRef, 0)
			}
			if err := UpdateMaterialProgramVariant(&mat, res); err != nil {
				t.Fatalf("UpdateMaterialProgramVariant failed: %v", err)
			}

			prg, _ := res.Programs.Get(prgRef)
			defines := prg.Defines(mat.Variant())
			if len(defines) != len(tt.expectDefines) {
				t.Fatalf("Defines = %v, expected %v", defines, tt.expectDefines)
			}
			for i := range defines {
				if defines[i] != tt.expectDefines[i] {
					t.Errorf("Define %d = %s, expected %s", i, defines[i], tt.expectDefines[i])
				}
			}
			if name := prg.VariantName(mat.Variant()); name != tt.expectName {
				t.Errorf("VariantName = %q, expected %q", name, tt.expectName)
			}
		})
	}
}

// TestMaterialVariantIgnoresRemovedTexture tests that a stale texture does
// not enable its feature
func TestMaterialVariantIgnoresRemovedTexture(t *testing.T) {
	res := Factory.NewResources()
	prgRef := res.Programs.Add("lit", testProgram())
	tex := res.Textures.Add("checker", Texture{Width: 1, Height: 1})
	mat := CreateMaterial(prgRef)
	SetMaterialTexture(&mat, "uDiffuseMap", tex, 0)
	if err := res.Textures.Remove(tex); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if err := UpdateMaterialProgramVariant(&mat, res); err != nil {
		t.Fatalf("UpdateMaterialProgramVariant failed: %v", err)
	}
	prg, _ := res.Programs.Get(prgRef)
	if name := prg.VariantName(mat.Variant()); name != "lit" {
		t.Errorf("VariantName = %q, expected lit", name)
	}
}

// TestMaterialSetters tests values, program changes and transparency
func TestMaterialSetters(t *testing.T) {
	res := Factory.NewResources()
	mat := CreateMaterial(ProgramRef{})
	if err := UpdateMaterialProgramVariant(&mat, res); err == nil {
		t.Error("Expected an error for a material without program")
	}

	SetMaterialValue(&mat, "uSelfColor", mgl32.Vec4{0, 1, 0, 1})
	if mat.Values["uSelfColor"] != (mgl32.Vec4{0, 1, 0, 1}) {
		t.Errorf("Value = %v", mat.Values["uSelfColor"])
	}
	if mat.Transparent() {
		t.Error("New material should be opaque")
	}
	mat.Blend = BlendAlpha
	if !mat.Transparent() {
		t.Error("Alpha blended material should be transparent")
	}

	prgRef := res.Programs.Add("lit", testProgram())
	SetMaterialProgram(&mat, prgRef)
	if mat.Program != prgRef {
		t.Error("SetMaterialProgram did not change the program")
	}
}
