package stage

import "github.com/go-gl/mathgl/mgl32"

type LightKind int

const (
	PointLight LightKind = iota
	SpotLight
	LinearLight
)

func (k LightKind) String() string {
	switch k {
	case PointLight:
		return "point"
	case SpotLight:
		return "spot"
	case LinearLight:
		return "linear"
	}
	return "unknown"
}

type ShadowType int

const (
	ShadowNone ShadowType = iota
	ShadowMap
)

type Light struct {
	Kind              LightKind
	Diffuse           Color
	DiffuseIntensity  float32
	Specular          Color
	SpecularIntensity float32
	Radius            float32
	InnerAngle        float32
	OuterAngle        float32
	Priority          float32
	Shadow            ShadowType
	ShadowBias        float32
	// PSSMSplits holds the cascade distances of a linear light shadow.
	PSSMSplits mgl32.Vec4
}

func (l *Light) CastsShadow() bool {
	return l.Shadow == ShadowMap
}

func MakePointLight(radius float32, diffuse, specular Color) Light {
	return Light{
		Kind:              PointLight,
		Radius:            radius,
		Diffuse:           diffuse,
		DiffuseIntensity:  1,
		Specular:          specular,
		SpecularIntensity: 1,
	}
}

// MakeSpotLight builds a spot light; angles are in radians.
func MakeSpotLight(radius, inner, outer float32, diffuse, specular Color, shadow ShadowType, bias float32) Light {
	return Light{
		Kind:              SpotLight,
		Radius:            radius,
		InnerAngle:        inner,
		OuterAngle:        outer,
		Diffuse:           diffuse,
		DiffuseIntensity:  1,
		Specular:          specular,
		SpecularIntensity: 1,
		Shadow:            shadow,
		ShadowBias:        bias,
	}
}

func MakeLinearLight(diffuse, specular Color, shadow ShadowType, bias float32, splits mgl32.Vec4) Light {
	return Light{
		Kind:              LinearLight,
		Diffuse:           diffuse,
		DiffuseIntensity:  1,
		Specular:          specular,
		SpecularIntensity: 1,
		Shadow:            shadow,
		ShadowBias:        bias,
		PSSMSplits:        splits,
	}
}
