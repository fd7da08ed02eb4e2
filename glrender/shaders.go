package glrender

import (
	"strings"

	"github.com/TheBitDrifter/stage"
)

const defaultVertex = `#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aUV;

uniform mat4 uModel;
uniform mat4 uViewProj;
uniform mat4 uLightViewProj;

out vec3 vNormal;
out vec3 vWorldPos;
out vec2 vUV;
out vec4 vLightPos;

void main() {
	vec4 world = uModel * vec4(aPos, 1.0);
	vWorldPos = world.xyz;
	vNormal = mat3(uModel) * aNormal;
	vUV = aUV;
	vLightPos = uLightViewProj * world;
	gl_Position = uViewProj * world;
}
`

const defaultFragment = `#version 410 core
in vec3 vNormal;
in vec3 vWorldPos;
in vec2 vUV;
in vec4 vLightPos;

uniform vec4 uDiffuseColor;
uniform vec4 uAmbient;
uniform vec4 uLightDir;
uniform vec4 uLightColor;
uniform vec4 uFog;
uniform vec4 uFogColor;
uniform vec3 uEye;
#ifdef DIFFUSE_MAP
uniform sampler2D uDiffuseMap;
#endif
#ifdef SHADOW_MAP
uniform sampler2D uShadowMap;
#endif

out vec4 FragColor;

void main() {
	vec4 base = uDiffuseColor;
#ifdef DIFFUSE_MAP
	base *= texture(uDiffuseMap, vUV);
#endif
	float lit = max(dot(normalize(vNormal), -normalize(uLightDir.xyz)), 0.0);
#ifdef SHADOW_MAP
	vec3 p = vLightPos.xyz / vLightPos.w * 0.5 + 0.5;
	if (p.z - uLightDir.w > texture(uShadowMap, p.xy).r) {
		lit = 0.0;
	}
#endif
	vec3 color = base.rgb * (uAmbient.rgb + uLightColor.rgb * lit);
	float d = distance(uEye, vWorldPos);
	float f = clamp((d - uFog.x) / max(uFog.y - uFog.x, 0.001), 0.0, 1.0);
	FragColor = vec4(mix(color, uFogColor.rgb, f), base.a);
}
`

const depthVertex = `#version 410 core
layout (location = 0) in vec3 aPos;
uniform mat4 uModel;
uniform mat4 uViewProj;
void main() {
	gl_Position = uViewProj * uModel * vec4(aPos, 1.0);
}
`

const depthFragment = `#version 410 core
void main() {}
`

// DefaultProgram describes the forward shading program used by the demos. A
// diffuse map enables the DIFFUSE_MAP variant.
func DefaultProgram() stage.Program {
	return stage.Program{
		Name:     "default",
		Vertex:   defaultVertex,
		Fragment: defaultFragment,
		Features: []stage.ProgramFeature{
			{Define: "DIFFUSE_MAP", Uniform: "uDiffuseMap"},
		},
	}
}

// withDefines inserts #define lines after the #version line of src.
func withDefines(src string, defines []string) string {
	if len(defines) == 0 {
		return src
	}
	var b strings.Builder
	head, rest, found := strings.Cut(src, "\n")
	if !found || !strings.HasPrefix(head, "#version") {
		head, rest = "", src
	} else {
		b.WriteString(head)
		b.WriteString("\n")
	}
	for _, d := range defines {
		b.WriteString("#define ")
		b.WriteString(d)
		b.WriteString("\n")
	}
	b.WriteString(rest)
	return b.String()
}
