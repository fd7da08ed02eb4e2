// Package glrender draws stage passes with OpenGL 4.1.
//
// The backend uploads models and textures on first use and compiles one
// program per material variant. Every call must happen on the thread owning
// the current GL context.
package glrender

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/TheBitDrifter/stage"
	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

type mesh struct {
	vao, vbo, ebo uint32
}

type program struct {
	id       uint32
	uniforms map[string]int32
}

func (p *program) uniform(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

type target struct {
	fbo, color, depth uint32
	width, height     int
	// viewProj is the light matrix of the last shadow pass drawn into it.
	viewProj mgl32.Mat4
}

// Backend implements stage.Backend.
type Backend struct {
	res *stage.Resources

	meshes   map[stage.ModelRef]*mesh
	textures map[stage.TextureRef]uint32
	programs map[string]*program
	targets  map[stage.FrameBuffer]*target
	shadows  map[stage.ViewID]*target
	depth    *program
	nextFB   stage.FrameBuffer

	// DefaultProgram is used by materials without a program.
	DefaultProgram stage.ProgramRef
}

var _ stage.Backend = &Backend{}

// New initializes GL function pointers for the current context and registers
// the default program in res.
func New(res *stage.Resources) (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	b := &Backend{
		res:      res,
		meshes:   make(map[stage.ModelRef]*mesh),
		textures: make(map[stage.TextureRef]uint32),
		programs: make(map[string]*program),
		targets:  make(map[stage.FrameBuffer]*target),
		shadows:  make(map[stage.ViewID]*target),
		nextFB:   1,
	}
	b.DefaultProgram = res.Programs.Add("default", DefaultProgram())
	depth, err := compile(depthVertex, depthFragment)
	if err != nil {
		return nil, fmt.Errorf("failed to compile depth program: %w", err)
	}
	b.depth = depth
	gl.Enable(gl.DEPTH_TEST)
	return b, nil
}

// CreateFrameBuffer allocates an offscreen color target and registers its
// color attachment as a texture named name, so materials can sample it.
func (b *Backend) CreateFrameBuffer(name string, width, height int) (stage.FrameBuffer, stage.TextureRef, error) {
	t, err := newTarget(width, height, true)
	if err != nil {
		return 0, stage.TextureRef{}, err
	}
	fb := b.nextFB
	b.nextFB++
	b.targets[fb] = t
	tex := b.res.Textures.Add(name, stage.Texture{Width: width, Height: height})
	b.textures[tex] = t.color
	return fb, tex, nil
}

func newTarget(width, height int, withColor bool) (*target, error) {
	t := &target{width: width, height: height}
	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	defer gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if withColor {
		gl.GenTextures(1, &t.color)
		gl.BindTexture(gl.TEXTURE_2D, t.color)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.color, 0)
	} else {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	gl.GenTextures(1, &t.depth)
	gl.BindTexture(gl.TEXTURE_2D, t.depth)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, int32(width), int32(height), 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, t.depth, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return nil, fmt.Errorf("incomplete framebuffer: 0x%x", status)
	}
	return t, nil
}

// Submit draws one pass.
func (b *Backend) Submit(pass stage.Pass) error {
	switch pass.Kind {
	case stage.PassShadow:
		return b.drawShadow(pass)
	case stage.PassColor:
		return b.drawColor(pass)
	}
	return fmt.Errorf("unknown pass kind %d", pass.Kind)
}

func (b *Backend) drawShadow(pass stage.Pass) error {
	t, ok := b.shadows[pass.View]
	if !ok || t.width != pass.Rect.Width || t.height != pass.Rect.Height {
		created, err := newTarget(pass.Rect.Width, pass.Rect.Height, false)
		if err != nil {
			return err
		}
		t = created
		b.shadows[pass.View] = t
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	defer gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(t.width), int32(t.height))
	gl.Clear(gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(b.depth.id)
	vp := pass.State.ViewProj()
	t.viewProj = vp
	gl.UniformMatrix4fv(b.depth.uniform("uViewProj"), 1, false, &vp[0])
	for _, d := range pass.Draws {
		if err := b.drawList(b.depth, d); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) drawColor(pass stage.Pass) error {
	if pass.Target != stage.Backbuffer {
		t, ok := b.targets[pass.Target]
		if !ok {
			return fmt.Errorf("unknown framebuffer %d", pass.Target)
		}
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
		defer gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	}
	gl.Viewport(int32(pass.Rect.X), int32(pass.Rect.Y), int32(pass.Rect.Width), int32(pass.Rect.Height))
	if pass.Clear {
		c := pass.ClearColor
		gl.ClearColor(c.R, c.G, c.B, c.A)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	}

	light, shadow := b.keyLight(pass)
	vp := pass.State.ViewProj()
	eye := pass.State.Position()
	for _, d := range pass.Draws {
		mat, err := b.res.Materials.Get(d.Material)
		if err != nil {
			return err
		}
		prg, err := b.programFor(mat, shadow != nil)
		if err != nil {
			return err
		}
		gl.UseProgram(prg.id)
		gl.UniformMatrix4fv(prg.uniform("uViewProj"), 1, false, &vp[0])
		gl.Uniform3f(prg.uniform("uEye"), eye[0], eye[1], eye[2])
		env := pass.Environment
		gl.Uniform4f(prg.uniform("uAmbient"), env.Ambient.R, env.Ambient.G, env.Ambient.B, env.Ambient.A)
		gl.Uniform4f(prg.uniform("uFog"), env.FogNear, env.FogFar, 0, 0)
		gl.Uniform4f(prg.uniform("uFogColor"), env.FogColor.R, env.FogColor.G, env.FogColor.B, env.FogColor.A)
		b.bindLight(prg, light)
		if shadow != nil {
			gl.ActiveTexture(gl.TEXTURE7)
			gl.BindTexture(gl.TEXTURE_2D, shadow.target.depth)
			gl.Uniform1i(prg.uniform("uShadowMap"), 7)
			lvp := shadow.viewProj
			gl.UniformMatrix4fv(prg.uniform("uLightViewProj"), 1, false, &lvp[0])
		}
		for name, v := range mat.Values {
			gl.Uniform4f(prg.uniform(name), v[0], v[1], v[2], v[3])
		}
		for name, slot := range mat.Textures {
			id, err := b.texture(slot.Texture)
			if err != nil {
				continue
			}
			gl.ActiveTexture(gl.TEXTURE0 + uint32(slot.Stage))
			gl.BindTexture(gl.TEXTURE_2D, id)
			gl.Uniform1i(prg.uniform(name), int32(slot.Stage))
		}
		applyState(mat)
		if err := b.drawList(prg, d); err != nil {
			return err
		}
	}
	gl.Disable(gl.BLEND)
	return nil
}

type shadowBinding struct {
	target   *target
	viewProj mgl32.Mat4
}

// keyLight picks the light used for shading: the highest priority light,
// preferring shadowed ones.
func (b *Backend) keyLight(pass stage.Pass) (*stage.LightData, *shadowBinding) {
	var best *stage.LightData
	for i := range pass.Lights {
		l := &pass.Lights[i]
		if best == nil || l.Light.Priority > best.Light.Priority || (l.HasShadow && !best.HasShadow) {
			best = l
		}
	}
	if best == nil || !best.HasShadow {
		return best, nil
	}
	t, ok := b.shadows[best.Shadow]
	if !ok {
		return best, nil
	}
	return best, &shadowBinding{target: t, viewProj: t.viewProj}
}

func (b *Backend) bindLight(prg *program, l *stage.LightData) {
	if l == nil {
		gl.Uniform4f(prg.uniform("uLightColor"), 0, 0, 0, 0)
		return
	}
	dir := l.World.Col(2).Vec3().Mul(-1)
	c := l.Light.Diffuse.Scale(l.Light.DiffuseIntensity)
	gl.Uniform4f(prg.uniform("uLightDir"), dir[0], dir[1], dir[2], l.Light.ShadowBias)
	gl.Uniform4f(prg.uniform("uLightColor"), c.R, c.G, c.B, c.A)
}

func applyState(mat *stage.Material) {
	switch mat.Blend {
	case stage.BlendOpaque:
		gl.Disable(gl.BLEND)
	case stage.BlendAlpha:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	case stage.BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
	}
	switch mat.Culling {
	case stage.CullDisabled:
		gl.Disable(gl.CULL_FACE)
	case stage.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}
}

func (b *Backend) drawList(prg *program, d stage.Draw) error {
	m, err := b.mesh(d.Model)
	if err != nil {
		return err
	}
	world := d.World
	gl.UniformMatrix4fv(prg.uniform("uModel"), 1, false, &world[0])
	gl.BindVertexArray(m.vao)
	gl.DrawElements(gl.TRIANGLES, int32(d.List.IndexCount), gl.UNSIGNED_INT, gl.PtrOffset(d.List.IndexOffset*4))
	gl.BindVertexArray(0)
	return nil
}

func (b *Backend) mesh(ref stage.ModelRef) (*mesh, error) {
	if m, ok := b.meshes[ref]; ok {
		return m, nil
	}
	model, err := b.res.Models.Get(ref)
	if err != nil {
		return nil, err
	}
	m := &mesh{}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(model.Vertices)*4, gl.Ptr(model.Vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(model.Indices)*4, gl.Ptr(model.Indices), gl.STATIC_DRAW)

	stride := int32(stage.VertexStride * 4)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.Ptr(nil))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, gl.PtrOffset(6*4))
	gl.EnableVertexAttribArray(2)
	gl.BindVertexArray(0)

	b.meshes[ref] = m
	return m, nil
}

func (b *Backend) texture(ref stage.TextureRef) (uint32, error) {
	if id, ok := b.textures[ref]; ok {
		return id, nil
	}
	tex, err := b.res.Textures.Get(ref)
	if err != nil {
		return 0, err
	}
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	var pixels unsafe.Pointer
	if len(tex.Pixels) > 0 {
		pixels = gl.Ptr(tex.Pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(tex.Width), int32(tex.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, pixels)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	b.textures[ref] = id
	return id, nil
}

// programFor returns the compiled variant of the material program.
func (b *Backend) programFor(mat *stage.Material, shadowed bool) (*program, error) {
	ref := mat.Program
	if !ref.IsValid() {
		ref = b.DefaultProgram
	}
	desc, err := b.res.Programs.Get(ref)
	if err != nil {
		return nil, err
	}
	defines := desc.Defines(mat.Variant())
	if shadowed {
		defines = append(defines, "SHADOW_MAP")
	}
	key := desc.Name + "|" + strings.Join(defines, "|")
	if p, ok := b.programs[key]; ok {
		return p, nil
	}
	p, err := compile(withDefines(desc.Vertex, defines), withDefines(desc.Fragment, defines))
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", desc.VariantName(mat.Variant()), err)
	}
	b.programs[key] = p
	return p, nil
}

func compile(vertexSrc, fragmentSrc string) (*program, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, vertexSrc)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(gl.FRAGMENT_SHADER, fragmentSrc)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	gl.LinkProgram(id)
	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("link failed: %s", strings.TrimRight(log, "\x00"))
	}
	return &program{id: id, uniforms: make(map[string]int32)}, nil
}

func compileShader(kind uint32, src string) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

// Release deletes every GL object owned by the backend.
func (b *Backend) Release() error {
	for _, m := range b.meshes {
		gl.DeleteVertexArrays(1, &m.vao)
		gl.DeleteBuffers(1, &m.vbo)
		gl.DeleteBuffers(1, &m.ebo)
	}
	for _, id := range b.textures {
		gl.DeleteTextures(1, &id)
	}
	for _, p := range b.programs {
		gl.DeleteProgram(p.id)
	}
	gl.DeleteProgram(b.depth.id)
	for _, t := range b.targets {
		releaseTarget(t)
	}
	for _, t := range b.shadows {
		releaseTarget(t)
	}
	clear(b.meshes)
	clear(b.textures)
	clear(b.programs)
	clear(b.targets)
	clear(b.shadows)
	return nil
}

func releaseTarget(t *target) {
	gl.DeleteFramebuffers(1, &t.fbo)
	if t.color != 0 {
		gl.DeleteTextures(1, &t.color)
	}
	gl.DeleteTextures(1, &t.depth)
}
