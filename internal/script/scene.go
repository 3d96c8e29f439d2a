package script

import (
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/ogre/flexrender/internal/protocol"
)

// MeshDecl is a lightweight reference to one `mesh{...}` declaration.
// Unlike materials and the camera, the geometry itself is not parsed
// during LoadScene: OBJ files can be arbitrarily large, so parsing is
// deferred to LoadMesh, called lazily by the asset-streaming producer
// (internal/engine's runProducer) one file at a time.
type MeshDecl struct {
	ObjFile  string
	Material string
}

// SceneDecl is everything a scene script declares. Camera, shaders,
// textures and materials are all needed before any worker leaves
// CONFIGURING, so they are fully resolved by LoadScene; mesh geometry
// is not.
type SceneDecl struct {
	Camera    protocol.CameraPayload
	Shaders   []protocol.ShaderPayload
	Textures  []protocol.TexturePayload
	Materials []protocol.MaterialPayload
	Meshes    []MeshDecl
}

// LoadScene evaluates path once. camera{...}, shader{...},
// texture{...} and material{...} calls populate the returned
// SceneDecl directly; mesh{...} calls only record a MeshDecl,
// deferring the actual geometry load.
func LoadScene(path string) (SceneDecl, error) {
	var decl SceneDecl

	L := lua.NewState()
	defer L.Close()

	L.SetGlobal("camera", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		decl.Camera = protocol.CameraPayload{
			Pos:     vectorOr(tbl.RawGetString("pos")),
			Forward: vectorOr(tbl.RawGetString("forward")),
			Up:      vectorOr(tbl.RawGetString("up")),
			Left:    vectorOr(tbl.RawGetString("left")),
			Fov:     numberOr(tbl.RawGetString("fov"), 60),
		}
		return 0
	}))

	L.SetGlobal("shader", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		file := stringOr(tbl.RawGetString("file"), "")
		data, err := os.ReadFile(file)
		if err != nil {
			L.RaiseError("read shader %q: %v", file, err)
			return 0
		}
		decl.Shaders = append(decl.Shaders, protocol.ShaderPayload{
			Name: stringOr(tbl.RawGetString("name"), ""),
			Data: data,
		})
		return 0
	}))

	L.SetGlobal("texture", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		file := stringOr(tbl.RawGetString("file"), "")
		pixels, err := os.ReadFile(file)
		if err != nil {
			L.RaiseError("read texture %q: %v", file, err)
			return 0
		}
		decl.Textures = append(decl.Textures, protocol.TexturePayload{
			Name:   stringOr(tbl.RawGetString("name"), ""),
			Width:  uint32(numberOr(tbl.RawGetString("width"), 0)),
			Height: uint32(numberOr(tbl.RawGetString("height"), 0)),
			Pixels: pixels,
		})
		return 0
	}))

	L.SetGlobal("material", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		decl.Materials = append(decl.Materials, protocol.MaterialPayload{
			Name:     stringOr(tbl.RawGetString("name"), ""),
			Ka:       array3Or(tbl.RawGetString("ka")),
			Kd:       array3Or(tbl.RawGetString("kd")),
			Ks:       array3Or(tbl.RawGetString("ks")),
			Ns:       numberOr(tbl.RawGetString("ns"), 0),
			Emissive: boolOr(tbl.RawGetString("emissive"), false),
		})
		return 0
	}))

	L.SetGlobal("mesh", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		decl.Meshes = append(decl.Meshes, MeshDecl{
			ObjFile:  stringOr(tbl.RawGetString("file"), ""),
			Material: stringOr(tbl.RawGetString("material"), ""),
		})
		return 0
	}))

	if err := L.DoFile(path); err != nil {
		return SceneDecl{}, fmt.Errorf("evaluate scene script %s: %w", path, err)
	}

	return decl, nil
}

func array3Or(v lua.LValue) [3]float64 {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return [3]float64{}
	}
	return [3]float64{
		numberOr(tbl.RawGetInt(1), 0),
		numberOr(tbl.RawGetInt(2), 0),
		numberOr(tbl.RawGetInt(3), 0),
	}
}
