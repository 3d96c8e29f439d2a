package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoadSceneResolvesShadersAndTextures covers §4.4's requirement
// that shaders and textures, like the camera and materials, are fully
// known before CONFIGURING — LoadScene must resolve shader{...} and
// texture{...} eagerly, the same way it resolves material{...}.
func TestLoadSceneResolvesShadersAndTextures(t *testing.T) {
	dir := t.TempDir()

	shaderPath := filepath.Join(dir, "diffuse.glsl")
	require.NoError(t, os.WriteFile(shaderPath, []byte("void main() {}"), 0o644))

	texturePath := filepath.Join(dir, "brick.raw")
	require.NoError(t, os.WriteFile(texturePath, []byte{1, 2, 3, 4}, 0o644))

	scenePath := filepath.Join(dir, "scene.lua")
	script := `
shader{name = "diffuse", file = "` + shaderPath + `"}
texture{name = "brick", file = "` + texturePath + `", width = 2, height = 1}
material{name = "wall", kd = {0.5, 0.5, 0.5}}
`
	require.NoError(t, os.WriteFile(scenePath, []byte(script), 0o644))

	decl, err := LoadScene(scenePath)
	require.NoError(t, err)

	require.Len(t, decl.Shaders, 1)
	require.Equal(t, "diffuse", decl.Shaders[0].Name)
	require.Equal(t, []byte("void main() {}"), decl.Shaders[0].Data)

	require.Len(t, decl.Textures, 1)
	require.Equal(t, "brick", decl.Textures[0].Name)
	require.Equal(t, uint32(2), decl.Textures[0].Width)
	require.Equal(t, uint32(1), decl.Textures[0].Height)
	require.Equal(t, []byte{1, 2, 3, 4}, decl.Textures[0].Pixels)

	require.Len(t, decl.Materials, 1)
}

// TestLoadSceneMissingShaderFileErrors covers the failure path: a
// shader{} referencing a file that doesn't exist fails the whole scene
// load rather than silently producing an empty shader.
func TestLoadSceneMissingShaderFileErrors(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "scene.lua")
	require.NoError(t, os.WriteFile(scenePath, []byte(`shader{name = "x", file = "/nonexistent/path.glsl"}`), 0o644))

	_, err := LoadScene(scenePath)
	require.Error(t, err)
}
