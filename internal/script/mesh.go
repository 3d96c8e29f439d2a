package script

import (
	"fmt"

	"github.com/mwindels/gwob"

	"github.com/ogre/flexrender/internal/protocol"
	"github.com/ogre/flexrender/pkg/geom"
)

// LoadMesh parses decl's OBJ file with gwob and returns a MeshPayload
// with its centroid pre-computed and MaterialID left at zero — the
// caller resolves decl.Material against the library's material index,
// since this package has no access to the library.
func LoadMesh(decl MeshDecl) (protocol.MeshPayload, error) {
	obj, err := gwob.NewObjFromFile(decl.ObjFile, &gwob.ObjParserOptions{})
	if err != nil {
		return protocol.MeshPayload{}, fmt.Errorf("parse mesh %s: %w", decl.ObjFile, err)
	}

	stride := obj.StrideSize / 4 // floats per vertex, per gwob's interleaved Coord layout
	if stride == 0 {
		stride = 3
	}
	nVerts := len(obj.Coord) / stride

	vertices := make([]geom.Vector, nVerts)
	var sum geom.Vector
	for i := 0; i < nVerts; i++ {
		base := i * stride
		v := geom.Vector{
			X: float64(obj.Coord[base]),
			Y: float64(obj.Coord[base+1]),
			Z: float64(obj.Coord[base+2]),
		}
		vertices[i] = v
		sum = sum.Add(v)
	}

	faces := make([]protocol.Face, 0, len(obj.Indices)/3)
	for i := 0; i+2 < len(obj.Indices); i += 3 {
		faces = append(faces, protocol.Face{
			Verts: [3]uint32{
				uint32(obj.Indices[i]),
				uint32(obj.Indices[i+1]),
				uint32(obj.Indices[i+2]),
			},
		})
	}

	centroid := geom.Vector{}
	if nVerts > 0 {
		centroid = sum.Scale(1.0 / float64(nVerts))
	}

	return protocol.MeshPayload{
		Vertices: vertices,
		Faces:    faces,
		Centroid: centroid,
	}, nil
}
