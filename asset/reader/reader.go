package reader

import (
	"path/filepath"
	"strings"

	"github.com/Vargol/PhotonPump-sub000/accel"
	"github.com/Vargol/PhotonPump-sub000/asset"
	"github.com/Vargol/PhotonPump-sub000/geometry"
	"github.com/Vargol/PhotonPump-sub000/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// The Reader interface is implemented by all model readers.
type Reader interface {
	// Read a model from a resource.
	Read(*asset.Resource) (*Model, error)
}

// An Instance places a mesh of the model in world space.
type Instance struct {
	// Index into Model.Meshes.
	Mesh int

	Transform mgl32.Mat4
}

// A Model is the parsed content of a model file.
type Model struct {
	Meshes    []*geometry.TriangleMesh
	Instances []Instance
}

// NumTriangles returns the number of triangles over all meshes.
func (m *Model) NumTriangles() int {
	total := 0
	for _, mesh := range m.Meshes {
		total += mesh.NumPrimitives()
	}
	return total
}

// Scene wraps every mesh in a geometry and adds the model instances to a new
// scene. If the model defines no instances, each mesh is instanced once with
// an identity transform. An empty accelType selects the accelerator
// automatically.
func (m *Model) Scene(opts accel.Options, accelType string) (*scene.Scene, error) {
	geometries := make([]*geometry.Geometry, len(m.Meshes))
	for index, mesh := range m.Meshes {
		geometries[index] = geometry.New(mesh.Name, mesh, opts)
		if accelType == "" {
			continue
		}
		if err := geometries[index].SetAcceleratorType(accelType); err != nil {
			return nil, err
		}
	}

	instances := m.Instances
	if len(instances) == 0 {
		for index := range m.Meshes {
			instances = append(instances, Instance{Mesh: index, Transform: mgl32.Ident4()})
		}
	}

	sc := scene.New(opts)
	for _, inst := range instances {
		if inst.Mesh < 0 || inst.Mesh >= len(geometries) {
			return nil, errors.Errorf("reader: instance references unknown mesh %d", inst.Mesh)
		}
		if _, err := sc.AddInstance(geometries[inst.Mesh], inst.Transform); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// ReadModel reads a model from a local or remote file. The reader is
// selected by the file extension.
func ReadModel(filename string) (*Model, error) {
	var r Reader
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".obj":
		r = newWavefrontReader(asset.NewResource)
	case ".zip":
		r = newZipReader()
	default:
		return nil, errors.Errorf("reader: unsupported file format %q", filepath.Ext(filename))
	}

	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return r.Read(res)
}
