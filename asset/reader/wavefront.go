package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Vargol/PhotonPump-sub000/asset"
	"github.com/Vargol/PhotonPump-sub000/geometry"
	"github.com/Vargol/PhotonPump-sub000/log"
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Limits the nesting of "call" statements so include cycles fail instead of
// recursing forever.
const maxIncludeDepth = 16

// Collects the faces of an "o" or "g" group. Global vertex indices are
// remapped so each mesh only stores the points it references.
type meshBuilder struct {
	name      string
	points    []types.Vec3
	remap     map[int]int32
	triangles []int32
}

func newMeshBuilder(name string) *meshBuilder {
	return &meshBuilder{
		name:  name,
		remap: make(map[int]int32),
	}
}

func (mb *meshBuilder) point(vertexList []types.Vec3, global int) int32 {
	local, exists := mb.remap[global]
	if !exists {
		local = int32(len(mb.points))
		mb.points = append(mb.points, vertexList[global])
		mb.remap[global] = local
	}
	return local
}

// An instance statement waiting for its mesh name to be resolved.
type pendingInstance struct {
	meshName  string
	transform mgl32.Mat4
	location  string
}

type wavefrontReader struct {
	logger log.Logger
	open   asset.Opener

	vertexList []types.Vec3
	meshes     []*meshBuilder
	instances  []pendingInstance

	// Keywords that were ignored; each one is reported once.
	skipped map[string]bool

	// Provides include context for errors raised while parsing called files.
	errStack []string
}

func newWavefrontReader(open asset.Opener) *wavefrontReader {
	return &wavefrontReader{
		logger:  log.New("reader"),
		open:    open,
		skipped: make(map[string]bool),
	}
}

// Read a wavefront obj model. Only geometry is extracted; materials, normals
// and texture coordinates are ignored.
func (r *wavefrontReader) Read(res *asset.Resource) (*Model, error) {
	r.logger.Noticef("parsing model from %q", res.Path())
	start := time.Now()

	if err := r.parse(res, 0); err != nil {
		return nil, err
	}

	model, err := r.model()
	if err != nil {
		return nil, err
	}

	r.logger.Noticef("parsed %d meshes (%d triangles) and %d instances in %d ms", len(model.Meshes), model.NumTriangles(), len(model.Instances), time.Since(start).Nanoseconds()/1e6)
	return model, nil
}

// Assemble the parsed meshes and resolve instance references.
func (r *wavefrontReader) model() (*Model, error) {
	model := &Model{}
	meshIndex := make(map[string]int)
	for _, mb := range r.meshes {
		if len(mb.triangles) == 0 {
			r.logger.Warningf("dropping mesh %q as it contains no faces", mb.name)
			continue
		}
		mesh, err := geometry.NewTriangleMesh(mb.name, mb.points, mb.triangles)
		if err != nil {
			return nil, errors.Wrap(err, "reader")
		}
		if _, exists := meshIndex[mb.name]; !exists {
			meshIndex[mb.name] = len(model.Meshes)
		}
		model.Meshes = append(model.Meshes, mesh)
	}

	for _, inst := range r.instances {
		index, exists := meshIndex[inst.meshName]
		if !exists {
			return nil, errors.Errorf("[%s] error: instance references unknown or empty mesh %q", inst.location, inst.meshName)
		}
		model.Instances = append(model.Instances, Instance{Mesh: index, Transform: inst.transform})
	}
	return model, nil
}

// Generate an error that also includes the include stack.
func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)
	return errors.New(strings.Trim(
		fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
		"\n",
	))
}

func (r *wavefrontReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

func (r *wavefrontReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Get the mesh receiving faces, creating a default one for files without
// groups.
func (r *wavefrontReader) currentMesh() *meshBuilder {
	if len(r.meshes) == 0 {
		r.meshes = append(r.meshes, newMeshBuilder("default"))
	}
	return r.meshes[len(r.meshes)-1]
}

func (r *wavefrontReader) parse(res *asset.Resource, depth int) error {
	lineNum := 0

	// Positive indices in a called file are relative to the vertices that
	// file defines.
	relVertexOffset := len(r.vertexList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "f":
			if err := r.parseFace(lineTokens, relVertexOffset); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "o", "g":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.meshes = append(r.meshes, newMeshBuilder(lineTokens[1]))
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "call"; expected 1 argument; got %d`, len(lineTokens)-1)
			}
			if depth+1 >= maxIncludeDepth {
				return r.emitError(res.Path(), lineNum, "include depth exceeds %d", maxIncludeDepth)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [call]", res.Path(), lineNum))
			incRes, err := r.open(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			err = r.parse(incRes, depth+1)
			incRes.Close()
			if err != nil {
				return err
			}
			r.popFrame()
		case "instance":
			meshName, transform, err := parseInstance(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.instances = append(r.instances, pendingInstance{
				meshName:  meshName,
				transform: transform,
				location:  fmt.Sprintf("%s: %d", res.Path(), lineNum),
			})
		default:
			if !r.skipped[lineTokens[0]] {
				r.skipped[lineTokens[0]] = true
				r.logger.Debugf("ignoring unsupported statement %q", lineTokens[0])
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err.Error())
	}
	return nil
}

// Parse a face definition with 3 or more vertex arguments. Each argument
// has one of the following formats:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to reference elements from the
// end of the vertex list. Polygons are split into a triangle fan around the
// first vertex.
func (r *wavefrontReader) parseFace(lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 4 {
		return errors.Errorf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, len(lineTokens)-1)
	}

	mesh := r.currentMesh()
	corners := make([]int32, len(lineTokens)-1)
	for arg := range corners {
		vTokens := strings.Split(lineTokens[arg+1], "/")
		if vTokens[0] == "" {
			return errors.Errorf("face argument %d does not include a vertex index", arg)
		}

		global, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return errors.Wrapf(err, "could not parse vertex coord for face argument %d", arg)
		}
		corners[arg] = mesh.point(r.vertexList, global)
	}

	for i := 1; i+1 < len(corners); i++ {
		mesh.triangles = append(mesh.triangles, corners[0], corners[i], corners[i+1])
	}
	return nil
}

// Parse an instance definition:
// instance mesh_name tX tY tZ yaw pitch roll sX sY sZ
// where yaw, pitch and roll are rotations in degrees around the X, Y and Z
// axes. The transform is composed as M = T * R * S.
func parseInstance(lineTokens []string) (string, mgl32.Mat4, error) {
	if len(lineTokens) != 11 {
		return "", mgl32.Mat4{}, errors.Errorf(`unsupported syntax for "instance"; expected 10 arguments: mesh_name tX tY tZ yaw pitch roll sX sY sZ; got %d`, len(lineTokens)-1)
	}

	var args [9]float32
	for index := range args {
		v, err := strconv.ParseFloat(lineTokens[index+2], 32)
		if err != nil {
			return "", mgl32.Mat4{}, errors.Wrapf(err, "instance argument %d", index+2)
		}
		args[index] = float32(v)
	}

	rotation := mgl32.HomogRotate3DZ(mgl32.DegToRad(args[5])).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(args[4]))).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(args[3])))
	transform := mgl32.Translate3D(args[0], args[1], args[2]).
		Mul4(rotation).
		Mul4(mgl32.Scale3D(args[6], args[7], args[8]))
	return lineTokens[1], transform, nil
}

// Convert a face coord index to an offset into the vertex list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var offset int
	switch {
	case index < 0:
		offset = coordListLen + int(index)
	case index == 0:
		return -1, errors.New("index 0 is not valid")
	default:
		offset = relOffset + int(index-1)
	}
	if offset < 0 || offset >= coordListLen {
		return -1, errors.Errorf("index %d out of bounds", index)
	}
	return offset, nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, errors.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
