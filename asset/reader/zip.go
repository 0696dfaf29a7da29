package reader

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Vargol/PhotonPump-sub000/asset"
	"github.com/Vargol/PhotonPump-sub000/log"
	"github.com/pkg/errors"
)

// The archive entry used as the model root when present.
const rootEntry = "scene.obj"

// Reads obj models packaged in a zip archive. "call" statements resolve
// against the other archive entries.
type zipReader struct {
	logger log.Logger
}

func newZipReader() *zipReader {
	return &zipReader{
		logger: log.New("reader"),
	}
}

func (p *zipReader) Read(res *asset.Resource) (*Model, error) {
	p.logger.Noticef("reading model archive %q", res.Path())
	start := time.Now()

	// zip.NewReader needs an io.ReaderAt so the archive is buffered in
	// memory.
	data, err := io.ReadAll(res)
	if err != nil {
		return nil, errors.Wrapf(err, "reader: %s", res.Path())
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "reader: %s", res.Path())
	}

	entries := make(map[string]*zip.File, len(zr.File))
	var objEntries []string
	for _, f := range zr.File {
		name := path.Clean(f.Name)
		entries[name] = f
		if strings.HasSuffix(strings.ToLower(name), ".obj") {
			objEntries = append(objEntries, name)
		}
	}

	root := rootEntry
	if _, exists := entries[root]; !exists {
		if len(objEntries) == 0 {
			return nil, errors.Errorf("reader: archive %s contains no obj files", res.Path())
		}
		sort.Strings(objEntries)
		root = objEntries[0]
		p.logger.Infof("archive has no %s; using %s", rootEntry, root)
	}

	open := func(pathToResource string, relTo *asset.Resource) (*asset.Resource, error) {
		loc, err := asset.ResolvePath(pathToResource, relTo)
		if err != nil {
			return nil, err
		}
		name := path.Clean(strings.TrimPrefix(loc.Path, "/"))
		f, exists := entries[name]
		if !exists {
			return nil, errors.Errorf("reader: archive entry %q not found", name)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "reader: archive entry %q", name)
		}
		entryData, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "reader: archive entry %q", name)
		}
		return asset.NewResourceFromStream(name, bytes.NewReader(entryData)), nil
	}

	rootRes, err := open(root, nil)
	if err != nil {
		return nil, err
	}
	defer rootRes.Close()

	model, err := newWavefrontReader(open).Read(rootRes)
	if err != nil {
		return nil, err
	}
	p.logger.Noticef("loaded model archive in %d ms", time.Since(start).Nanoseconds()/1e6)
	return model, nil
}
