package asset

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// The Opener function type resolves a resource path, optionally relative to
// another resource.
type Opener func(pathToResource string, relTo *Resource) (*Resource, error)

// A Resource wraps a local file, a remote http(s) object or an in-memory
// stream.
type Resource struct {
	io.ReadCloser
	url    *url.URL
	stream bool
}

// Path returns the location of this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Name returns the last path element of the resource.
func (r *Resource) Name() string {
	return path.Base(r.url.Path)
}

// IsRemote returns true if the resource is streamed over http(s).
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Open a resource. If relTo is specified and pathToResource does not define
// a scheme, the path is resolved against the directory of relTo.
//
// The caller must close the returned resource.
func NewResource(pathToResource string, relTo *Resource) (*Resource, error) {
	loc, err := ResolvePath(pathToResource, relTo)
	if err != nil {
		return nil, err
	}

	var reader io.ReadCloser
	switch loc.Scheme {
	case "":
		reader, err = os.Open(filepath.Clean(loc.Path))
		if err != nil {
			return nil, errors.Wrap(err, "resource")
		}
	case "http", "https":
		resp, err := http.Get(loc.String())
		if err != nil {
			return nil, errors.Wrapf(err, "resource: could not fetch '%s'", loc.String())
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, errors.Errorf("resource: could not fetch '%s': status %d", loc.String(), resp.StatusCode)
		}
		reader = resp.Body
	default:
		return nil, errors.Errorf("resource: unsupported scheme '%s'", loc.Scheme)
	}

	return &Resource{
		ReadCloser: reader,
		url:        loc,
	}, nil
}

// ResolvePath returns the location of pathToResource. Relative paths are
// resolved against the directory of relTo when it is not nil.
func ResolvePath(pathToResource string, relTo *Resource) (*url.URL, error) {
	loc, err := url.Parse(strings.Replace(pathToResource, `\`, `/`, -1))
	if err != nil {
		return nil, errors.Wrap(err, "resource")
	}
	if loc.Scheme != "" || relTo == nil || path.IsAbs(loc.Path) {
		return loc, nil
	}

	rel := loc.Path
	loc, _ = url.Parse(relTo.url.String())
	prefix := loc.Path
	if loc.Scheme == "" && !relTo.stream {
		prefix, err = filepath.Abs(relTo.url.String())
		if err != nil {
			return nil, errors.Wrapf(err, "resource: could not detect abs path for %s", relTo.url.String())
		}
	}
	loc.Path = path.Join(path.Dir(prefix), rel)
	return loc, nil
}

// Create a resource from a reader. Relative paths resolved against it keep
// the stream's directory.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	loc, err := url.Parse(name)
	if err != nil {
		loc = &url.URL{Path: name}
	}
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        loc,
		stream:     true,
	}
}
