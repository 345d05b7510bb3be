package hdf5

import (
	"fmt"
	"strings"
	"sync"

	"github.com/SlideRuleEarth/h5coro-go/herrors"
	"github.com/SlideRuleEarth/h5coro-go/internal/core"
)

// fileCache memoizes path -> Object resolution and path -> parsed dataset
// metadata, so repeated Resource.ReadDatasets/List calls against the same
// path never re-walk the group tree or re-parse an object header twice.
// Shared by pointer between a File and the per-worker views
// Resource.ReadDatasets builds for ProcessMode, so the cache is useful
// across an entire orchestrated batch, not just a single goroutine.
type fileCache struct {
	mu        sync.RWMutex
	pathCache map[string]Object
	metaCache map[string]*core.DatasetInfo
}

func newFileCache() *fileCache {
	return &fileCache{
		pathCache: make(map[string]Object),
		metaCache: make(map[string]*core.DatasetInfo),
	}
}

// FindByPath resolves a "/"-separated path, relative to the root group, to
// the Group or Dataset living there. An empty (or "/") path returns the
// root group. Results are memoized in f's path cache.
func (f *File) FindByPath(path string) (Object, error) {
	key := strings.Trim(path, "/")
	if key == "" {
		return f.root, nil
	}

	f.cache.mu.RLock()
	obj, ok := f.cache.pathCache[key]
	f.cache.mu.RUnlock()
	if ok {
		return obj, nil
	}

	obj, err := resolvePath(f.root, key)
	if err != nil {
		return nil, herrors.FormatError("find by path", err)
	}

	f.cache.mu.Lock()
	f.cache.pathCache[key] = obj
	f.cache.mu.Unlock()
	return obj, nil
}

func resolvePath(root *Group, path string) (Object, error) {
	var cur Object = root
	for _, part := range strings.Split(path, "/") {
		g, ok := cur.(*Group)
		if !ok {
			return nil, fmt.Errorf("path component %q is not a group (resolving %q)", cur.Name(), path)
		}

		var next Object
		for _, child := range g.Children() {
			if child.Name() == part {
				next = child
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("path %q not found", path)
		}
		cur = next
	}
	return cur, nil
}

// datasetMetadata returns ds's parsed Datatype/Dataspace/Layout messages,
// parsing the object header once per path and caching the result for
// later metaOnly or full reads of the same dataset.
func (f *File) datasetMetadata(path string, ds *Dataset) (*core.DatasetInfo, error) {
	f.cache.mu.RLock()
	info, ok := f.cache.metaCache[path]
	f.cache.mu.RUnlock()
	if ok {
		return info, nil
	}

	header, err := core.ReadObjectHeader(f.osFile, ds.address, f.sb)
	if err != nil {
		return nil, herrors.FormatError("read object header", err)
	}
	info, err = core.ReadDatasetInfo(header, f.sb)
	if err != nil {
		return nil, herrors.FormatError("read dataset metadata", err)
	}

	f.cache.mu.Lock()
	f.cache.metaCache[path] = info
	f.cache.mu.Unlock()
	return info, nil
}
