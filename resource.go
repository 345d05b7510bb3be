package hdf5

import (
	"context"
	"fmt"

	"github.com/SlideRuleEarth/h5coro-go/herrors"
	"github.com/SlideRuleEarth/h5coro-go/internal/core"
	"github.com/SlideRuleEarth/h5coro-go/internal/driver"
	"github.com/SlideRuleEarth/h5coro-go/internal/orchestrator"
	"github.com/SlideRuleEarth/h5coro-go/internal/promise"
	"github.com/SlideRuleEarth/h5coro-go/internal/rangecache"
)

// ReadOptions controls a single dataset request dispatched through
// Resource.ReadDatasets, mirroring h5dataset.py's metaOnly/enableAttributes
// flags.
type ReadOptions struct {
	// MetaOnly short-circuits the compact/contiguous/chunked read
	// entirely and returns only the parsed Metadata record.
	MetaOnly bool

	// EnableAttributes also harvests the dataset's attributes (Link Info /
	// Attribute Info fractal-heap traversal). Left false for bulk reads
	// that never consult them, since the harvest is wasted work otherwise.
	EnableAttributes bool
}

// DatasetRequest names one dataset, by "/"-separated path relative to the
// resource's root group, and the options to read it with.
type DatasetRequest struct {
	Path    string
	Options ReadOptions
}

// DatasetResult is what Resource.ReadDatasets stores into the returned
// Promise for each requested path.
type DatasetResult struct {
	Path       string
	Data       interface{}
	Metadata   *core.DatasetInfo
	Attributes []*core.Attribute
}

// Resource pairs an open File with the orchestrator mode used to dispatch
// ReadDatasets requests: ThreadMode shares the File's single driver (and
// its RangeCache) across every worker; ProcessMode gives each worker its
// own driver.Copy() so workers never contend with one another.
type Resource struct {
	*File
	mode orchestrator.Mode
}

// NewResource wraps an already-open File for orchestrated multi-dataset
// reads.
func NewResource(f *File, mode orchestrator.Mode) *Resource {
	return &Resource{File: f, mode: mode}
}

// List walks one level of the group at path and returns its children's
// names, without reading any dataset payload — the read-only group
// listing h5coro.py exposes as list(group).
func (r *Resource) List(group string) ([]string, error) {
	obj, err := r.FindByPath(group)
	if err != nil {
		return nil, herrors.FormatError("list group", err)
	}

	g, ok := obj.(*Group)
	if !ok {
		return nil, herrors.FormatError("list group", fmt.Errorf("%q is not a group", group))
	}

	children := g.Children()
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name()
	}
	return names, nil
}

// ReadDatasets dispatches one worker per request through an Orchestrator
// and returns a Promise keyed by request path. If block is true, the call
// waits for every worker to finish before returning; otherwise workers
// keep running in the background and callers observe completion through
// the returned Promise.
func (r *Resource) ReadDatasets(ctx context.Context, requests []DatasetRequest, block bool) *promise.Promise {
	reqs := make([]orchestrator.Request, len(requests))
	for i, dr := range requests {
		dr := dr
		reqs[i] = orchestrator.Request{
			Key: dr.Path,
			Read: func(ctx context.Context, d driver.Driver) (interface{}, error) {
				return r.readOne(ctx, d, dr)
			},
		}
	}

	orch := orchestrator.New(r.drv, r.mode)
	return orch.Dispatch(ctx, reqs, block)
}

// readOne resolves and reads a single requested dataset through d, the
// driver.Driver the orchestrator assigned this worker (the Resource's
// shared driver in ThreadMode, an independent driver.Copy() in
// ProcessMode). It builds a lightweight File view over d that shares the
// already-loaded group tree and path/metadata cache, rather than
// re-opening the resource per worker.
func (r *Resource) readOne(ctx context.Context, d driver.Driver, dr DatasetRequest) (*DatasetResult, error) {
	view := &File{
		osFile: rangecache.New(ctx, d),
		drv:    d,
		sb:     r.sb,
		root:   r.root,
		cache:  r.cache,
	}

	obj, err := view.FindByPath(dr.Path)
	if err != nil {
		return nil, herrors.FormatError("read dataset", err)
	}
	ds, ok := obj.(*Dataset)
	if !ok {
		return nil, herrors.FormatError("read dataset", fmt.Errorf("%q is not a dataset", dr.Path))
	}
	dsView := &Dataset{file: view, name: ds.name, address: ds.address}

	result := &DatasetResult{Path: dr.Path}

	info, err := view.datasetMetadata(dr.Path, dsView)
	if err != nil {
		return nil, err
	}
	result.Metadata = info

	if dr.Options.EnableAttributes {
		attrs, err := dsView.Attributes()
		if err != nil {
			return nil, herrors.FormatError("read attributes", err)
		}
		result.Attributes = attrs
	}

	if dr.Options.MetaOnly {
		return result, nil
	}

	data, err := dsView.Read()
	if err != nil {
		return nil, herrors.FormatError("read dataset payload", err)
	}
	result.Data = data
	return result, nil
}
