// Package container models hierarchical recording containers as a tree of
// groups and datasets, with JSON document and bbolt file backends.
package container

import (
	"fmt"
	"slices"
	"strings"
)

// Group is an interior node of the container tree.
type Group struct {
	Name     string
	groups   map[string]*Group
	datasets map[string]*Dataset
}

// NewGroup returns an empty group.
func NewGroup(name string) *Group {
	return &Group{Name: name, groups: map[string]*Group{}, datasets: map[string]*Dataset{}}
}

// Group returns the child group called name.
func (g *Group) Group(name string) (*Group, bool) {
	child, ok := g.groups[name]
	return child, ok
}

// Dataset returns the child dataset called name.
func (g *Group) Dataset(name string) (*Dataset, bool) {
	ds, ok := g.datasets[name]
	return ds, ok
}

// Ensure returns the child group called name, creating it when missing.
func (g *Group) Ensure(name string) *Group {
	if child, ok := g.groups[name]; ok {
		return child
	}
	child := NewGroup(name)
	g.groups[name] = child
	return child
}

// EnsurePath creates every group along a slash-separated path.
func (g *Group) EnsurePath(path string) *Group {
	cur := g
	for _, part := range splitPath(path) {
		cur = cur.Ensure(part)
	}
	return cur
}

// Set stores ds under name, replacing any existing dataset.
func (g *Group) Set(name string, ds *Dataset) {
	g.datasets[name] = ds
}

// SetPath stores ds at a slash-separated path, creating parent groups.
func (g *Group) SetPath(path string, ds *Dataset) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return
	}
	parent := g
	for _, part := range parts[:len(parts)-1] {
		parent = parent.Ensure(part)
	}
	parent.Set(parts[len(parts)-1], ds)
}

// GroupAt resolves a slash-separated group path.
func (g *Group) GroupAt(path string) (*Group, bool) {
	cur := g
	for _, part := range splitPath(path) {
		next, ok := cur.groups[part]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// DatasetAt resolves a slash-separated dataset path.
func (g *Group) DatasetAt(path string) (*Dataset, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}
	parent, ok := g.GroupAt(strings.Join(parts[:len(parts)-1], "/"))
	if !ok {
		return nil, false
	}
	return parent.Dataset(parts[len(parts)-1])
}

// Groups returns child group names in sorted order.
func (g *Group) Groups() []string {
	names := make([]string, 0, len(g.groups))
	for name := range g.groups {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Datasets returns child dataset names in sorted order.
func (g *Group) Datasets() []string {
	names := make([]string, 0, len(g.datasets))
	for name := range g.datasets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Walk visits every dataset below g in sorted path order.
func (g *Group) Walk(fn func(path string, ds *Dataset) error) error {
	return g.walk("", fn)
}

func (g *Group) walk(prefix string, fn func(string, *Dataset) error) error {
	for _, name := range g.Datasets() {
		if err := fn(prefix+name, g.datasets[name]); err != nil {
			return err
		}
	}
	for _, name := range g.Groups() {
		if err := g.groups[name].walk(prefix+name+"/", fn); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every dataset in the tree.
func (g *Group) Validate() error {
	return g.Walk(func(path string, ds *Dataset) error {
		if ds == nil {
			return fmt.Errorf("dataset %s is nil", path)
		}
		if err := ds.Validate(); err != nil {
			return fmt.Errorf("dataset %s: %w", path, err)
		}
		return nil
	})
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
