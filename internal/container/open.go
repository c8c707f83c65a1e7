package container

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"nwbconv/internal/convert"
)

// Format names a container backend.
type Format string

const (
	FormatJSON Format = "json"
	FormatBolt Format = "bolt"
)

// ErrNotFound reports a container path that does not exist.
var ErrNotFound = errors.New("container not found")

// FormatOf picks the backend from a path extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".db", ".bolt":
		return FormatBolt, nil
	default:
		return "", convert.Errorf(convert.ErrSourceFormat, "container format",
			"unsupported container extension %q (want .json, .db or .bolt)", filepath.Ext(path))
	}
}

// Open loads the container at path, choosing the backend by extension.
func Open(path string) (*Group, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	var root *Group
	switch format {
	case FormatJSON:
		root, err = ReadJSON(path)
	case FormatBolt:
		root, err = ReadBolt(path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, convert.Wrap(convert.ErrSourceFormat, convert.Scope{}, "open container", path, ErrNotFound)
		}
		return nil, convert.Wrap(convert.ErrSourceFormat, convert.Scope{}, "open container", path, err)
	}
	root.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return root, nil
}

// Write stores root at path, choosing the backend by extension.
func Write(path string, root *Group, overwrite bool) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	switch format {
	case FormatBolt:
		err = WriteBolt(path, root, overwrite)
	default:
		err = WriteJSON(path, root, overwrite)
	}
	if err != nil {
		return convert.Wrap(convert.ErrSourceFormat, convert.Scope{}, "write container", path, err)
	}
	return nil
}
