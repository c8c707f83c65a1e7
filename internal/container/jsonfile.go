package container

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"nwbconv/internal/fileutil"
)

var knownKinds = map[Kind]struct{}{KindDense: {}, KindSparse: {}, KindText: {}}

// DecodeJSON reads a container document. Objects whose "kind" member names a
// dataset kind are datasets; every other object is a group.
func DecodeJSON(r io.Reader) (*Group, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode container document: %w", err)
	}
	root := NewGroup("")
	if err := decodeGroup(root, raw, ""); err != nil {
		return nil, err
	}
	return root, nil
}

func decodeGroup(g *Group, members map[string]json.RawMessage, prefix string) error {
	for name, msg := range members {
		path := prefix + name
		trimmed := bytes.TrimSpace(msg)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return fmt.Errorf("member %s is not an object", path)
		}
		var probe struct {
			Kind *Kind `json:"kind"`
		}
		_ = json.Unmarshal(trimmed, &probe)
		if probe.Kind != nil {
			if _, ok := knownKinds[*probe.Kind]; ok {
				ds := &Dataset{}
				if err := json.Unmarshal(trimmed, ds); err != nil {
					return fmt.Errorf("dataset %s: %w", path, err)
				}
				if ds.Shape == nil {
					ds.Shape = inferShape(ds)
				}
				g.Set(name, ds)
				continue
			}
		}
		var children map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &children); err != nil {
			return fmt.Errorf("group %s: %w", path, err)
		}
		if err := decodeGroup(g.Ensure(name), children, path+"/"); err != nil {
			return err
		}
	}
	return nil
}

func inferShape(ds *Dataset) []int {
	switch ds.Kind {
	case KindText:
		return []int{len(ds.Strings)}
	case KindDense:
		return []int{len(ds.Data)}
	default:
		return nil
	}
}

// EncodeJSON writes g as an indented container document.
func EncodeJSON(w io.Writer, g *Group) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSON(g))
}

func toJSON(g *Group) map[string]any {
	out := make(map[string]any, len(g.groups)+len(g.datasets))
	for name, ds := range g.datasets {
		out[name] = ds
	}
	for name, child := range g.groups {
		out[name] = toJSON(child)
	}
	return out
}

// ReadJSON loads a container document from path.
func ReadJSON(path string) (*Group, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeJSON(f)
}

// WriteJSON atomically writes g as a container document at path.
func WriteJSON(path string, g *Group, overwrite bool) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, overwrite, func(w io.Writer) error {
		return EncodeJSON(w, g)
	})
}
