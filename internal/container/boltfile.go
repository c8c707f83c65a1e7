package container

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"

	"nwbconv/internal/fileutil"
)

const boltTimeout = 5 * time.Second

// ReadBolt loads a bbolt container. Buckets are groups and keys hold
// JSON-encoded datasets. Top-level keys outside any bucket do not exist in
// bbolt, so root datasets are not representable.
func ReadBolt(path string) (*Group, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: boltTimeout, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open bolt container: %w", err)
	}
	defer db.Close()

	root := NewGroup("")
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			return readBucket(root.Ensure(string(name)), b, string(name))
		})
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

func readBucket(g *Group, b *bbolt.Bucket, path string) error {
	return b.ForEach(func(k, v []byte) error {
		name := string(k)
		if v == nil {
			child := b.Bucket(k)
			if child == nil {
				return fmt.Errorf("bucket %s/%s vanished during read", path, name)
			}
			return readBucket(g.Ensure(name), child, path+"/"+name)
		}
		ds := &Dataset{}
		if err := json.Unmarshal(v, ds); err != nil {
			return fmt.Errorf("dataset %s/%s: %w", path, name, err)
		}
		g.Set(name, ds)
		return nil
	})
}

// WriteBolt writes g into a new bbolt file at path, staged beside it and
// published on success.
func WriteBolt(path string, g *Group, overwrite bool) (err error) {
	if len(g.datasets) > 0 {
		return fmt.Errorf("bolt containers cannot hold root datasets (%v)", g.Datasets())
	}
	if err := g.Validate(); err != nil {
		return err
	}
	tmp := fileutil.TempPath(path)
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	db, err := bbolt.Open(tmp, 0o600, &bbolt.Options{Timeout: boltTimeout})
	if err != nil {
		return fmt.Errorf("create bolt container: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range g.Groups() {
			b, err := tx.CreateBucketIfNotExists([]byte(name))
			if err != nil {
				return err
			}
			if err := writeBucket(b, g.groups[name]); err != nil {
				return err
			}
		}
		return nil
	})
	if closeErr := db.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write bolt container: %w", err)
	}
	return fileutil.Publish(tmp, path, overwrite)
}

func writeBucket(b *bbolt.Bucket, g *Group) error {
	for _, name := range g.Datasets() {
		data, err := json.Marshal(g.datasets[name])
		if err != nil {
			return fmt.Errorf("encode dataset %s: %w", name, err)
		}
		if err := b.Put([]byte(name), data); err != nil {
			return err
		}
	}
	for _, name := range g.Groups() {
		child, err := b.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		if err := writeBucket(child, g.groups[name]); err != nil {
			return err
		}
	}
	return nil
}
