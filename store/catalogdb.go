package store

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
)

var streamsBucket = []byte("streams")
var runtimesBucket = []byte("runtimes")

// ErrStreamNotFound is returned by CatalogDB.Stream when no entry
// exists under the requested name.
var ErrStreamNotFound = errors.New("store: stream not found in catalog")

// catalogEntry is the cbor-on-disk shape of a StreamMetadata record;
// bbolt only stores bytes, so every Put/Get round-trips through this.
type catalogEntry struct {
	Header  Header
	Meta    StreamMetadata
}

// CatalogDB is a bbolt-backed index from stream name to its most
// recently written StreamMetadata catalog record, so a reader can seek
// straight to a stream's segment list without replaying every catalog
// entry in every segment's companion metadata stream.
type CatalogDB struct {
	db *bolt.DB
}

// OpenCatalogDB opens (creating if absent) the catalog database at path.
func OpenCatalogDB(path string) (*CatalogDB, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(streamsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(runtimesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &CatalogDB{db: db}, nil
}

// Close releases the underlying database file.
func (c *CatalogDB) Close() error {
	return c.db.Close()
}

// PutStream upserts a stream's metadata entry, keyed by name.
func (c *CatalogDB) PutStream(name string, meta StreamMetadata) error {
	entry := catalogEntry{Header: meta.Header, Meta: meta}
	b, err := cbor.Marshal(entry)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(streamsBucket).Put([]byte(name), b)
	})
}

// Stream looks up a stream's most recently written metadata by name.
func (c *CatalogDB) Stream(name string) (StreamMetadata, error) {
	var out StreamMetadata
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(streamsBucket).Get([]byte(name))
		if raw == nil {
			return ErrStreamNotFound
		}
		var entry catalogEntry
		if err := cbor.Unmarshal(raw, &entry); err != nil {
			return err
		}
		out = entry.Meta
		return nil
	})
	return out, err
}

// Streams returns every stream name currently present in the catalog.
func (c *CatalogDB) Streams() ([]string, error) {
	var names []string
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(streamsBucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// PutRuntime upserts a RuntimeInfo record, keyed by its MachineName plus
// StartedTime so repeated captures on the same host don't collide.
func (c *CatalogDB) PutRuntime(ri RuntimeInfo) error {
	key := fmt.Sprintf("%s@%d", ri.MachineName, ri.StartedTime)
	b, err := cbor.Marshal(ri)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runtimesBucket).Put([]byte(key), b)
	})
}

// DeleteStream removes a stream's catalog entry, used when a segment
// set is pruned or a stream is renamed.
func (c *CatalogDB) DeleteStream(name string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(streamsBucket).Delete([]byte(name))
	})
}
