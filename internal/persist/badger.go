package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"catalog-service/internal/catalog"
	"catalog-service/internal/library"
)

const catalogKey = "catalog:tracks"

// Badger keeps the ordered catalog under a single key of an embedded
// badger database.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a database in dir. An empty dir opens an
// in-memory database.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", dir, err)
	}
	return db, nil
}

func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db}
}

func (b *Badger) Load(ctx context.Context) ([]catalog.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tracks := []catalog.Track{}
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(catalogKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return library.ErrNoCatalog
		}
		if err != nil {
			return fmt.Errorf("get catalog: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &tracks)
		})
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

func (b *Badger) Save(ctx context.Context, tracks []catalog.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tracks == nil {
		tracks = []catalog.Track{}
	}
	data, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(catalogKey), data); err != nil {
			return fmt.Errorf("set catalog: %w", err)
		}
		return nil
	})
}
