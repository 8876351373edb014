package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound key 不存在
var ErrNotFound = errors.New("localstore: key not found")

// Repository 定義本地持久化介面 (browser localStorage 的替代)
type Repository[T any] interface {
	Set(ctx context.Context, key string, value T) error
	Get(ctx context.Context, key string) (T, error)
	Del(ctx context.Context, key string) error
}

// boltRepository 實現 Repository
type boltRepository[T any] struct {
	db     *bolt.DB
	bucket []byte
}

// Open 打開 bbolt 檔案，目錄不存在則建立
func Open(path string) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	return db, nil
}

// NewBoltRepository init bolt repository (Set, Get, Del)
func NewBoltRepository[T any](db *bolt.DB, bucket string) (Repository[T], error) {
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		return nil, err
	}
	return &boltRepository[T]{db: db, bucket: []byte(bucket)}, nil
}

func (r *boltRepository[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(r.bucket).Put([]byte(key), data)
	})
}

func (r *boltRepository[T]) Get(ctx context.Context, key string) (T, error) {
	var zeroValue T

	var raw []byte
	if err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(r.bucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// bolt 的值只在交易內有效，複製一份
		raw = append([]byte(nil), v...)
		return nil
	}); err != nil {
		return zeroValue, err
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return zeroValue, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return result, nil
}

func (r *boltRepository[T]) Del(ctx context.Context, key string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(r.bucket).Delete([]byte(key))
	})
}
