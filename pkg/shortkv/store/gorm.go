package store

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// defaultPageSize bounds index query pages when the caller does not.
const defaultPageSize = 100

// kvRecord is one bucket/key value.
type kvRecord struct {
	Bucket  string `gorm:"primaryKey;size:64"`
	Key     string `gorm:"primaryKey;size:255"`
	Value   []byte
	Version uint64
}

// kvIndexEntry maps an index value back to the record that carries it.
// Entries for a record are replaced wholesale on every Put.
type kvIndexEntry struct {
	ID         uint   `gorm:"primarykey"`
	Bucket     string `gorm:"size:64;index:idx_kv_lookup;index:idx_kv_record"`
	IndexName  string `gorm:"size:64;index:idx_kv_lookup"`
	IndexValue string `gorm:"size:255;index:idx_kv_lookup"`
	RecordKey  string `gorm:"size:255;index:idx_kv_record"`
}

// GormStore implements Store on a relational database through gorm.
// SQLite serves as the embedded default and test backend; postgres is the
// shared-deployment option.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) a sqlite-backed store at path.
// Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*GormStore, error) {
	return openGorm(sqlite.Open(path))
}

// OpenPostgres opens (and migrates) a postgres-backed store.
func OpenPostgres(dsn string) (*GormStore, error) {
	return openGorm(postgres.Open(dsn))
}

func openGorm(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&kvRecord{}, &kvIndexEntry{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, bucket, key string) (*Object, error) {
	var rec kvRecord
	err := s.db.WithContext(ctx).
		Where("bucket = ? AND key = ?", bucket, key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var entries []kvIndexEntry
	err = s.db.WithContext(ctx).
		Where("bucket = ? AND record_key = ?", bucket, key).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	obj := &Object{
		Value:   rec.Value,
		Version: strconv.FormatUint(rec.Version, 10),
	}
	for _, e := range entries {
		obj.Indexes = append(obj.Indexes, IndexEntry{Name: e.IndexName, Value: e.IndexValue})
	}
	return obj, nil
}

func (s *GormStore) Put(ctx context.Context, bucket, key string, obj *Object) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing kvRecord
		version := uint64(1)
		err := tx.Where("bucket = ? AND key = ?", bucket, key).First(&existing).Error
		switch {
		case err == nil:
			version = existing.Version + 1
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		rec := kvRecord{Bucket: bucket, Key: key, Value: obj.Value, Version: version}
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}

		// Replace the record's index entries as a set
		if err := tx.Where("bucket = ? AND record_key = ?", bucket, key).
			Delete(&kvIndexEntry{}).Error; err != nil {
			return err
		}
		for _, e := range obj.Indexes {
			entry := kvIndexEntry{
				Bucket:     bucket,
				IndexName:  e.Name,
				IndexValue: e.Value,
				RecordKey:  key,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) Delete(ctx context.Context, bucket, key string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bucket = ? AND record_key = ?", bucket, key).
			Delete(&kvIndexEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("bucket = ? AND key = ?", bucket, key).
			Delete(&kvRecord{}).Error
	})
}

// QueryIndex pages with a keyset continuation: the token is the last record
// key of the previous page.
func (s *GormStore) QueryIndex(ctx context.Context, q Query) (*Page, error) {
	limit := q.MaxResults
	if limit <= 0 {
		limit = defaultPageSize
	}

	var keys []string
	tx := s.db.WithContext(ctx).Model(&kvIndexEntry{}).
		Where("bucket = ? AND index_name = ? AND index_value = ?", q.Bucket, q.Index, q.Value)
	if q.Continuation != "" {
		tx = tx.Where("record_key > ?", q.Continuation)
	}
	err := tx.Order("record_key").Limit(limit).Pluck("record_key", &keys).Error
	if err != nil {
		return nil, err
	}

	page := &Page{Keys: keys}
	if len(keys) < limit {
		page.Done = true
	} else {
		page.Continuation = keys[len(keys)-1]
	}
	return page, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
