package bolt

import (
	"github.com/brk3/habitlog/internal/storage"
	"go.etcd.io/bbolt"
)

const rootBucket = "users"
const documentsBucket = "documents"
const defaultUserID = "default"

// Store keeps whole documents in bbolt under users/<owner>/documents/<key>.
type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) documents(tx *bbolt.Tx, userID string) (*bbolt.Bucket, error) {
	usersBucket := tx.Bucket([]byte(rootBucket))
	userBucket, err := usersBucket.CreateBucketIfNotExists([]byte(ownerOrDefault(userID)))
	if err != nil {
		return nil, err
	}
	return userBucket.CreateBucketIfNotExists([]byte(documentsBucket))
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(userID, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		userBucket := tx.Bucket([]byte(rootBucket)).Bucket([]byte(ownerOrDefault(userID)))
		if userBucket == nil {
			return nil
		}
		docs := userBucket.Bucket([]byte(documentsBucket))
		if docs == nil {
			return nil
		}
		if v := docs.Get([]byte(key)); v != nil {
			// v is only valid for the life of the transaction
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

// Put replaces the document stored under key.
func (s *Store) Put(userID, key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := s.documents(tx, userID)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	})
}

func ownerOrDefault(userID string) string {
	if userID == "" {
		return defaultUserID
	}
	return userID
}

var _ storage.Documents = (*Store)(nil)
