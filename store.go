package main

import (
	"bytes"
	"encoding/binary"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var (
	blockBucket  = []byte("block")
	chunkBucket  = []byte("chunk")
	cameraBucket = []byte("camera")
)

const (
	chunkKeyLen = 3 * 4
	blockKeyLen = 6 * 4
)

// Store keeps local block edits, the server version of every chunk and the
// camera between runs.
type Store struct {
	db *bolt.DB
}

func NewStore(p string, nosync bool) (*Store, error) {
	db, err := bolt.Open(p, 0666, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open store %s", p)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{blockBucket, chunkBucket, cameraBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create buckets")
	}
	db.NoSync = nosync
	return &Store{
		db: db,
	}, nil
}

// UpdateBlock records block type w at id. Zero records a removed block.
func (s *Store) UpdateBlock(id Vec3, w int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		Sugar.Debugf("put %v -> %d", id, w)
		bkt := tx.Bucket(blockBucket)
		key := encodeBlockDbKey(id.Chunkid(), id)
		return bkt.Put(key, encodeBlockDbValue(w))
	})
}

func (s *Store) UpdatePlayerState(state PlayerState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(cameraBucket)
		value, err := state.MarshalBinary()
		if err != nil {
			return err
		}
		return bkt.Put(cameraBucket, value)
	})
}

// GetPlayerState returns the saved camera, or def if none was saved.
func (s *Store) GetPlayerState(def PlayerState) PlayerState {
	state := def
	err := s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(cameraBucket).Get(cameraBucket)
		if value == nil {
			return nil
		}
		var saved PlayerState
		if err := saved.UnmarshalBinary(value); err != nil {
			return err
		}
		state = saved
		return nil
	})
	if err != nil {
		Sugar.Warnf("read player state: %v", err)
	}
	return state
}

// RangeBlocks calls f for every block edit recorded in chunk id.
func (s *Store) RangeBlocks(id Vec3, f func(bid Vec3, w int)) error {
	return s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(blockBucket)
		prefix := encodeVec3(id)
		iter := bkt.Cursor()
		for k, v := iter.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = iter.Next() {
			_, bid := decodeBlockDbKey(k)
			f(bid, decodeBlockDbValue(v))
		}
		return nil
	})
}

func (s *Store) UpdateChunkVersion(id Vec3, version string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(chunkBucket)
		return bkt.Put(encodeVec3(id), []byte(version))
	})
}

func (s *Store) GetChunkVersion(id Vec3) string {
	var version string
	s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(chunkBucket).Get(encodeVec3(id))
		if v != nil {
			version = string(v)
		}
		return nil
	})
	return version
}

func (s *Store) Close() error {
	if err := s.db.Sync(); err != nil {
		s.db.Close()
		return errors.Wrap(err, "sync store")
	}
	return s.db.Close()
}

func encodeVec3(v Vec3) []byte {
	b := make([]byte, chunkKeyLen)
	putVec3(b, v)
	return b
}

func putVec3(b []byte, v Vec3) {
	binary.LittleEndian.PutUint32(b[0:], uint32(int32(v.X)))
	binary.LittleEndian.PutUint32(b[4:], uint32(int32(v.Y)))
	binary.LittleEndian.PutUint32(b[8:], uint32(int32(v.Z)))
}

func getVec3(b []byte) Vec3 {
	return Vec3{
		int(int32(binary.LittleEndian.Uint32(b[0:]))),
		int(int32(binary.LittleEndian.Uint32(b[4:]))),
		int(int32(binary.LittleEndian.Uint32(b[8:]))),
	}
}

// A block key is the chunk id followed by the block id, so the blocks of a
// chunk are adjacent in the bucket.
func encodeBlockDbKey(cid, bid Vec3) []byte {
	b := make([]byte, blockKeyLen)
	putVec3(b, cid)
	putVec3(b[chunkKeyLen:], bid)
	return b
}

func decodeBlockDbKey(b []byte) (Vec3, Vec3) {
	if len(b) != blockKeyLen {
		Sugar.Panicf("bad db key length:%d", len(b))
	}
	cid, bid := getVec3(b), getVec3(b[chunkKeyLen:])
	if bid.Chunkid() != cid {
		Sugar.Panicf("bad db key: cid:%v, bid:%v", cid, bid)
	}
	return cid, bid
}

func encodeBlockDbValue(w int) []byte {
	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, uint32(w))
	return value
}

func decodeBlockDbValue(b []byte) int {
	if len(b) != 4 {
		Sugar.Panicf("bad db value length:%d", len(b))
	}
	return int(binary.LittleEndian.Uint32(b))
}
