package distributor

import (
	"encoding/binary"
	"encoding/json"

	"github.com/iov-one/splitter/errors"
	"github.com/iov-one/splitter/store"
)

var (
	journalSeqKey = []byte("_seq:settlement")
	journalPrefix = []byte("settlement:")
)

// journal is the persistent log of settlement attempts. Every append
// writes the record together with the sequence counter update as a single
// atomic batch.
type journal struct {
	db store.CacheableKVStore
}

func newJournal(db store.CacheableKVStore) *journal {
	return &journal{db: db}
}

// append assigns the next sequence number to the settlement and stores it.
func (j *journal) append(s *Settlement) error {
	cache := j.db.CacheWrap()
	defer cache.Discard()

	raw, err := cache.Get(journalSeqKey)
	if err != nil {
		return errors.Wrap(err, "sequence")
	}
	var seq uint64
	if raw != nil {
		seq = binary.BigEndian.Uint64(raw)
	}
	seq++
	s.ID = seq

	var encSeq [8]byte
	binary.BigEndian.PutUint64(encSeq[:], seq)
	if err := cache.Set(journalSeqKey, encSeq[:]); err != nil {
		return errors.Wrap(err, "sequence")
	}

	value, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal settlement")
	}
	key := append(append([]byte(nil), journalPrefix...), encSeq[:]...)
	if err := cache.Set(key, value); err != nil {
		return errors.Wrap(err, "store settlement")
	}
	return cache.Write()
}

// list returns all stored settlements, oldest first.
func (j *journal) list() ([]Settlement, error) {
	// The prefix end is the prefix with the last byte incremented.
	end := append([]byte(nil), journalPrefix...)
	end[len(end)-1]++

	var (
		settlements []Settlement
		unmarshal   error
	)
	err := j.db.Iterate(journalPrefix, end, func(key, value []byte) bool {
		var s Settlement
		if unmarshal = json.Unmarshal(value, &s); unmarshal != nil {
			return false
		}
		settlements = append(settlements, s)
		return true
	})
	if err != nil {
		return nil, err
	}
	if unmarshal != nil {
		return nil, errors.Wrap(errors.ErrDatabase, unmarshal.Error())
	}
	return settlements, nil
}
