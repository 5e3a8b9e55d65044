/*
Package redisstore provides a slot.Store backed by a redis DB, for
checkpointing the leaves of a forest grown by workers sharing a redis
instance.
*/
package redisstore

import (
	"context"
	"fmt"

	"github.com/jmaravall/fertile/slot"
	"gopkg.in/redis.v5"
)

/*
SlotEncodeDecoder is an interface for objects
that allow encoding slots into slices of
bytes and decoding them back to slots.
*/
type SlotEncodeDecoder interface {

	//Encode receives a *slot.Slot
	//and returns a slice of bytes with the slot
	//encoded or an error if the encoding could not
	//be performed for some reason.
	Encode(*slot.Slot) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a *slot.Slot decoded from the
	//slice of bytes or an error if the decoding
	//could not be performed for some reason.
	Decode([]byte) (*slot.Slot, error)
}

type redisStore struct {
	rc      *redis.Client
	prefix  string
	sencdec SlotEncodeDecoder
}

//New builds a slot.Store backed by a redis DB
func New(rc *redis.Client, prefix string, sencdec SlotEncodeDecoder) slot.Store {
	return &redisStore{rc, prefix, sencdec}
}

func (rs *redisStore) Create(ctx context.Context, s *slot.Slot) error {
	var ok bool
	for !ok {
		s.ID = randString(20)
		data, err := rs.sencdec.Encode(s)
		if err != nil {
			return fmt.Errorf("creating slot: encoding slot: %v", err)
		}
		ok, err = rs.rc.SetNX(rs.keyFor(s.ID), data, 0).Result()
		if err != nil {
			return fmt.Errorf("creating slot in redis: %v", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (rs *redisStore) Get(ctx context.Context, id string) (*slot.Slot, error) {
	data, err := rs.rc.Get(rs.keyFor(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving slot %q: %v", id, err)
	}
	s, err := rs.sencdec.Decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("retrieving slot %q: decoding %q: %v", id, data, err)
	}
	return s, nil
}

func (rs *redisStore) Store(ctx context.Context, s *slot.Slot) error {
	redisID := rs.keyFor(s.ID)
	data, err := rs.sencdec.Encode(s)
	if err != nil {
		return fmt.Errorf("storing slot %q: encoding slot: %v", redisID, err)
	}
	_, err = rs.rc.Set(redisID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("storing slot %q in redis: %v", redisID, err)
	}
	return nil
}

func (rs *redisStore) Delete(ctx context.Context, s *slot.Slot) error {
	redisID := rs.keyFor(s.ID)
	_, err := rs.rc.Del(redisID).Result()
	if err != nil {
		return fmt.Errorf("deleting slot %q from redis: %v", redisID, err)
	}
	return nil
}

func (rs *redisStore) Close(ctx context.Context) error {
	return nil
}

func (rs *redisStore) keyFor(id string) string {
	return fmt.Sprintf("%s:%s", rs.prefix, id)
}
