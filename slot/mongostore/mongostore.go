/*
Package mongostore provides a slot.Store that uses a MongoDB database
as backend.
*/
package mongostore

import (
	"context"
	"fmt"

	"github.com/jmaravall/fertile/slot"
	mgo "gopkg.in/mgo.v2"
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

const slotsCollectionName = "slots"

type slotDoc struct {
	ID   string `bson:"_id"`
	Data []byte `bson:"data"`
}

type mongoStore struct {
	session *mgo.Session
	sencdec SlotEncodeDecoder
	nextID  uint64
}

/*
Open takes a MongoDB database session and a SlotEncodeDecoder and returns
a slot.Store that keeps slots on the slots collection of the default
database for that session, or an error if the collection cannot be
prepared.
*/
func Open(ctx context.Context, session *mgo.Session, sencdec SlotEncodeDecoder) (slot.Store, error) {
	ms := &mongoStore{session: session, sencdec: sencdec}
	err := ms.slotsCollection().EnsureIndex(mgo.Index{Key: []string{"_id"}, Unique: true})
	if err != nil {
		return nil, fmt.Errorf("opening mongo slot store: %v", err)
	}
	return ms, nil
}

func (ms *mongoStore) Create(ctx context.Context, s *slot.Slot) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ms.nextID++
		s.ID = fmt.Sprintf("%d", ms.nextID)
		data, err := ms.sencdec.Encode(s)
		if err != nil {
			return fmt.Errorf("creating slot: encoding slot: %v", err)
		}
		err = ms.slotsCollection().Insert(&slotDoc{ID: s.ID, Data: data})
		if err == nil {
			return nil
		}
		if !mgo.IsDup(err) {
			return fmt.Errorf("creating slot in mongo: %v", err)
		}
	}
}

func (ms *mongoStore) Get(ctx context.Context, id string) (*slot.Slot, error) {
	doc := &slotDoc{}
	err := ms.slotsCollection().FindId(id).One(doc)
	if err == mgo.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving slot %q: %v", id, err)
	}
	s, err := ms.sencdec.Decode(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("retrieving slot %q: decoding: %v", id, err)
	}
	return s, nil
}

func (ms *mongoStore) Store(ctx context.Context, s *slot.Slot) error {
	data, err := ms.sencdec.Encode(s)
	if err != nil {
		return fmt.Errorf("storing slot %q: encoding slot: %v", s.ID, err)
	}
	_, err = ms.slotsCollection().UpsertId(s.ID, &slotDoc{ID: s.ID, Data: data})
	if err != nil {
		return fmt.Errorf("storing slot %q in mongo: %v", s.ID, err)
	}
	return nil
}

func (ms *mongoStore) Delete(ctx context.Context, s *slot.Slot) error {
	err := ms.slotsCollection().RemoveId(s.ID)
	if err != nil && err != mgo.ErrNotFound {
		return fmt.Errorf("deleting slot %q from mongo: %v", s.ID, err)
	}
	return nil
}

func (ms *mongoStore) Close(ctx context.Context) error {
	return nil
}

func (ms *mongoStore) slotsCollection() *mgo.Collection {
	return ms.session.DB("").C(slotsCollectionName)
}
