package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmaravall/fertile/slot"
	slotjson "github.com/jmaravall/fertile/slot/json"
	"github.com/jmaravall/fertile/slot/mongostore"
	"github.com/jmaravall/fertile/slot/redisstore"
	"github.com/jmaravall/fertile/split"
	"gopkg.in/mgo.v2"
	"gopkg.in/redis.v5"
)

/*
openSlotStore takes a context, a store URL and the available features
and returns a slot.Store backed by the URL's backend: a redis store
for redis:// URLs, a mongoDB store for mongodb:// URLs and an
in-memory store for an empty URL.
*/
func openSlotStore(ctx context.Context, storeURL string, features []split.Feature) (slot.Store, error) {
	if storeURL == "" {
		return slot.NewMemoryStore(), nil
	}
	sencdec := slotjson.New(features)
	if strings.HasPrefix(storeURL, "redis://") {
		opts, err := redis.ParseURL(storeURL)
		if err != nil {
			return nil, fmt.Errorf("parsing store URL %s: %v", storeURL, err)
		}
		return redisstore.New(redis.NewClient(opts), "fertile", sencdec), nil
	}
	if strings.HasPrefix(storeURL, "mongodb://") {
		session, err := mgo.Dial(storeURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %v", storeURL, err)
		}
		return mongostore.Open(ctx, session, sencdec)
	}
	return nil, fmt.Errorf("unsupported slot store URL %s", storeURL)
}
