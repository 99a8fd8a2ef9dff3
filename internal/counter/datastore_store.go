package counter

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"
)

var _ Store = (*DatastoreStore)(nil)

// DatastoreAPI is the part of *datastore.Client the store uses.
type DatastoreAPI interface {
	Get(ctx context.Context, key *datastore.Key, dst interface{}) error
	Put(ctx context.Context, key *datastore.Key, src interface{}) (*datastore.Key, error)
	Close() error
}

type datastoreEntity struct {
	Count       int64  `datastore:"count"`
	LastUpdated string `datastore:"last_updated,noindex"`
}

// DatastoreStore maps the table name to a kind and the record id to a name key.
type DatastoreStore struct {
	client    DatastoreAPI
	kind      string
	namespace string
}

// NewDatastoreStore honors DATASTORE_EMULATOR_HOST like any datastore client.
func NewDatastoreStore(ctx context.Context, projectID, kind, namespace string, opts ...option.ClientOption) (*DatastoreStore, error) {
	cl, err := datastore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("datastore.NewClient: %w", err)
	}
	return NewDatastoreStoreWithClient(cl, kind, namespace), nil
}

func NewDatastoreStoreWithClient(client DatastoreAPI, kind, namespace string) *DatastoreStore {
	return &DatastoreStore{client: client, kind: kind, namespace: namespace}
}

func (s *DatastoreStore) key(id string) *datastore.Key {
	key := datastore.NameKey(s.kind, id, nil)
	key.Namespace = s.namespace
	return key
}

func (s *DatastoreStore) Get(ctx context.Context, id string) (*Record, error) {
	var ent datastoreEntity
	err := s.client.Get(ctx, s.key(id), &ent)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, ErrNotFound
	}
	// properties written by someone else are not our concern
	var mismatch *datastore.ErrFieldMismatch
	if err != nil && !errors.As(err, &mismatch) {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &Record{ID: id, Count: ent.Count, LastUpdated: ent.LastUpdated}, nil
}

func (s *DatastoreStore) Put(ctx context.Context, rec *Record) error {
	ent := datastoreEntity{Count: rec.Count, LastUpdated: rec.LastUpdated}
	if _, err := s.client.Put(ctx, s.key(rec.ID), &ent); err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	return nil
}

func (s *DatastoreStore) Close() error {
	return s.client.Close()
}
