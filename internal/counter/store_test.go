package counter

import (
	"context"
	"errors"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDynamo keeps items by the "id" attribute of one table.
type fakeDynamo struct {
	mu    sync.Mutex
	table string
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo(table string) *fakeDynamo {
	return &fakeDynamo{table: table, items: map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if *in.TableName != f.table {
		return nil, &types.ResourceNotFoundException{}
	}
	id := in.Key["id"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if *in.TableName != f.table {
		return nil, &types.ResourceNotFoundException{}
	}
	id := in.Item["id"].(*types.AttributeValueMemberS).Value
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

// fakeDatastore keeps entities by namespace/kind/name. getErr, when set, is
// returned after dst has been filled, the way the client reports partial loads.
type fakeDatastore struct {
	mu       sync.Mutex
	entities map[string]datastoreEntity
	getErr   error
	putErr   error
}

func newFakeDatastore() *fakeDatastore {
	return &fakeDatastore{entities: map[string]datastoreEntity{}}
}

func fakeKey(key *datastore.Key) string {
	return key.Namespace + "/" + key.Kind + "/" + key.Name
}

func (f *fakeDatastore) Get(_ context.Context, key *datastore.Key, dst interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ent, ok := f.entities[fakeKey(key)]
	if !ok {
		return datastore.ErrNoSuchEntity
	}
	*dst.(*datastoreEntity) = ent
	return f.getErr
}

func (f *fakeDatastore) Put(_ context.Context, key *datastore.Key, src interface{}) (*datastore.Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.entities[fakeKey(key)] = *src.(*datastoreEntity)
	return key, nil
}

func (f *fakeDatastore) Close() error {
	return nil
}

func newStores(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})

	stores := map[string]Store{
		BackendMemory:   NewLocalStore(),
		BackendRedis:    NewRedisStore(rc, DefaultTableName),
		BackendDynamoDB: NewDynamoDBStore(newFakeDynamo(DefaultTableName), DefaultTableName),
		"datastore-fake": NewDatastoreStoreWithClient(newFakeDatastore(), DefaultTableName, "counter-test"),
	}

	if os.Getenv("DATASTORE_EMULATOR_HOST") != "" {
		ds, err := NewDatastoreStore(context.Background(), "counter-test", DefaultTableName, "counter-test")
		require.NoError(t, err)
		stores[BackendDatastore] = ds
	}

	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStore_GetMissing(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "missing-"+name)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_PutThenGet(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 123456000, time.UTC)

	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Put(ctx, NewRecord(5, now)))

			got, err := s.Get(ctx, RecordID)
			require.NoError(t, err)
			assert.Equal(t, &Record{
				ID:          RecordID,
				Count:       5,
				LastUpdated: "2024-05-01T12:30:00.123456Z",
			}, got)

			// full replace, not increment
			require.NoError(t, s.Put(ctx, NewRecord(2, now.Add(time.Minute))))
			got, err = s.Get(ctx, RecordID)
			require.NoError(t, err)
			assert.EqualValues(t, 2, got.Count)
			assert.Equal(t, "2024-05-01T12:31:00.123456Z", got.LastUpdated)
		})
	}
}

func TestLocalStore_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore()

	rec := NewRecord(1, time.Now())
	require.NoError(t, s.Put(ctx, rec))
	rec.Count = 99

	got, err := s.Get(ctx, RecordID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Count)

	got.Count = 42
	again, err := s.Get(ctx, RecordID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, again.Count)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewLocalStore()
	assert.ErrorIs(t, s.Put(ctx, NewRecord(1, time.Now())), context.Canceled)
	_, err := s.Get(ctx, RecordID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisStore_MissingCountReadsZero(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.HSet("tbl:"+RecordID, "last_updated", "2024-01-01T00:00:00Z")

	s := NewRedisStore(redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}}), "tbl")
	defer s.Close()

	got, err := s.Get(context.Background(), RecordID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.Count)
	assert.Equal(t, "2024-01-01T00:00:00Z", got.LastUpdated)
}

func TestRedisStore_BadCount(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.HSet("tbl:"+RecordID, "count", "abc")

	s := NewRedisStore(redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}}), "tbl")
	defer s.Close()

	_, err := s.Get(context.Background(), RecordID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}}), "tbl")
	defer s.Close()
	mr.Close()

	_, err := s.Get(context.Background(), RecordID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Error(t, s.Put(context.Background(), NewRecord(1, time.Now())))
}

func TestDynamoDBStore_WrongTable(t *testing.T) {
	s := NewDynamoDBStore(newFakeDynamo("other"), DefaultTableName)

	_, err := s.Get(context.Background(), RecordID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table="+DefaultTableName)
	assert.Error(t, s.Put(context.Background(), NewRecord(1, time.Now())))
}

func TestDatastoreStore_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDatastore()
	s := NewDatastoreStoreWithClient(fake, "tbl", "ns")

	_, err := s.Get(ctx, RecordID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, &Record{ID: RecordID, Count: 3, LastUpdated: "2024-01-01T00:00:00Z"}))
	assert.Contains(t, fake.entities, "ns/tbl/"+RecordID)

	// extra properties on the entity are tolerated
	fake.getErr = &datastore.ErrFieldMismatch{
		StructType: reflect.TypeOf(datastoreEntity{}),
		FieldName:  "owner",
		Reason:     "no such struct field",
	}
	got, err := s.Get(ctx, RecordID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.Count)
	assert.Equal(t, "2024-01-01T00:00:00Z", got.LastUpdated)

	fake.getErr = errors.New("unavailable")
	_, err = s.Get(ctx, RecordID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "unavailable")

	fake.putErr = errors.New("quota")
	assert.ErrorContains(t, s.Put(ctx, NewRecord(4, time.Now())), "quota")
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), Settings{Backend: BackendMemory}, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	_, err = Open(context.Background(), Settings{Backend: "cassandra", NotifyTopic: "t"}, zap.NewNop().Sugar())
	assert.EqualError(t, err, "unknown backend: cassandra")
}
