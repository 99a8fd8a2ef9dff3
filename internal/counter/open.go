package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	BackendMemory    = "memory"
	BackendDynamoDB  = "dynamodb"
	BackendDatastore = "datastore"
	BackendRedis     = "redis"
)

type Settings struct {
	Backend   string
	TableName string

	// dynamodb
	DynamoDBEndpoint string

	// datastore
	ProjectID       string
	Namespace       string
	CredentialsFile string

	// redis
	RedisAddr string

	// NotifyTopic, when set, is a Pub/Sub topic in ProjectID that receives
	// every written record.
	NotifyTopic string
}

// Open builds the store selected by s.Backend, wrapped in a NotifyingStore
// when s.NotifyTopic is set.
func Open(ctx context.Context, s Settings, logger *zap.SugaredLogger) (Store, error) {
	store, err := openBackend(ctx, s)
	if err != nil || s.NotifyTopic == "" {
		return store, err
	}

	ns, err := NewNotifyingStore(ctx, store, s.ProjectID, s.NotifyTopic, logger, credentialOptions(s)...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return ns, nil
}

func credentialOptions(s Settings) []option.ClientOption {
	var opts []option.ClientOption
	if s.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.CredentialsFile))
	}
	return opts
}

func openBackend(ctx context.Context, s Settings) (Store, error) {
	switch s.Backend {
	case BackendMemory, "":
		return NewLocalStore(), nil
	case BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("awsconfig.LoadDefaultConfig: %w", err)
		}
		cl := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if s.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(s.DynamoDBEndpoint)
			}
		})
		return NewDynamoDBStore(cl, s.TableName), nil
	case BackendDatastore:
		return NewDatastoreStore(ctx, s.ProjectID, s.TableName, s.Namespace, credentialOptions(s)...)
	case BackendRedis:
		cl := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:        []string{s.RedisAddr},
			DialTimeout:  time.Second * 2,
			ReadTimeout:  time.Second * 2,
			WriteTimeout: time.Second * 2,
			PoolSize:     200,
			PoolTimeout:  time.Second * 5,
		})
		return NewRedisStore(cl, s.TableName), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", s.Backend)
	}
}
