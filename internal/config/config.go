// Package config gathers settings shared by the counter binaries. Values come
// from the environment (a .env file is honored) and may be overridden by flags.
package config

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/tckz/password-counter/internal/counter"
)

type Config struct {
	LogLevel   string
	ListenAddr string
	Store      counter.Settings
}

// Load reads .env if present, then the environment. backend is the default
// when COUNTER_BACKEND is unset.
func Load(backend string) *Config {
	godotenv.Load()
	return FromEnv(os.Getenv, backend)
}

// FromEnv builds a Config from getenv, which lets tests avoid the real environment.
func FromEnv(getenv func(string) string, backend string) *Config {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	return &Config{
		LogLevel:   get("LOG_LEVEL", "info"),
		ListenAddr: get("LISTEN_ADDR", ":8080"),
		Store: counter.Settings{
			Backend:          get("COUNTER_BACKEND", backend),
			TableName:        get("DYNAMODB_TABLE_NAME", counter.DefaultTableName),
			DynamoDBEndpoint: getenv("DYNAMODB_ENDPOINT"),
			ProjectID:        getenv("PROJECT_ID"),
			Namespace:        getenv("DATASTORE_NAMESPACE"),
			CredentialsFile:  getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			RedisAddr:        get("REDIS_ADDR", "localhost:6379"),
			NotifyTopic:      getenv("NOTIFY_TOPIC"),
		},
	}
}

// RegisterFlags binds the store and log flags to fs, defaulting to the values
// already in c.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "info|warn|error")
	fs.StringVar(&c.Store.Backend, "backend", c.Store.Backend, "memory|dynamodb|datastore|redis")
	fs.StringVar(&c.Store.TableName, "table", c.Store.TableName, "table, kind or key prefix of the counter record")
	fs.StringVar(&c.Store.ProjectID, "project", c.Store.ProjectID, "GCP project for datastore")
	fs.StringVar(&c.Store.Namespace, "ns", c.Store.Namespace, "datastore namespace")
	fs.StringVar(&c.Store.RedisAddr, "redis", c.Store.RedisAddr, "addr:port of redis")
	fs.StringVar(&c.Store.NotifyTopic, "notify-topic", c.Store.NotifyTopic, "pubsub topic receiving every written record")
	fs.StringVar(&c.Store.DynamoDBEndpoint, "dynamodb-endpoint", c.Store.DynamoDBEndpoint, "override dynamodb endpoint")
}
