package redis

import (
	"context"
	"strings"
	"testing"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/simple-workflow/swf/provider/test"
)

const (
	address  = "localhost:6379"
	user     = ""
	password = ""
)

func Test_RedisProvider(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	client := getClient()

	test.ProviderTest(t, getCreateProvider(client), func(p test.TestProvider) {
		// The client is shared across subtests, keep it open
	})
}

func getClient() redisv9.UniversalClient {
	return redisv9.NewUniversalClient(&redisv9.UniversalOptions{
		Addrs:    []string{address},
		Username: user,
		Password: password,
		DB:       0,
	})
}

func getCreateProvider(client redisv9.UniversalClient) func() test.TestProvider {
	return func() test.TestProvider {
		// Flush database
		if err := client.FlushDB(context.Background()).Err(); err != nil {
			panic(err)
		}

		r, err := client.Keys(context.Background(), "*").Result()
		if err != nil {
			panic(err)
		}

		if len(r) > 0 {
			panic("Keys should've been empty: " + strings.Join(r, ", "))
		}

		p, err := NewRedisProvider(client, WithKeyPrefix("swf-test:"))
		if err != nil {
			panic(err)
		}

		return p
	}
}
