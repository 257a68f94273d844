package health

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

type redisIndicator struct {
	rdb redis.UniversalClient
}

// Redis reports UP when PING succeeds.  The server version is added when
// INFO server answers; some Redis-compatible servers do not support it.
func Redis(rdb redis.UniversalClient) Indicator {
	return redisIndicator{rdb: rdb}
}

func (redisIndicator) Name() string { return "redis" }

func (r redisIndicator) Check(ctx context.Context) Health {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return Down(err, nil)
	}
	details := map[string]any{}
	if info, err := r.rdb.Info(ctx, "server").Result(); err == nil {
		if v := infoField(info, "redis_version"); v != "" {
			details["version"] = v
		}
	}
	return Up(details)
}

// infoField extracts key from the "key:value" lines of an INFO reply.
func infoField(info, key string) string {
	for _, line := range strings.Split(info, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), ":")
		if ok && k == key {
			return v
		}
	}
	return ""
}
