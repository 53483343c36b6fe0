package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/internal/core/service"
	"github.com/yndnr/authrelay-go/internal/storage"
	"github.com/yndnr/authrelay-go/internal/storage/memory"
	"github.com/yndnr/authrelay-go/internal/storage/redisstore"
	"github.com/yndnr/authrelay-go/pkg/clock"
)

const benchSecret = "benchmark-secret-0123456789abcdef0123"

// SessionCounts are the prefill sizes used by the scaling benchmarks.
var SessionCounts = []int{1000, 10000, 100000}

var benchClaims = domain.ClaimSet{
	domain.NewClaim(domain.ClaimName, "ada"),
	domain.NewClaim(domain.ClaimRole, "Developer"),
	domain.NewClaim(domain.ClaimRole, "Operator"),
	{Type: "tenant", Value: "42", ValueType: domain.ValueInteger},
}

func newTokens(b *testing.B, encrypt bool) *service.TokenManager {
	b.Helper()
	m, err := service.NewTokenManager(service.TokenConfig{
		Issuer:        "authrelay",
		Audience:      "authrelay",
		Secret:        benchSecret,
		EncryptClaims: encrypt,
	}, clock.System{})
	if err != nil {
		b.Fatalf("NewTokenManager: %v", err)
	}
	return m
}

type backend struct {
	name string
	open func(b *testing.B) service.SessionRepository
}

func backends() []backend {
	return []backend{
		{"memory", func(b *testing.B) service.SessionRepository {
			return memory.New()
		}},
		{"badger", func(b *testing.B) service.SessionRepository {
			cfg := storage.DefaultBadgerConfig("")
			cfg.InMemory = true
			s, err := storage.NewBadgerStore(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
			if err != nil {
				b.Fatalf("NewBadgerStore: %v", err)
			}
			b.Cleanup(func() { s.Close() })
			return s
		}},
		{"redis", func(b *testing.B) service.SessionRepository {
			mr := miniredis.RunT(b)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			b.Cleanup(func() { client.Close() })
			return redisstore.New(client)
		}},
	}
}

// prefill stores count sessions and returns their ids.
func prefill(b *testing.B, svc *service.SessionService, count int) []string {
	b.Helper()
	ctx := context.Background()
	ids := make([]string, count)
	for i := range ids {
		id, err := svc.Store(ctx, benchClaims)
		if err != nil {
			b.Fatalf("prefill %d: %v", i, err)
		}
		ids[i] = id
	}
	return ids
}

func sizeName(n int) string { return fmt.Sprintf("sessions_%d", n) }
