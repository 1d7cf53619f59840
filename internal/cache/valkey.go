package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Valkey stores responses in Valkey (Redis-compatible) with SET ... EX.
type Valkey struct {
	client valkey.Client
	ttl    time.Duration
}

// NewValkey connects to addr.
func NewValkey(addr string, ttl time.Duration) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}

	return NewValkeyWithClient(client, ttl), nil
}

// NewValkeyWithClient wraps an existing client, e.g. a mock in tests.
func NewValkeyWithClient(client valkey.Client, ttl time.Duration) *Valkey {
	return &Valkey{client: client, ttl: ttl}
}

func (v *Valkey) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := v.client.Do(ctx, v.client.B().Get().Key(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("valkey get: %w", err)
	}

	return body, true, nil
}

func (v *Valkey) Set(ctx context.Context, key string, body []byte) error {
	cmd := v.client.B().Set().Key(key).Value(valkey.BinaryString(body))
	if v.ttl > 0 {
		if err := v.client.Do(ctx, cmd.Ex(v.ttl).Build()).Error(); err != nil {
			return fmt.Errorf("valkey set: %w", err)
		}
		return nil
	}

	if err := v.client.Do(ctx, cmd.Build()).Error(); err != nil {
		return fmt.Errorf("valkey set: %w", err)
	}

	return nil
}

func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

func (v *Valkey) Close() {
	v.client.Close()
}
