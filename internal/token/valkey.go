/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package token

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"
)

const valkeyTimeout = 5 * time.Second

// ValkeyBackend shares tokens between every client pointed at the same
// server and prefix, so a logout in one terminal is seen by all of them.
type ValkeyBackend struct {
	client valkey.Client
	prefix string
}

func NewValkeyBackend(addr, prefix string) (*ValkeyBackend, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, err
	}

	return NewValkeyBackendFromClient(client, prefix), nil
}

func NewValkeyBackendFromClient(client valkey.Client, prefix string) *ValkeyBackend {
	return &ValkeyBackend{
		client: client,
		prefix: prefix,
	}
}

func (v *ValkeyBackend) Load(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyTimeout)
	defer cancel()

	val, err := v.client.Do(ctx, v.client.B().Get().Key(v.prefix+key).Build()).ToString()
	switch {
	case valkey.IsValkeyNil(err):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return val, true, nil
}

func (v *ValkeyBackend) Save(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyTimeout)
	defer cancel()

	return v.client.Do(ctx, v.client.B().Set().Key(v.prefix+key).Value(value).Build()).Error()
}

func (v *ValkeyBackend) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), valkeyTimeout)
	defer cancel()

	return v.client.Do(ctx, v.client.B().Del().Key(v.prefix+key).Build()).Error()
}

func (v *ValkeyBackend) Close() {
	v.client.Close()
}
