package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCleanup_ShutsDownAuthenticatorBeforeClosingResources(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey("test"), "marker")
	var callOrder []string

	authenticator := &fakeAuthenticator{calls: &callOrder}

	cleanup := newCleanup(ctx, authenticator,
		&fakeCloser{name: "redis", calls: &callOrder},
		nil,
		&fakeCloser{name: "store", calls: &callOrder, err: errors.New("already closed")},
	)

	cleanup()

	require.Equal(t, []string{"authShutdown", "redis", "store"}, callOrder)
	require.Equal(t, "marker", authenticator.receivedCtx.Value(ctxKey("test")))
}

func TestNewCleanup_NilAuthenticator(t *testing.T) {
	var callOrder []string
	newCleanup(context.Background(), nil, &fakeCloser{name: "store", calls: &callOrder})()
	assert.Equal(t, []string{"store"}, callOrder)
}

func TestMaskPassword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://atelier:s3cret@db:5432/atelier?sslmode=disable", "postgres://atelier:xxxxxx@db:5432/atelier?sslmode=disable"},
		{"postgres://atelier@db:5432/atelier", "postgres://atelier@db:5432/atelier"},
		{"://bad", "[REDACTED]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskPassword(tt.in))
	}
}

type ctxKey string

type fakeAuthenticator struct {
	calls       *[]string
	receivedCtx context.Context
}

func (f *fakeAuthenticator) Shutdown(ctx context.Context) error {
	f.receivedCtx = ctx
	*f.calls = append(*f.calls, "authShutdown")
	return nil
}

type fakeCloser struct {
	name  string
	calls *[]string
	err   error
}

var _ io.Closer = (*fakeCloser)(nil)

func (c *fakeCloser) Close() error {
	*c.calls = append(*c.calls, c.name)
	return c.err
}
