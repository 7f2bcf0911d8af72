package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockResolver struct {
	ips map[string][]string
	err error
}

func (m *mockResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	if m.err != nil {
		return nil, m.err
	}
	raw, ok := m.ips[host]
	if !ok {
		return nil, fmt.Errorf("no such host: %s", host)
	}
	out := make([]net.IPAddr, len(raw))
	for i, s := range raw {
		out[i] = net.IPAddr{IP: net.ParseIP(s)}
	}
	return out, nil
}

type slowResolver struct{}

func (slowResolver) LookupIPAddr(ctx context.Context, _ string) ([]net.IPAddr, error) {
	select {
	case <-time.After(5 * time.Second):
		return []net.IPAddr{{IP: net.ParseIP("93.184.216.34")}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestIsBlocked(t *testing.T) {
	blocked := []string{
		"127.0.0.1", "10.1.2.3", "172.16.0.1", "172.31.255.255", "192.168.1.1",
		"169.254.169.254", "100.64.0.1", "0.0.0.0", "224.0.0.1", "::1", "fe80::1", "fd00::1",
	}
	for _, s := range blocked {
		assert.True(t, IsBlocked(net.ParseIP(s)), s)
	}

	allowed := []string{"93.184.216.34", "8.8.8.8", "172.32.0.1", "2606:4700::1111"}
	for _, s := range allowed {
		assert.False(t, IsBlocked(net.ParseIP(s)), s)
	}
}

func TestGuard_Resolve(t *testing.T) {
	g := NewGuard(&mockResolver{ips: map[string][]string{
		"hooks.example.com": {"93.184.216.34"},
		"metadata.evil":     {"169.254.169.254"},
		"rebind.evil":       {"93.184.216.34", "10.0.0.5"},
		"empty.example.com": {},
	}})
	ctx := context.Background()

	ips, err := g.Resolve(ctx, "hooks.example.com")
	require.NoError(t, err)
	assert.Equal(t, "93.184.216.34", ips[0].String())

	_, err = g.Resolve(ctx, "metadata.evil")
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = g.Resolve(ctx, "rebind.evil")
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = g.Resolve(ctx, "empty.example.com")
	assert.ErrorIs(t, err, ErrDNSFailed)

	_, err = g.Resolve(ctx, "unknown.example.com")
	assert.ErrorIs(t, err, ErrDNSFailed)

	_, err = g.Resolve(ctx, "127.0.0.1")
	assert.ErrorIs(t, err, ErrBlocked)

	ips, err = g.Resolve(ctx, "8.8.8.8")
	require.NoError(t, err)
	assert.Len(t, ips, 1)
}

func TestGuard_Resolve_Timeout(t *testing.T) {
	g := NewGuard(slowResolver{})

	start := time.Now()
	_, err := g.Resolve(context.Background(), "slow.example.com")

	assert.ErrorIs(t, err, ErrDNSTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewHTTPClient_RefusesLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPClient(NewGuard(nil), 2*time.Second, 3)
	_, err := client.Get(srv.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlocked), "got %v", err)
}

func TestCheckRedirect(t *testing.T) {
	g := NewGuard(&mockResolver{ips: map[string][]string{
		"ok.example.com":  {"93.184.216.34"},
		"bad.example.com": {"192.168.0.10"},
	}})
	check := g.CheckRedirect(2)

	req := func(raw string) *http.Request {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		return (&http.Request{URL: u}).WithContext(context.Background())
	}

	assert.NoError(t, check(req("https://ok.example.com/x"), nil))
	assert.ErrorIs(t, check(req("https://bad.example.com/x"), nil), ErrBlocked)
	assert.ErrorIs(t, check(req("http://169.254.169.254/latest"), nil), ErrBlocked)

	via := []*http.Request{req("https://ok.example.com/1"), req("https://ok.example.com/2")}
	assert.ErrorIs(t, check(req("https://ok.example.com/3"), via), ErrTooManyRedirects)
}
