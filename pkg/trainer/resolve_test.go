package trainer

import (
	"errors"
	"net"
	"strconv"
	"testing"
)

func TestResolveRedisAddress_Format(t *testing.T) {
	addr, err := ResolveRedisAddress(0)
	if err != nil {
		// No routable interface on this machine; the launcher would abort
		// before spawning, which is the specified behavior
		t.Skipf("no routable address: %v", err)
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("Expected host:port, got %q: %v", addr, err)
	}
	if port != strconv.Itoa(DefaultRedisPort) {
		t.Errorf("Expected default port %d, got %s", DefaultRedisPort, port)
	}
	if net.ParseIP(host) == nil {
		t.Errorf("Expected IP host, got %q", host)
	}
}

func TestResolveRedisAddress_CustomPort(t *testing.T) {
	addr, err := ResolveRedisAddress(6380)
	if err != nil {
		t.Skipf("no routable address: %v", err)
	}

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("Expected host:port, got %q: %v", addr, err)
	}
	if port != "6380" {
		t.Errorf("Expected port 6380, got %s", port)
	}
}

func TestResolveRedisAddress_DialFailure(t *testing.T) {
	orig := dial
	dial = func(network, address string) (net.Conn, error) {
		return nil, errors.New("network is unreachable")
	}
	defer func() { dial = orig }()

	addr, err := ResolveRedisAddress(0)
	if err == nil {
		t.Fatal("Expected error when no routable address exists")
	}
	if addr != "" {
		t.Errorf("Expected empty address on failure, got %q", addr)
	}
}
