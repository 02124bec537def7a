package trainer

import (
	"fmt"
	"net"
)

// DefaultRedisPort is the port the tuning coordinator listens on.
const DefaultRedisPort = 6379

// dial is swapped out in tests to exercise resolution failure
var dial = net.Dial

// ResolveRedisAddress determines the address the tuning backend should be
// reached at: the local machine's outbound IP plus the coordinator port.
//
// The outbound IP is discovered by opening a UDP socket toward a public
// address. No packet is sent; the kernel just picks the routable source
// address. This matches how the trainer itself derives the address, so
// both sides agree on the host.
func ResolveRedisAddress(port int) (string, error) {
	if port <= 0 {
		port = DefaultRedisPort
	}

	conn, err := dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("failed to resolve local address: %w", err)
	}
	defer conn.Close()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || localAddr.IP == nil {
		return "", fmt.Errorf("failed to resolve local address: unexpected local addr %v", conn.LocalAddr())
	}

	return fmt.Sprintf("%s:%d", localAddr.IP.String(), port), nil
}
