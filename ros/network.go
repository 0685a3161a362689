package ros

import (
	"net"
	"os"
	"strings"

	"github.com/pkg/errors"
)

func determineHost() (string, bool) {
	// If the user set ROS_HOSTNAME, use it as is
	if rosHostname, ok := os.LookupEnv("ROS_HOSTNAME"); ok {
		return rosHostname, rosHostname == "localhost"
	}

	// If the user set ROS_IP, use it as is
	if rosIP, ok := os.LookupEnv("ROS_IP"); ok {
		return rosIP, isLoopbackAddress(rosIP)
	}

	// Try using the hostname
	if osHostname, err := os.Hostname(); err == nil && osHostname != "localhost" {
		return osHostname, false
	}

	// Fall back on the interface IP
	if addrs, err := net.InterfaceAddrs(); err == nil {
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				return ipnet.IP.String(), false
			}
		}
	}
	// Fall back to the loopback IP
	return "127.0.0.1", true
}

func isLoopbackAddress(host string) bool {
	return host == "localhost" || host == "::1" || strings.HasPrefix(host, "127.")
}

// listenTCP listens on an ephemeral port of address.
func listenTCP(address string) (*net.TCPListener, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(address, "0"))
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", address)
	}
	tcpListener, ok := listener.(*net.TCPListener)
	if !ok {
		listener.Close()
		return nil, errors.New("listener is not a TCPListener")
	}
	return tcpListener, nil
}

// listenerPort returns the port part of the listener address.
func listenerPort(l net.Listener) string {
	_, port, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		// Not reached for TCP listeners
		return ""
	}
	return port
}
