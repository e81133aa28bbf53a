package transport

import "net"

type NetworkClientConfig struct {
	ServerAddr string
	KeepAlive  bool
	Dialer     *net.Dialer
}

type NetworkServerConfig struct {
	Addrs     []string
	KeepAlive bool
}

func (c NetworkClientConfig) dial() (net.Conn, error) {
	if c.Dialer != nil {
		return c.Dialer.Dial("tcp", c.ServerAddr)
	}
	return net.Dial("tcp", c.ServerAddr)
}
