package transport

import "sync"

const (
	NBioTcp = "nbio_tcp"
	StdTcp  = "std_tcp"
)

var (
	Manager = &manager{}
)

type manager struct {
	serverEngineCollection sync.Map // string -> NewServerBuilder
	clientEngineCollection sync.Map // string -> NewClientBuilder
}

func (m *manager) RegisterServerEngine(scheme string, builder NewServerBuilder) {
	m.serverEngineCollection.Store(scheme, builder)
}

// GetServerEngine 没有找到时返回nil
func (m *manager) GetServerEngine(scheme string) NewServerBuilder {
	builder, ok := m.serverEngineCollection.Load(scheme)
	if !ok {
		return nil
	}
	return builder.(NewServerBuilder)
}

func (m *manager) RegisterClientEngine(scheme string, builder NewClientBuilder) {
	m.clientEngineCollection.Store(scheme, builder)
}

func (m *manager) GetClientEngine(scheme string) NewClientBuilder {
	builder, ok := m.clientEngineCollection.Load(scheme)
	if !ok {
		return nil
	}
	return builder.(NewClientBuilder)
}

func init() {
	Manager.RegisterServerEngine(NBioTcp, NewNBioTcpServer)
	Manager.RegisterClientEngine(NBioTcp, NewNBioTcpClient)
	Manager.RegisterServerEngine(StdTcp, NewStdTcpServer)
	Manager.RegisterClientEngine(StdTcp, NewStdTcpClient)
}
