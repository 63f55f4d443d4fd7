package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/snaphunt/logger"
	"github.com/wfunc/snaphunt/models"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the caller
// before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// StatusSource mirrors monitor.StatusSource without importing it.
type StatusSource interface {
	StatusSnapshot() models.StatusReport
}

// OpsService exposes the operational status query over net/rpc.
type OpsService struct {
	source StatusSource
}

func NewOpsService(source StatusSource) *OpsService {
	return &OpsService{source: source}
}

// RegisterOps registers the service with the net/rpc default server under
// the "Ops" name.
func RegisterOps(svc *OpsService) error {
	return rpc.RegisterName("Ops", svc)
}

type StatusArgs struct{}

// Status follows the net/rpc signature: exported method, exported arguments,
// pointer reply, error return.
func (o *OpsService) Status(args *StatusArgs, reply *models.StatusReport) error {
	*reply = o.source.StatusSnapshot()
	return nil
}
