package streamio

import (
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/pathfinder/logging"
)

// Server is the debug stream's TCP endpoint: a consumer that never mutates
// core state and whose blocking network sends never stall the pipeline.
// Each accepted connection gets its own single-slot, latest-wins mailbox
// so one slow client cannot back up another.
type Server struct {
	listener net.Listener
	logger   logging.Logger

	mu    sync.Mutex
	conns map[*clientConn]struct{}
}

type clientConn struct {
	conn   net.Conn
	mailCh chan Payload
}

// NewServer starts listening on the given TCP port and accepting
// debug-stream clients.
func NewServer(port int, logger logging.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, errors.Wrapf(err, "streamio: listening on port %d", port)
	}
	s := &Server{
		listener: ln,
		logger:   logger,
		conns:    make(map[*clientConn]struct{}),
	}
	utils.PanicCapturingGo(s.acceptLoop)
	return s, nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return // listener closed
		}
		cc := &clientConn{conn: conn, mailCh: make(chan Payload, 1)}
		s.mu.Lock()
		s.conns[cc] = struct{}{}
		s.mu.Unlock()
		utils.PanicCapturingGo(func() { s.serveClient(cc) })
	}
}

func (s *Server) serveClient(cc *clientConn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, cc)
		s.mu.Unlock()
		cc.conn.Close()
	}()
	for p := range cc.mailCh {
		if err := WriteFrame(cc.conn, p); err != nil {
			// drop this connection only; the client may reconnect
			s.logger.Warnw("streamio: send failed, dropping connection", "err", err)
			return
		}
	}
}

// Publish fans a payload out to every connected client, non-blocking: a
// client whose mailbox is full has its stale frame replaced by this one.
func (s *Server) Publish(p Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cc := range s.conns {
		select {
		case cc.mailCh <- p:
		default:
			select {
			case <-cc.mailCh:
			default:
			}
			select {
			case cc.mailCh <- p:
			default:
			}
		}
	}
}

// Close stops accepting new connections and closes every active client
// connection.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for cc := range s.conns {
		close(cc.mailCh)
	}
	return err
}
