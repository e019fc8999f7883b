package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"unsermarkt/internal/common"
	"unsermarkt/internal/engine"
	"unsermarkt/internal/utils"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = 30 * time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// ClientSession contains relevant information pertaining to an
// individual connected TCP session.
type ClientSession struct {
	id   string
	conn net.Conn
}

// ClientMessage links a decoded message to the session sending it.
type ClientMessage struct {
	sessionID string
	message   Message
}

// Server is the order-entry daemon for one book. Connections are read
// by a worker pool; every decoded message funnels through a single
// session-handler goroutine, which is the only caller of the engine.
// That goroutine is the engine's "single logical thread of control".
type Server struct {
	address string
	port    int
	book    *engine.OrderBook

	pool           utils.WorkerPool
	cancel         context.CancelFunc
	sessions       map[string]ClientSession
	sessionsLock   sync.Mutex
	clientMessages chan ClientMessage
}

func New(address string, port int, book *engine.OrderBook) *Server {
	return &Server{
		address:        address,
		port:           port,
		book:           book,
		pool:           utils.NewWorkerPool(defaultNWorkers),
		sessions:       make(map[string]ClientSession),
		clientMessages: make(chan ClientMessage, 1),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	// Every fill recorded by the engine is broadcast to all connected
	// sessions. The callback fires inside sessionHandler's engine
	// calls, so delivery order is the engine's match order.
	s.book.OnMatch(func(m common.Match) {
		s.broadcast(EncodeMatch(m))
	})

	s.pool.Setup(t, s.handleConnection)

	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().
		Uint32("security", s.book.SecurityID()).
		Uint32("funding", s.book.FundingID()).
		Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			session := s.addClientSession(conn)
			log.Info().
				Str("session", session.id).
				Str("address", conn.RemoteAddr().String()).
				Msg("new client added")

			s.pool.AddTask(session)
		}
	}
}

// sessionHandler owns the order book. All engine calls happen here, in
// arrival order, and every operation is answered with an ack to the
// submitting session.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case cm := <-s.clientMessages:
			s.dispatch(cm)
		}
	}
}

func (s *Server) dispatch(cm ClientMessage) {
	switch m := cm.message.(type) {
	case NewOrderMessage:
		id, err := s.book.AddOrder(m.Order)
		log.Info().
			Str("session", cm.sessionID).
			Uint32("order", uint32(id)).
			Err(err).
			Msg("add order")
		s.ack(cm.sessionID, Ack{ID: id, Code: ackCode(err), Remaining: remaining(err)})
	case OrderRefMessage:
		var err error
		switch m.TypeOf {
		case CancelOrder:
			err = s.book.CancelOrder(m.ID)
		case SuspendOrder:
			err = s.book.SuspendOrder(m.ID)
		case ResumeOrder:
			err = s.book.ResumeOrder(m.ID)
		}
		log.Info().
			Str("session", cm.sessionID).
			Uint32("order", uint32(m.ID)).
			Uint16("type", uint16(m.TypeOf)).
			Err(err).
			Msg("order op")
		s.ack(cm.sessionID, Ack{ID: m.ID, Code: ackCode(err), Remaining: remaining(err)})
	case BaseMessage:
		// Heartbeat; nothing to do.
	}
}

// ackCode maps engine errors onto wire codes.
func ackCode(err error) AckCode {
	var unfilled *engine.MarketUnfilledError
	switch {
	case err == nil:
		return AckOK
	case errors.Is(err, engine.ErrOrderNotFound):
		return AckNotFound
	case errors.Is(err, engine.ErrInvalidSide):
		return AckInvalidSide
	case errors.As(err, &unfilled):
		return AckMarketUnfilled
	default:
		return AckPoolExhausted
	}
}

func remaining(err error) uint32 {
	var unfilled *engine.MarketUnfilledError
	if errors.As(err, &unfilled) {
		return unfilled.Remaining
	}
	return 0
}

func (s *Server) ack(sessionID string, a Ack) {
	if err := s.send(sessionID, EncodeAck(a)); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("unable to send ack")
	}
}

func (s *Server) send(sessionID string, payload []byte) error {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrClientDoesNotExist
	}
	if _, err := session.conn.Write(payload); err != nil {
		delete(s.sessions, sessionID)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

func (s *Server) broadcast(payload []byte) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	for id, session := range s.sessions {
		if _, err := session.conn.Write(payload); err != nil {
			log.Error().Err(err).Str("session", id).Msg("dropping session")
			delete(s.sessions, id)
		}
	}
}

// handleConnection is a short-lived worker method which reads the next
// frame off the connection, parses it and passes it forward to
// sessionHandler. If the connection dies, the client session is
// cleaned up.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	session, ok := task.(ClientSession)
	if !ok {
		return ErrImproperConversion
	}

	if err := session.conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Str("session", session.id).
			Err(err).
			Msg("failed setting deadline for connection")
		s.dropClientSession(session)
		return nil
	}

	buffer := make([]byte, MAX_RECV_SIZE)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := session.conn.Read(buffer)
		if err != nil {
			log.Info().
				Err(err).
				Str("session", session.id).
				Msg("client disconnected")
			s.dropClientSession(session)
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("session", session.id).
				Msg("error parsing message")
			if _, werr := session.conn.Write(EncodeError(err)); werr != nil {
				s.dropClientSession(session)
				return nil
			}
		} else {
			s.clientMessages <- ClientMessage{
				sessionID: session.id,
				message:   message,
			}
		}

		// Push the session back to handle the next message.
		s.pool.AddTask(session)
	}
	return nil
}

func (s *Server) addClientSession(conn net.Conn) ClientSession {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	session := ClientSession{id: uuid.New().String(), conn: conn}
	s.sessions[session.id] = session
	return session
}

func (s *Server) dropClientSession(session ClientSession) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	if err := session.conn.Close(); err != nil {
		log.Error().Str("session", session.id).Err(err).Msg("error closing connection")
	}
	delete(s.sessions, session.id)
}
