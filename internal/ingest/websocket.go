package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"alphatrend/internal/domain"
)

// WSSource consumes batches over a websocket feed. A background reader
// decodes frames into batches and hands them to Next through a channel, so
// Next can honor context cancellation while gorilla blocks on the socket.
type WSSource struct {
	url  string
	log  zerolog.Logger
	conn *websocket.Conn

	batches chan *domain.Batch
	errs    chan error
	done    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// DialWSSource connects to the feed and starts the read loop.
func DialWSSource(ctx context.Context, url string, log zerolog.Logger) (*WSSource, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket %s: %w", url, err)
	}

	s := &WSSource{
		url:     url,
		log:     log.With().Str("component", "ws_source").Logger(),
		conn:    conn,
		batches: make(chan *domain.Batch, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.readLoop()
	return s, nil
}

// Compile-time interface check.
var _ Source = (*WSSource)(nil)

func (s *WSSource) readLoop() {
	defer s.wg.Done()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case s.errs <- fmt.Errorf("read websocket frame: %w", err):
			case <-s.done:
			}
			return
		}

		batch, err := decodeBatch(data)
		if err != nil {
			s.log.Warn().Err(err).Msg("skipping undecodable frame")
			continue
		}

		select {
		case s.batches <- batch:
		case <-s.done:
			return
		}
	}
}

// Next blocks until a batch arrives, the feed fails, or ctx ends.
func (s *WSSource) Next(ctx context.Context) (*domain.Batch, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}

	select {
	case batch := <-s.batches:
		s.log.Debug().
			Int("tokens", len(batch.Tokens)).
			Int("metas", len(batch.Metas)).
			Msg("batch received")
		return batch, nil
	case err := <-s.errs:
		if s.closed.Load() {
			return nil, ErrSourceClosed
		}
		return nil, err
	case <-s.done:
		return nil, ErrSourceClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears down the connection and stops the read loop.
func (s *WSSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)

	// Best effort close frame before dropping the socket.
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := s.conn.Close()
	s.wg.Wait()
	return err
}
