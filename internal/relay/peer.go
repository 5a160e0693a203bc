// Package relay connects an interview coordinator to the browser that owns the microphone and the WebRTC peer
// connection. The browser executes commands sent over a WebSocket and forwards data channel traffic back.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/interview"
	"github.com/Manty2503/demo-final/internal/realtime"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	// eventBuffer absorbs bursts of realtime events while the coordinator is busy.
	eventBuffer = 64
)

var (
	ErrDisconnected = errors.NewSentinel("browser disconnected")
	ErrMediaDenied  = errors.NewSentinel("browser could not acquire media")
	ErrNoTracks     = errors.NewSentinel("browser acquired no tracks")
)

type Negotiator interface {
	Negotiate(ctx context.Context, offer, bearer, model string) (string, error)
}

// Peer is the server side of one browser relay. It implements [interview.MediaSource] and [interview.Transport].
type Peer struct {
	conn       *websocket.Conn
	negotiator Negotiator
	logger     *slog.Logger

	writeMu sync.Mutex

	media  chan Message
	offers chan Message
	events chan realtime.ServerEvent

	opened     chan struct{}
	openOnce   sync.Once
	ended      chan struct{}
	endOnce    sync.Once
	detached   chan struct{}
	detachOnce sync.Once
	done       chan struct{}
}

func NewPeer(conn *websocket.Conn, negotiator Negotiator, logger *slog.Logger) *Peer {
	return &Peer{
		conn:       conn,
		negotiator: negotiator,
		logger:     logger.With(slog.String("source", "relay")),
		media:      make(chan Message, 1),
		offers:     make(chan Message, 1),
		events:     make(chan realtime.ServerEvent, eventBuffer),
		opened:     make(chan struct{}),
		ended:      make(chan struct{}),
		detached:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Listen reads browser messages until the connection fails. It is the only closer of the events channel.
func (p *Peer) Listen(ctx context.Context) {
	defer close(p.done)
	eventsClosed := false
	defer func() {
		if !eventsClosed {
			close(p.events)
		}
	}()

	stopPing := make(chan struct{})
	defer close(stopPing)
	go p.ping(ctx, stopPing)

	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger.LogAttrs(ctx, slog.LevelWarn, "browser connection lost", errors.SlogError(err))
			}
			return
		}

		switch msg.Type {
		case TypeMediaAcquired, TypeMediaError:
			p.offer(ctx, p.media, msg)
		case TypePeerOffer:
			p.offer(ctx, p.offers, msg)
		case TypeChannelOpen:
			p.openOnce.Do(func() { close(p.opened) })
		case TypeChannelMessage:
			if eventsClosed {
				continue
			}
			var event realtime.ServerEvent
			if err := json.Unmarshal(msg.Event, &event); err != nil {
				p.logger.LogAttrs(ctx, slog.LevelWarn, "invalid channel message", errors.SlogError(err))
				continue
			}
			select {
			case p.events <- event:
			case <-p.detached:
			}
		case TypeChannelClose:
			if !eventsClosed {
				eventsClosed = true
				close(p.events)
			}
		case TypeInterviewEnd:
			p.End()
		default:
			p.logger.LogAttrs(ctx, slog.LevelDebug, "unknown browser message", slog.String("type", msg.Type))
			_ = p.Write(Message{Type: TypeError, Message: "unknown message type"})
		}
	}
}

// offer hands a browser reply to a waiting command. Unsolicited replies are dropped.
func (p *Peer) offer(ctx context.Context, ch chan Message, msg Message) {
	select {
	case ch <- msg:
	default:
		p.logger.LogAttrs(ctx, slog.LevelDebug, "dropped unsolicited reply", slog.String("type", msg.Type))
	}
}

func (p *Peer) ping(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				p.logger.LogAttrs(ctx, slog.LevelDebug, "ping failed", errors.SlogError(err))
				return
			}
		case <-stop:
			return
		}
	}
}

// Write sends a message to the browser. It is safe for concurrent use.
func (p *Peer) Write(msg Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return errors.Wrap(err, "set write deadline")
	}
	if err := p.conn.WriteJSON(msg); err != nil {
		return errors.Wrap(err, "write message", slog.String("type", msg.Type))
	}
	return nil
}

// release sends a teardown command. A disconnected browser has already released everything.
func (p *Peer) release(msg Message) error {
	select {
	case <-p.done:
		return nil
	default:
		return p.Write(msg)
	}
}

// Ended is closed when the browser asks to end the interview.
func (p *Peer) Ended() <-chan struct{} {
	return p.ended
}

func (p *Peer) End() {
	p.endOnce.Do(func() { close(p.ended) })
}

// Done is closed when the browser connection is gone.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Close closes the WebSocket connection.
func (p *Peer) Close() error {
	p.writeMu.Lock()
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	p.writeMu.Unlock()
	if err := p.conn.Close(); err != nil {
		return errors.Wrap(err, "close websocket")
	}
	return nil
}

// await sends a command and waits for the browser reply on ch.
func (p *Peer) await(ctx context.Context, command Message, ch <-chan Message) (Message, error) {
	if err := p.Write(command); err != nil {
		return Message{}, err
	}
	select {
	case reply := <-ch:
		return reply, nil
	case <-p.done:
		return Message{}, errors.Wrap(ErrDisconnected, "await reply", slog.String("command", command.Type))
	case <-ctx.Done():
		return Message{}, errors.Wrap(ctx.Err(), "await reply", slog.String("command", command.Type))
	}
}

// Acquire asks the browser for microphone access.
func (p *Peer) Acquire(ctx context.Context) (interview.MediaStream, error) {
	reply, err := p.await(ctx, Message{Type: TypeMediaAcquire}, p.media)
	if err != nil {
		return nil, err
	}
	if reply.Type == TypeMediaError {
		return nil, errors.Wrap(ErrMediaDenied, "acquire media", slog.String("message", reply.Message))
	}
	if len(reply.TrackIDs) == 0 {
		return nil, errors.Wrap(ErrNoTracks, "acquire media")
	}
	stream := &stream{}
	for _, id := range reply.TrackIDs {
		stream.tracks = append(stream.tracks, &track{id: id, peer: p})
	}
	return stream, nil
}

// Connect has the browser create a WebRTC offer, negotiates it with the realtime service using the short-lived
// credential and hands the answer back to the browser.
func (p *Peer) Connect(
	ctx context.Context, credential realtime.Credential, _ interview.MediaStream) (interview.Channel, error) {
	offer, err := p.await(ctx, Message{Type: TypePeerConnect, Model: credential.Model}, p.offers)
	if err != nil {
		return nil, err
	}
	answer, err := p.negotiator.Negotiate(ctx, offer.SDP, credential.ClientSecret.Value, credential.Model)
	if err != nil {
		return nil, errors.Wrap(err, "negotiate")
	}
	if err = p.Write(Message{Type: TypePeerAnswer, SDP: answer}); err != nil {
		return nil, err
	}
	return &dataChannel{peer: p}, nil
}

type stream struct {
	tracks []interview.Track
}

func (s *stream) Tracks() []interview.Track {
	return s.tracks
}

type track struct {
	id   string
	peer *Peer
}

func (t *track) ID() string {
	return t.id
}

func (t *track) Stop() error {
	return t.peer.release(Message{Type: TypeMediaStop, TrackIDs: []string{t.id}})
}

type dataChannel struct {
	peer *Peer
}

func (c *dataChannel) Opened() <-chan struct{} {
	return c.peer.opened
}

func (c *dataChannel) Events() <-chan realtime.ServerEvent {
	return c.peer.events
}

func (c *dataChannel) Send(_ context.Context, event realtime.ClientEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal client event", slog.String("type", event.Type))
	}
	return c.peer.Write(Message{Type: TypeChannelSend, Event: payload})
}

// Close tells the browser to close the peer connection and stops delivering events.
func (c *dataChannel) Close() error {
	c.peer.detachOnce.Do(func() { close(c.peer.detached) })
	return c.peer.release(Message{Type: TypePeerClose})
}
