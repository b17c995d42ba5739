package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/abp0107/whatsapp-clone/internal/logger"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/abp0107/whatsapp-clone/internal/service"
)

const (
	defaultMaxConns = 10000
	sendTimeout     = 10 * time.Second
)

// ErrTooManyConnections — достигнут MAX_WS_CONNECTIONS, соединение закрыто с кодом 1013.
var ErrTooManyConnections = errors.New("ws: connection limit reached")

type Options struct {
	MaxConnections int
	SendBufferSize int
	MaxMessageSize int64
}

// Hub учитывает открытые экраны диалогов и направляет send_message в ChatService.
type Hub struct {
	chat *service.ChatService
	feed *service.Feed

	maxConns       int
	sendBuf        int
	maxMessageSize int64

	mu      sync.Mutex
	clients map[*Client]struct{}
	total   int // включая соединения, которые ещё подписываются
	closed  bool
}

func NewHub(chat *service.ChatService, feed *service.Feed, opts Options) *Hub {
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = defaultMaxConns
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = defaultSendBufSize
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	return &Hub{
		chat:           chat,
		feed:           feed,
		maxConns:       opts.MaxConnections,
		sendBuf:        opts.SendBufferSize,
		maxMessageSize: opts.MaxMessageSize,
		clients:        make(map[*Client]struct{}),
	}
}

// Run блокируется до отмены ctx, затем закрывает все соединения и ждёт их горутины.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.shutdown()
}

func (h *Hub) shutdown() {
	// I/O не под мьютексом.
	h.mu.Lock()
	h.closed = true
	all := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.clients = make(map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
	logger.Infof("ws hub stopped, closed %d connections", len(all))
}

// Count — число открытых соединений.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) reserve() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.total >= h.maxConns {
		return false
	}
	h.total++
	return true
}

func (h *Hub) release() {
	h.mu.Lock()
	h.total--
	h.mu.Unlock()
}

// Serve подписывает уже установленное соединение на диалог viewer ↔ peer и запускает его насосы.
// Первым кадром клиент получает полный снимок диалога.
func (h *Hub) Serve(conn *websocket.Conn, viewerID, peerID string) error {
	if !h.reserve() {
		logger.Warnf("ws connection limit reached (%d), rejecting viewer=%s", h.maxConns, viewerID)
		closeWith(conn, websocket.CloseTryAgainLater, "too many connections")
		return ErrTooManyConnections
	}
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := h.feed.Subscribe(ctx, model.ConversationID(viewerID, peerID))
	if err != nil {
		cancel()
		h.release()
		logger.Errorf("ws subscribe viewer=%s peer=%s: %v", viewerID, peerID, err)
		closeWith(conn, websocket.CloseInternalServerErr, apperr.Message(err))
		return err
	}

	c := newClient(h, conn, sub, viewerID, peerID, h.sendBuf)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.cancel = cancel
		c.Close()
		return context.Canceled
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	c.Start(ctx, cancel)
	return nil
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.total--
	}
	h.mu.Unlock()
	c.Close()
}

// HandleMessage обрабатывает кадр клиента. send_message идёт тем же путём, что POST .../messages.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventSendMessage:
		h.handleSendMessage(ctx, c, msg)
	default:
		ve := &apperr.ValidationError{}
		ve.Add("type", "unknown event type")
		c.enqueue(errorFrame(msg.RequestID, ve))
	}
}

func (h *Hub) handleSendMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleSendMessage", time.Now())()
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	sent, err := h.chat.Send(ctx, service.SendRequest{
		SenderID:     c.viewerID,
		ReceiverID:   c.peerID,
		ReceiverName: msg.ReceiverName,
		Body:         msg.Message,
	})
	switch {
	case errors.Is(err, apperr.ErrEmptyMessage):
		// Пустое сообщение молча отбрасывается.
		return
	case err != nil:
		if apperr.KindOf(err) == apperr.KindInternal {
			logger.Errorf("ws send viewer=%s peer=%s: %v", c.viewerID, c.peerID, err)
		}
		c.enqueue(errorFrame(msg.RequestID, err))
		return
	}
	c.enqueue(OutgoingMessage{Type: EventMessageSent, RequestID: msg.RequestID, Payload: MessageSentPayload{Message: sent}})
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
	conn.Close()
}
