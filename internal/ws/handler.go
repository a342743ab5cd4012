// Package ws relays chat turns over a WebSocket connection. It carries the
// same turn lifecycle as the SSE endpoint with JSON frames, and a single
// connection may run several turns one after another.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"novel-forge/backend/internal/models"
	"novel-forge/backend/internal/stream"
	apperrors "novel-forge/backend/pkg/errors"
	"novel-forge/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Queued chat requests per connection before new ones are rejected
	maxQueuedTurns = 4
)

// Frame types.
const (
	FrameChat  = "chat"
	FramePing  = "ping"
	FramePong  = "pong"
	FrameMeta  = "meta"
	FrameToken = "token"
	FrameDone  = "done"
	FrameError = "error"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Frame is the envelope of every message in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ErrorContent is the payload of an error frame.
type ErrorContent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DoneContent is the payload of a done frame.
type DoneContent struct {
	ConversationID *uint `json:"conversationId,omitempty"`
}

// ChatStreamer starts streamed chat turns.
type ChatStreamer interface {
	StreamChat(ctx context.Context, req models.ChatRequest) (*stream.Channel, error)
}

type Handler struct {
	chat ChatStreamer
	log  *logger.Logger
}

func NewHandler(chat ChatStreamer, log *logger.Logger) *Handler {
	return &Handler{chat: chat, log: log}
}

type client struct {
	id    string
	conn  *websocket.Conn
	send  chan []byte
	turns chan models.ChatRequest
	done  chan struct{}
	once  sync.Once
	log   *logger.Logger
}

// ServeWS upgrades the request and serves the connection until the peer
// goes away.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.LogError(err, "WebSocket upgrade failed")
		return
	}

	cl := &client{
		id:    uuid.New().String(),
		conn:  conn,
		send:  make(chan []byte, 16),
		turns: make(chan models.ChatRequest, maxQueuedTurns),
		done:  make(chan struct{}),
	}
	cl.log = logger.FromContext(c).With("client_id", cl.id)
	cl.log.Info("WebSocket client connected")

	ctx := c.Request.Context()
	go cl.writePump()
	go h.turnLoop(ctx, cl)
	cl.readPump()

	cl.log.Info("WebSocket client disconnected")
}

func (cl *client) close() {
	cl.once.Do(func() {
		close(cl.done)
		cl.conn.Close()
	})
}

func (cl *client) readPump() {
	defer cl.close()

	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.log.Warn("WebSocket read failed", "error", err.Error())
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			cl.sendError(apperrors.CodeInvalidRequest, "Invalid frame")
			continue
		}

		switch frame.Type {
		case FramePing:
			cl.sendFrame(FramePong, nil)
		case FrameChat:
			var req models.ChatRequest
			if err := json.Unmarshal(frame.Content, &req); err != nil {
				cl.sendError(apperrors.CodeInvalidRequest, "Invalid chat request")
				continue
			}
			select {
			case cl.turns <- req:
			default:
				cl.sendError(apperrors.CodeBusyConversation, "Too many pending chat requests")
			}
		default:
			cl.sendError(apperrors.CodeInvalidRequest, "Unknown frame type: "+frame.Type)
		}
	}
}

func (cl *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.close()
	}()

	for {
		select {
		case msg := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cl.done:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// sendFrame queues a frame, blocking while the writer is behind. It reports
// false once the connection is gone.
func (cl *client) sendFrame(typ string, content any) bool {
	frame := Frame{Type: typ}
	if content != nil {
		raw, err := json.Marshal(content)
		if err != nil {
			cl.log.LogError(err, "Failed to encode frame", "type", typ)
			return true
		}
		frame.Content = raw
	}

	msg, err := json.Marshal(frame)
	if err != nil {
		cl.log.LogError(err, "Failed to encode frame", "type", typ)
		return true
	}

	select {
	case cl.send <- msg:
		return true
	case <-cl.done:
		return false
	}
}

func (cl *client) sendError(code, message string) bool {
	return cl.sendFrame(FrameError, ErrorContent{Code: code, Message: message})
}

func (h *Handler) turnLoop(ctx context.Context, cl *client) {
	for {
		select {
		case req := <-cl.turns:
			if !h.runTurn(ctx, cl, req) {
				return
			}
		case <-cl.done:
			return
		}
	}
}

// runTurn relays one chat turn. It returns false when the connection went
// away mid-turn.
func (h *Handler) runTurn(ctx context.Context, cl *client, req models.ChatRequest) bool {
	ch, err := h.chat.StreamChat(ctx, req)
	if err != nil {
		return cl.sendError(apperrors.GetErrorCode(err), apperrors.GetErrorMessage(err))
	}

	conversationID := req.ConversationID
	for ev := range ch.Events() {
		var ok bool
		switch ev.Name {
		case stream.EventMeta:
			var meta stream.Meta
			if err := json.Unmarshal([]byte(ev.Data), &meta); err == nil {
				id := meta.ConversationID
				conversationID = &id
			}
			ok = cl.sendFrame(FrameMeta, json.RawMessage(ev.Data))
		default:
			ok = cl.sendFrame(FrameToken, ev.Data)
		}
		if !ok {
			ch.Abort(stream.ErrConsumerGone)
			return false
		}
	}

	if err := ch.Err(); err != nil {
		cl.log.Warn("Chat turn failed", "error_code", apperrors.GetErrorCode(err), "error", err.Error())
		return cl.sendError(apperrors.GetErrorCode(err), apperrors.GetErrorMessage(err))
	}
	return cl.sendFrame(FrameDone, DoneContent{ConversationID: conversationID})
}
