package service

import (
	"context"
	"net/http"
	"time"

	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"
	"communilearn_backend/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

const MessageViewed = "VIEWED"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage swagger:model WSMessage
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ServeStream 把当前用户在任意会话中的标记已读事件推送到 websocket，连接断开后返回
func (s *RecentService) ServeStream(w http.ResponseWriter, r *http.Request, actor *util.Claims) error {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := s.Viewed.Subscribe(ctx, actor.Email)
	if err != nil {
		return errors.Wrap(err, "subscribe viewed events")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写回错误响应
		logger.Log.Warn("WebSocket upgrade failed", zap.Error(err), zap.String("email", actor.Email))
		return nil
	}
	defer conn.Close()

	go readPump(conn, cancel)
	writePump(ctx, conn, events)
	return nil
}

// readPump 只处理 pong 与关闭，客户端消息忽略
func readPump(conn *websocket.Conn, done context.CancelFunc) {
	defer done()
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err))
			}
			return
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, events <-chan repository.ViewedEvent) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(WSMessage{Type: MessageViewed, Data: ev}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
