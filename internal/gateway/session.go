package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"github.com/SampleBias/Open-Clanker/pkg/safego"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// errCodeMessage WS 协议层错误码
const errCodeMessage = "MESSAGE_ERROR"

// Session 单个 WebSocket 会话。
// 读取在独立协程中进行，所有写入都发生在 Run 的事件循环里，
// 因此写 conn 不需要额外加锁。
type Session struct {
	conn      *websocket.Conn
	state     *State
	processor *Processor
	connState *ConnectionState
	logger    *zap.Logger
}

// NewSession 创建会话
func NewSession(conn *websocket.Conn, state *State, processor *Processor, logger *zap.Logger) *Session {
	connState := NewConnectionState(conn.RemoteAddr().String())
	return &Session{
		conn:      conn,
		state:     state,
		processor: processor,
		connState: connState,
		logger: logger.With(
			zap.String("connection_id", connState.ID.String()),
		),
	}
}

// Run drives the session until the client disconnects, a broadcast write
// fails, or ctx is cancelled. The connection is always deregistered on exit.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	id := s.connState.ID

	s.logger.Info("WebSocket connection established")
	s.state.AddConnection(s.connState)
	broadcasts := s.state.Broadcaster().Subscribe(id)

	defer func() {
		cancel()
		s.state.Broadcaster().Unsubscribe(id)
		s.state.RemoveConnection(id)
		_ = s.conn.Close()
		s.logger.Info("WebSocket connection closed")
	}()

	welcome := NewHealth("connected", s.state.UptimeSeconds())
	if err := s.write(welcome); err != nil {
		s.logger.Error("Failed to send welcome message", zap.Error(err))
		return
	}

	// Read pump. Closing the connection in the deferred cleanup unblocks
	// ReadMessage, so the goroutine never outlives the session.
	frames := make(chan []byte)
	safego.GoCtx(ctx, s.logger, "ws-read", func(ctx context.Context) {
		defer close(frames)
		for {
			msgType, data, err := s.conn.ReadMessage()
			if err != nil {
				s.logger.Debug("WebSocket receive ended", zap.Error(err))
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutdown signal received, closing connection")
			return

		case data, ok := <-frames:
			if !ok {
				return
			}
			s.handleClientFrame(ctx, data)

		case env := <-broadcasts:
			if !ShouldDeliver(env, s.connState) {
				continue
			}
			if err := s.write(env); err != nil {
				s.logger.Error("Failed to send broadcast envelope", zap.Error(err))
				return
			}
		}
	}
}

// handleClientFrame decodes one client frame and reacts to it.
// Malformed frames produce an in-band error, the session stays open.
func (s *Session) handleClientFrame(ctx context.Context, data []byte) {
	var env ClientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.writeError(errCodeMessage, err.Error())
		return
	}

	switch env.Type {
	case ClientPing:
		var d PingData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			s.writeError(errCodeMessage, err.Error())
			return
		}
		s.send(NewPong(d.Timestamp))

	case ClientSubscribe:
		var d SubscribeData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			s.writeError(errCodeMessage, err.Error())
			return
		}
		s.state.Subscribe(s.connState.ID, d.ChannelID, d.ChannelType)
		s.logger.Debug("Subscribed to channel",
			zap.String("channel_id", d.ChannelID),
			zap.String("channel_type", string(d.ChannelType)),
		)
		s.send(NewSubscribed(d.ChannelID, s.connState.ID))

	case ClientUnsubscribe:
		var d UnsubscribeData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			s.writeError(errCodeMessage, err.Error())
			return
		}
		s.state.Unsubscribe(s.connState.ID, d.ChannelID)
		s.logger.Debug("Unsubscribed from channel", zap.String("channel_id", d.ChannelID))
		s.send(NewUnsubscribed(d.ChannelID))

	case ClientSendMessage:
		var d SendMessageData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			s.writeError(errCodeMessage, err.Error())
			return
		}
		s.handleSendMessage(ctx, d)

	default:
		s.writeError(errCodeMessage, fmt.Sprintf("unknown message type %q", env.Type))
	}
}

// handleSendMessage runs a client-submitted message through the processor.
// The counter moves before processing so failed attempts are counted too.
func (s *Session) handleSendMessage(ctx context.Context, d SendMessageData) {
	s.logger.Debug("Client message for channel",
		zap.String("channel_id", d.ChannelID),
		zap.String("channel_type", string(d.ChannelType)),
	)

	s.state.IncrementMessageCount()

	incoming := entity.NewMessage(d.ChannelType, d.ChannelID, "user", d.Message)
	reply, err := s.processor.Process(ctx, incoming)
	s.state.Monitor().RecordMessage(err == nil)
	if err != nil {
		errMsg := err.Error()
		s.send(NewSendResponse(false, nil, &errMsg, nil))
		return
	}
	s.send(NewSendResponse(true, &reply.ID, nil, &reply.Text))
}

// send writes an envelope, logging instead of tearing the session down on
// failure. A dead socket surfaces through the read pump shortly after.
func (s *Session) send(env ServerEnvelope) {
	if err := s.write(env); err != nil {
		s.logger.Warn("Failed to write envelope",
			zap.String("type", env.Type),
			zap.Error(err),
		)
	}
}

func (s *Session) writeError(code, message string) {
	s.logger.Error("Client frame error",
		zap.String("code", code),
		zap.String("message", message),
	)
	s.send(NewError(code, message))
}

func (s *Session) write(env ServerEnvelope) error {
	return s.conn.WriteJSON(env)
}
