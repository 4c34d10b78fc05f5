package gateway

import (
	"context"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"go.uber.org/zap"
)

// ingressBuffer 通道消息队列深度，写满后监听协程阻塞形成背压
const ingressBuffer = 256

// Dispatcher drains the shared ingress queue in arrival order. Each
// message is mirrored to WebSocket observers, processed through the
// agent pipeline, and the reply goes back out on the originating
// platform.
type Dispatcher struct {
	state     *State
	processor *Processor
	ingress   chan *entity.Message
	logger    *zap.Logger
}

// NewDispatcher 创建消息分发器
func NewDispatcher(state *State, processor *Processor, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		state:     state,
		processor: processor,
		ingress:   make(chan *entity.Message, ingressBuffer),
		logger:    logger,
	}
}

// Ingress returns the queue that channel listeners feed into.
func (d *Dispatcher) Ingress() chan<- *entity.Message {
	return d.ingress
}

// Run processes queued messages until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopped")
			return
		case incoming := <-d.ingress:
			d.dispatch(ctx, incoming)
		}
	}
}

// dispatch handles a single platform message end to end.
func (d *Dispatcher) dispatch(ctx context.Context, incoming *entity.Message) {
	d.state.Broadcaster().BroadcastMessage(incoming)

	reply, err := d.processor.Process(ctx, incoming)
	d.state.Monitor().RecordMessage(err == nil)
	if err != nil {
		d.logger.Error("Processor error",
			zap.String("channel_type", string(incoming.ChannelType)),
			zap.String("channel_id", incoming.ChannelID),
			zap.Error(err),
		)
		return
	}

	ch := d.state.ChannelFor(incoming.ChannelType)
	if ch == nil {
		d.logger.Warn("No channel for type, dropping reply",
			zap.String("channel_type", string(incoming.ChannelType)),
		)
	} else if err := ch.Send(ctx, reply); err != nil {
		d.logger.Error("Failed to send reply",
			zap.String("channel_type", string(incoming.ChannelType)),
			zap.Error(err),
		)
	}

	d.state.Broadcaster().BroadcastMessage(reply)
}
