package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mamadbah2/dealroom/internal/domain/models"
	"github.com/mamadbah2/dealroom/internal/stream"
)

const writeWait = 10 * time.Second

// EventSubscriber attaches to the live events of a deal.
type EventSubscriber interface {
	Subscribe(ctx context.Context, dealID string) (stream.Stream, error)
}

// SnapshotReader loads the current state of a deal room.
type SnapshotReader interface {
	Snapshot(ctx context.Context, dealID string) (*models.DealSnapshot, error)
}

type streamFrame struct {
	Type     string               `json:"type"`
	Snapshot *models.DealSnapshot `json:"snapshot,omitempty"`
	Event    *models.DealEvent    `json:"event,omitempty"`
}

// StreamHandler serves deal rooms over WebSocket: a snapshot first, then
// every newer event.
type StreamHandler struct {
	snapshots  SnapshotReader
	subscriber EventSubscriber
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewStreamHandler(snapshots SnapshotReader, subscriber EventSubscriber, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{
		snapshots:  snapshots,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Subscribe upgrades the connection and streams the deal room.
func (h *StreamHandler) Subscribe(c *gin.Context) {
	dealID := c.Param("id")
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Attach before reading the snapshot so that no write falls in between.
	events, err := h.subscriber.Subscribe(ctx, dealID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	defer events.Close()

	snapshot, err := h.snapshots.Snapshot(ctx, dealID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.String("deal_id", dealID), zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("deal_id", dealID))
	logger.Debug("subscriber connected")

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	dedupe := stream.NewDedupe()
	dedupe.Seed(snapshot)
	if err := writeFrame(conn, streamFrame{Type: "snapshot", Snapshot: snapshot}); err != nil {
		logger.Debug("failed to send snapshot", zap.Error(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug("subscriber disconnected")
			return
		case event, ok := <-events.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
					time.Now().Add(writeWait))
				return
			}
			if !dedupe.Allow(event) {
				continue
			}
			if err := writeFrame(conn, streamFrame{Type: string(event.Type), Event: &event}); err != nil {
				logger.Debug("failed to send event", zap.Error(err))
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, frame streamFrame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}
