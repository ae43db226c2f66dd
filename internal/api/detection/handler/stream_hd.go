package detectionHandler

import (
	"ProjectDetect/internal/api/detection"
	"ProjectDetect/internal/middleware"
	contextPkg "ProjectDetect/pkg/context"
	"ProjectDetect/pkg/handlerUtil"
	"ProjectDetect/pkg/log"
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	streamReadTimeout  = 60 * time.Second
	streamWriteTimeout = 10 * time.Second
)

// handleStream runs detection on every binary frame a client sends and
// answers each with one JSON message. Failed frames get an error reply and
// the stream carries on.
func (h *DetectionHandler) handleStream(c *websocket.Conn) {
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	ctx := contextPkg.WithRequestID(context.Background(), requestID)
	entry := log.WithRequestID(ctx)

	entry.Info("Detection stream client connected")
	defer entry.Info("Detection stream client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			entry.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			entry.Errorf("Error setting read deadline: %v", err)
			return
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				entry.Errorf("Detection stream error: %v", err)
			}
			return
		}

		if messageType != websocket.BinaryMessage {
			entry.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		reply, err := h.detectionService.DetectFrame(ctx, message)
		if err != nil {
			entry.Warnf("Error processing frame: %v", err)
			reply = &detection.FrameResponse{
				Detections: []detection.DetectionItem{},
				Error:      handlerUtil.FlashMessage(err),
			}
		}

		if err := c.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			entry.Errorf("Error setting write deadline: %v", err)
			return
		}

		if err := c.WriteJSON(reply); err != nil {
			entry.Errorf("Error writing JSON response: %v", err)
			return
		}
	}
}
