package websocketPkg

import (
	"ProjectDetect/internal/entity"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// IInferenceClient talks to an external inference service that accepts an
// encoded image as one binary message and answers with one JSON message.
type IInferenceClient interface {
	Detect(ctx context.Context, frame []byte) (entity.DetectionList, error)
	IsConnected() bool
	Reconnect(ctx context.Context) error
	Close()
}

type inferenceReply struct {
	Detections entity.DetectionList `json:"detections"`
	Error      string               `json:"error,omitempty"`
}

type inferenceClient struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	log          *logrus.Logger
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	done         chan struct{}
}

// Dial connects to the inference service and keeps the connection alive
// with pings until Close.
func Dial(ctx context.Context, url string, log *logrus.Logger) (IInferenceClient, error) {
	client := &inferenceClient{
		url:          url,
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  30 * time.Second,
		writeTimeout: 5 * time.Second,
		done:         make(chan struct{}),
	}

	if err := client.Reconnect(ctx); err != nil {
		return nil, err
	}

	go client.keepAlive()

	return client, nil
}

func (c *inferenceClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *inferenceClient) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	c.log.WithFields(logrus.Fields{
		"url": c.url,
	}).Info("Connecting to inference service")

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	return nil
}

func (c *inferenceClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
	default:
		close(c.done)
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *inferenceClient) keepAlive() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		conn := c.conn
		if conn == nil {
			c.mu.Unlock()
			continue
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping to inference service failed, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
		}
		c.mu.Unlock()
	}
}

// Detect sends one frame and waits for its reply. A broken connection is
// redialed once before giving up.
func (c *inferenceClient) Detect(ctx context.Context, frame []byte) (entity.DetectionList, error) {
	dets, err := c.roundTrip(frame)
	if err == nil || !errors.Is(err, errConnLost) {
		return dets, err
	}

	if err := c.Reconnect(ctx); err != nil {
		return nil, fmt.Errorf("cannot reach inference service: %w", err)
	}
	return c.roundTrip(frame)
}

var errConnLost = errors.New("inference connection lost")

func (c *inferenceClient) roundTrip(frame []byte) (entity.DetectionList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn := c.conn
	if conn == nil {
		return nil, errConnLost
	}

	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.conn = nil
		conn.Close()
		return nil, fmt.Errorf("%w: send frame: %v", errConnLost, err)
	}

	conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.conn = nil
		conn.Close()
		return nil, fmt.Errorf("%w: read reply: %v", errConnLost, err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	var reply inferenceReply
	if err := json.Unmarshal(message, &reply); err != nil {
		return nil, fmt.Errorf("error unmarshaling inference reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("inference service: %s", reply.Error)
	}

	return reply.Detections, nil
}
