package clients

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"bridge-backend/internal/config"
	"bridge-backend/internal/metrics"

	"github.com/nats-io/nats.go"
)

// NATS subjects for bridge lifecycle events.
const (
	SubjectMintRecorded      = "bridge.mint.recorded"
	SubjectWithdrawFinalized = "bridge.withdraw.finalized"
)

// MintEventMessage is published after every successful mint.
type MintEventMessage struct {
	BlockIndex string    `json:"block_index"`
	TxDigest   string    `json:"tx_digest"`
	Amount     string    `json:"amount"`
	Recipient  string    `json:"recipient"`
	Timestamp  time.Time `json:"timestamp"`
}

// WithdrawEventMessage is published after every fully submitted withdrawal.
type WithdrawEventMessage struct {
	BlockIndex string    `json:"block_index"`
	TxDigest   string    `json:"tx_digest"`
	Amount     string    `json:"amount"`
	Caller     string    `json:"caller"`
	Timestamp  time.Time `json:"timestamp"`
}

// NATSClient publishes bridge lifecycle events. It is optional: when NATS is
// disabled the services run without it and only the push/metrics paths see
// the events.
type NATSClient struct {
	conn *nats.Conn
}

// NewNATSClient connects to the NATS server.
func NewNATSClient(cfg config.NATSConfig) (*NATSClient, error) {
	connectTimeout := 10 * time.Second
	if cfg.Timeout > 0 {
		connectTimeout = time.Duration(cfg.Timeout) * time.Second
	}

	reconnectWait := 5 * time.Second
	if cfg.ReconnectWait > 0 {
		reconnectWait = time.Duration(cfg.ReconnectWait) * time.Second
	}

	maxReconnects := -1
	if cfg.MaxReconnects > 0 {
		maxReconnects = cfg.MaxReconnects
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	metrics.NATSConnectionStatus.Set(1)
	log.Printf("✅ Connected to NATS at %s", cfg.URL)
	return &NATSClient{conn: conn}, nil
}

// PublishMintEvent publishes a mint notification.
func (c *NATSClient) PublishMintEvent(msg *MintEventMessage) error {
	return c.publish(SubjectMintRecorded, msg)
}

// PublishWithdrawEvent publishes a withdrawal notification.
func (c *NATSClient) PublishWithdrawEvent(msg *WithdrawEventMessage) error {
	return c.publish(SubjectWithdrawFinalized, msg)
}

func (c *NATSClient) publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	metrics.NATSMessagesPublished.WithLabelValues(subject).Inc()
	return nil
}

// Close drains the connection.
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
