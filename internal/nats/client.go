package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/saviobatista/uav-deconfliction/internal/log"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

const (
	StreamName      = "DECONFLICTION"
	SubjectRequests = "deconfliction.requests"
	SubjectResults  = "deconfliction.results"

	// CheckerQueue load-balances requests across checker workers
	CheckerQueue = "checkers"

	drainWait = 5 * time.Second
)

// jetStream is the part of nats.JetStreamContext the client uses
type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
	Subscribe(subj string, cb nats.MsgHandler, opts ...nats.SubOpt) (*nats.Subscription, error)
	QueueSubscribe(subj, queue string, cb nats.MsgHandler, opts ...nats.SubOpt) (*nats.Subscription, error)
}

// Client represents a NATS client
type Client struct {
	conn   *nats.Conn
	js     jetStream
	logger *log.Logger
}

// New creates a new NATS client and makes sure the stream exists
func New(url string, logger *log.Logger) (*Client, error) {
	nc, err := nats.Connect(url, nats.Name("uav-deconfliction"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{SubjectRequests, SubjectResults},
		Storage:    nats.MemoryStorage,
		MaxAge:     24 * time.Hour,
		Duplicates: 2 * time.Minute,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &Client{conn: nc, js: js, logger: logger}, nil
}

// NewWithJetStream creates a client around an existing JetStream context (useful for testing)
func NewWithJetStream(js jetStream, logger *log.Logger) *Client {
	return &Client{js: js, logger: logger}
}

func (c *Client) publish(subject string, v any, opts ...nats.PubOpt) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if _, err := c.js.Publish(subject, data, opts...); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishCheckRequest queues a check request for the checker workers. The
// request id doubles as the JetStream message id so that retried publishes
// are de-duplicated.
func (c *Client) PublishCheckRequest(msg *types.CheckRequestMessage) error {
	if msg == nil {
		return fmt.Errorf("nil check request")
	}
	var opts []nats.PubOpt
	if msg.RequestID != "" {
		opts = append(opts, nats.MsgId(msg.RequestID))
	}
	return c.publish(SubjectRequests, msg, opts...)
}

// SubscribeCheckRequests delivers each request to exactly one subscriber of
// the checker queue group
func (c *Client) SubscribeCheckRequests(handler func(*types.CheckRequestMessage)) (*nats.Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("nil handler")
	}
	sub, err := c.js.QueueSubscribe(SubjectRequests, CheckerQueue, func(msg *nats.Msg) {
		var req types.CheckRequestMessage
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.logger.Warn("Error unmarshaling check request", "error", err)
			return
		}
		handler(&req)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return sub, nil
}

// PublishCheckReport publishes the outcome of a check
func (c *Client) PublishCheckReport(report *types.CheckReport) error {
	if report == nil {
		return fmt.Errorf("nil check report")
	}
	return c.publish(SubjectResults, report, nats.MsgId(report.CheckID))
}

// SubscribeCheckReports subscribes to check reports
func (c *Client) SubscribeCheckReports(handler func(*types.CheckReport)) (*nats.Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("nil handler")
	}
	sub, err := c.js.Subscribe(SubjectResults, func(msg *nats.Msg) {
		var report types.CheckReport
		if err := json.Unmarshal(msg.Data, &report); err != nil {
			c.logger.Warn("Error unmarshaling check report", "error", err)
			return
		}
		handler(&report)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return sub, nil
}

// Close drains the NATS connection, letting subscription callbacks finish,
// and waits up to drainWait for it to close
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return
	}
	deadline := time.Now().Add(drainWait)
	for !c.conn.IsClosed() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !c.conn.IsClosed() {
		c.logger.Warn("NATS drain timed out")
		c.conn.Close()
	}
}
