// internal/simulator/publisher.go
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/javajoker/fifo-inventory/internal/models"
	"github.com/javajoker/fifo-inventory/internal/observability"
	"github.com/javajoker/fifo-inventory/internal/utils"
)

// Publisher delivers events to the inventory service.
type Publisher interface {
	Publish(ctx context.Context, raw models.RawEvent) error
	Close() error
}

// RejectedError is an event the service refused. Publishing can go on.
type RejectedError struct {
	Status  int
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("event rejected (%d %s): %s", e.Status, e.Code, e.Message)
}

// HTTPPublisher posts events to /v1/events.
type HTTPPublisher struct {
	baseURL string
	client  *http.Client
	token   string
}

func NewHTTPPublisher(baseURL string, timeout time.Duration) *HTTPPublisher {
	return &HTTPPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Login exchanges operator credentials for a bearer token used on every
// later request.
func (p *HTTPPublisher) Login(ctx context.Context, username, password string) error {
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := p.post(ctx, "/v1/auth/login", map[string]string{"username": username, "password": password}, &data); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	p.token = data.AccessToken
	return nil
}

func (p *HTTPPublisher) Publish(ctx context.Context, raw models.RawEvent) error {
	return p.post(ctx, "/v1/events", raw, nil)
}

func (p *HTTPPublisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *HTTPPublisher) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope struct {
		utils.APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if !envelope.Success {
		rejected := &RejectedError{Status: resp.StatusCode}
		if envelope.Error != nil {
			rejected.Code = envelope.Error.Code
			rejected.Message = envelope.Error.Message
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, rejected.Message)
		}
		return rejected
	}

	if out != nil {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

// KafkaPublisher writes events to the inventory topic keyed by product id,
// so every event of a product lands on one partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, raw models.RawEvent) error {
	value, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:     []byte(raw.ProductID),
		Value:   value,
		Headers: observability.InjectKafkaHeaders(ctx, nil),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
