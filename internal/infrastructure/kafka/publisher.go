package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	// SASL is enabled when Username is set. Mechanism is PLAIN (default), SCRAM-SHA-256 or SCRAM-SHA-512.
	Username   string
	Password   string
	Mechanism  string
	TLSEnabled bool
}

// KafkaPublisher writes settlement events as JSON. Events of one trade share a partition key,
// so consumers see them in commit order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	if transport != nil {
		writer.Transport = transport
	}
	return &KafkaPublisher{writer: writer}, nil
}

// newTransport returns nil when the brokers need neither TLS nor SASL.
func newTransport(cfg KafkaConfig) (*kafka.Transport, error) {
	if cfg.Username == "" && !cfg.TLSEnabled {
		return nil, nil
	}

	transport := &kafka.Transport{}
	if cfg.TLSEnabled {
		transport.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.Username != "" {
		mechanism, err := saslMechanism(cfg)
		if err != nil {
			return nil, err
		}
		transport.SASL = mechanism
	}
	return transport, nil
}

func saslMechanism(cfg KafkaConfig) (sasl.Mechanism, error) {
	switch strings.ToUpper(cfg.Mechanism) {
	case "", "PLAIN":
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported sasl mechanism %q", cfg.Mechanism)
	}
}

func (k *KafkaPublisher) PublishTradeEvent(ctx context.Context, event domain.TradeEvent) error {
	msg, err := encodeTradeEvent(event)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, msg)
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

func encodeTradeEvent(event domain.TradeEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(eventKey(event)),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

func eventKey(event domain.TradeEvent) string {
	if event.TradeID != 0 {
		return "trade-" + strconv.FormatInt(event.TradeID, 10)
	}
	return "proposal-" + event.ProposalID
}
