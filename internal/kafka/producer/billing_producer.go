package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/pkg/logger"
)

const (
	TopicAgreementCreated = "billing.agreement.created"
	TopicAgreementState   = "billing.agreement.state"
	TopicPaymentCreated   = "billing.payment.created"
	TopicPaymentOutcome   = "billing.payment.outcome"
)

// AgreementEvent is the Kafka payload for agreement lifecycle events
type AgreementEvent struct {
	ID          string                 `json:"id"`
	CustomerID  string                 `json:"customer_id"`
	Status      domain.AgreementStatus `json:"status"`
	Amount      string                 `json:"amount"`
	Currency    string                 `json:"currency"`
	NextDueDate string                 `json:"next_due_date"`
	Timestamp   time.Time              `json:"timestamp"`
}

// PaymentEvent is the Kafka payload for ledger record events
type PaymentEvent struct {
	ID          string               `json:"id"`
	CustomerID  string               `json:"customer_id"`
	AgreementID string               `json:"agreement_id"`
	Amount      string               `json:"amount"`
	Currency    string               `json:"currency"`
	Status      domain.PaymentStatus `json:"status"`
	DueDate     string               `json:"due_date"`
	Description string               `json:"description,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

// BillingProducer interface for publishing billing lifecycle events
type BillingProducer interface {
	PublishAgreementCreated(ctx context.Context, agreement domain.Agreement) error
	PublishAgreementState(ctx context.Context, agreement domain.Agreement) error
	PublishPaymentCreated(ctx context.Context, record domain.PaymentRecord) error
	PublishPaymentOutcome(ctx context.Context, record domain.PaymentRecord) error
	Close() error
}

type kafkaBillingProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewKafkaBillingProducer creates a new billing event producer
func NewKafkaBillingProducer(producer sarama.SyncProducer, log *logger.Logger) BillingProducer {
	return &kafkaBillingProducer{
		producer: producer,
		log:      log,
	}
}

// PublishAgreementCreated publishes an agreement creation event
func (p *kafkaBillingProducer) PublishAgreementCreated(ctx context.Context, agreement domain.Agreement) error {
	return p.publishAgreement(TopicAgreementCreated, agreement)
}

// PublishAgreementState publishes an agreement state transition event
func (p *kafkaBillingProducer) PublishAgreementState(ctx context.Context, agreement domain.Agreement) error {
	return p.publishAgreement(TopicAgreementState, agreement)
}

// PublishPaymentCreated publishes a new pending ledger record event
func (p *kafkaBillingProducer) PublishPaymentCreated(ctx context.Context, record domain.PaymentRecord) error {
	return p.publishPayment(TopicPaymentCreated, record)
}

// PublishPaymentOutcome publishes a ledger record settlement event
func (p *kafkaBillingProducer) PublishPaymentOutcome(ctx context.Context, record domain.PaymentRecord) error {
	return p.publishPayment(TopicPaymentOutcome, record)
}

// Close closes the underlying producer
func (p *kafkaBillingProducer) Close() error {
	return p.producer.Close()
}

func (p *kafkaBillingProducer) publishAgreement(topic string, agreement domain.Agreement) error {
	event := AgreementEvent{
		ID:          agreement.ID.String(),
		CustomerID:  agreement.CustomerID.String(),
		Status:      agreement.Status,
		Amount:      agreement.Amount.String(),
		Currency:    agreement.Currency,
		NextDueDate: agreement.NextDueDate.Format("2006-01-02"),
		Timestamp:   time.Now(),
	}
	return p.send(topic, agreement.CustomerID.String(), event)
}

func (p *kafkaBillingProducer) publishPayment(topic string, record domain.PaymentRecord) error {
	event := PaymentEvent{
		ID:          record.ID.String(),
		CustomerID:  record.CustomerID.String(),
		AgreementID: record.AgreementID.String(),
		Amount:      record.Amount.String(),
		Currency:    record.Currency,
		Status:      record.Status,
		DueDate:     record.DueDate.Format("2006-01-02"),
		Description: record.Description,
		Timestamp:   time.Now(),
	}
	return p.send(topic, record.CustomerID.String(), event)
}

// send marshals and publishes an event, keyed by customer id so events
// for one customer stay ordered within a partition
func (p *kafkaBillingProducer) send(topic, key string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal billing event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}

	p.log.Debug("Published event to %s (partition %d, offset %d)", topic, partition, offset)
	return nil
}
