package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	pkgkafka "github.com/MichaelKMarwa/recupio/pkg/kafka"
)

// Kafka topics for recupio domain events.
var (
	TopicUserRegistered         = pkgkafka.Topic("user", "registered")
	TopicPasswordResetRequested = pkgkafka.Topic("user", "password_reset_requested")
	TopicDropOffRecorded        = pkgkafka.Topic("dropoff", "recorded")
	TopicInvoiceSendRequested   = pkgkafka.Topic("invoice", "send_requested")
)

// Aggregate types.
const (
	AggregateTypeUser    = "user"
	AggregateTypeDropOff = "dropoff"
	AggregateTypeInvoice = "invoice"
)

// Source identifies events published by this service.
const Source = "recupio-api"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// PasswordResetRequestedData is the payload for a user.password_reset_requested
// event. The notification consumer builds the reset link from Token.
type PasswordResetRequestedData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DropOffRecordedData is the payload for a dropoff.recorded event.
type DropOffRecordedData struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id,omitempty"`
	GuestSessionID    string  `json:"guest_session_id,omitempty"`
	FacilityID        string  `json:"facility_id"`
	ItemCount         int     `json:"item_count"`
	CarbonOffset      float64 `json:"carbon_offset"`
	TreesEquivalent   float64 `json:"trees_equivalent"`
	LandfillReduction float64 `json:"landfill_reduction"`
}

// InvoiceSendRequestedData is the payload for an invoice.send_requested event.
type InvoiceSendRequestedData struct {
	InvoiceID string `json:"invoice_id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	PDFURL    string `json:"pdf_url,omitempty"`
}

// Publisher is the subset of the Kafka producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes recupio domain events. A Producer without a publisher
// drops events, which is how the service runs with Kafka disabled.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer. kafka may be nil.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
	return p.publish(ctx, TopicUserRegistered, user.ID, AggregateTypeUser, data)
}

// PublishPasswordResetRequested publishes a user.password_reset_requested event.
func (p *Producer) PublishPasswordResetRequested(ctx context.Context, user *domain.User, token *domain.PasswordResetToken) error {
	data := PasswordResetRequestedData{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}
	return p.publish(ctx, TopicPasswordResetRequested, user.ID, AggregateTypeUser, data)
}

// PublishDropOffRecorded publishes a dropoff.recorded event.
func (p *Producer) PublishDropOffRecorded(ctx context.Context, d *domain.DropOff, impact *domain.ImpactMetric) error {
	data := DropOffRecordedData{
		ID:                d.ID,
		FacilityID:        d.FacilityID,
		ItemCount:         len(d.Items),
		CarbonOffset:      impact.CarbonOffset,
		TreesEquivalent:   impact.TreesEquivalent,
		LandfillReduction: impact.LandfillReduction,
	}
	if d.UserID != nil {
		data.UserID = *d.UserID
	}
	if d.GuestSessionID != nil {
		data.GuestSessionID = *d.GuestSessionID
	}
	return p.publish(ctx, TopicDropOffRecorded, d.ID, AggregateTypeDropOff, data)
}

// PublishInvoiceSendRequested publishes an invoice.send_requested event.
func (p *Producer) PublishInvoiceSendRequested(ctx context.Context, inv *domain.Invoice, email string) error {
	data := InvoiceSendRequestedData{
		InvoiceID: inv.ID,
		UserID:    inv.UserID,
		Email:     email,
		PDFURL:    inv.PDFURL,
	}
	return p.publish(ctx, TopicInvoiceSendRequested, inv.ID, AggregateTypeInvoice, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
