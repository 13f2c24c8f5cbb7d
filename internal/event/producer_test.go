package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	pkgkafka "github.com/MichaelKMarwa/recupio/pkg/kafka"
)

type recordingPublisher struct {
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.topics = append(r.topics, topic)
	r.events = append(r.events, e)
	return nil
}

func newTestProducer(pub Publisher) *Producer {
	return NewProducer(pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "recupio.user.registered", TopicUserRegistered)
	assert.Equal(t, "recupio.user.password_reset_requested", TopicPasswordResetRequested)
	assert.Equal(t, "recupio.dropoff.recorded", TopicDropOffRecorded)
	assert.Equal(t, "recupio.invoice.send_requested", TopicInvoiceSendRequested)
}

func TestPublishUserRegistered(t *testing.T) {
	pub := &recordingPublisher{}
	p := newTestProducer(pub)

	user := &domain.User{ID: "u-1", Email: "a@example.com", Name: "Ada", Role: domain.RoleStandard, PasswordHash: "secret-hash"}
	require.NoError(t, p.PublishUserRegistered(context.Background(), user))

	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicUserRegistered, pub.topics[0])
	evt := pub.events[0]
	assert.Equal(t, "u-1", evt.AggregateID)
	assert.Equal(t, AggregateTypeUser, evt.AggregateType)
	assert.Equal(t, Source, evt.Source)
	assert.NotContains(t, string(evt.Data), "secret-hash")

	var data UserRegisteredData
	require.NoError(t, evt.DecodeData(&data))
	assert.Equal(t, "Ada", data.Name)
}

func TestPublishPasswordResetRequested(t *testing.T) {
	pub := &recordingPublisher{}
	p := newTestProducer(pub)
	exp := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	err := p.PublishPasswordResetRequested(context.Background(),
		&domain.User{ID: "u-1", Email: "a@example.com"},
		&domain.PasswordResetToken{ID: "t-1", Token: "tok", ExpiresAt: exp})
	require.NoError(t, err)

	var data PasswordResetRequestedData
	require.NoError(t, pub.events[0].DecodeData(&data))
	assert.Equal(t, "tok", data.Token)
	assert.True(t, exp.Equal(data.ExpiresAt))
}

func TestPublishDropOffRecorded_Guest(t *testing.T) {
	pub := &recordingPublisher{}
	p := newTestProducer(pub)
	guest := "g-internal"

	d := &domain.DropOff{ID: "d-1", GuestSessionID: &guest, FacilityID: "f-1", Items: make([]domain.DropOffItem, 2)}
	require.NoError(t, p.PublishDropOffRecorded(context.Background(), d, &domain.ImpactMetric{CarbonOffset: 4.5}))

	var data DropOffRecordedData
	require.NoError(t, pub.events[0].DecodeData(&data))
	assert.Empty(t, data.UserID)
	assert.Equal(t, "g-internal", data.GuestSessionID)
	assert.Equal(t, 2, data.ItemCount)
}

func TestPublish_Error(t *testing.T) {
	p := newTestProducer(&recordingPublisher{err: errors.New("broker down")})

	err := p.PublishInvoiceSendRequested(context.Background(), &domain.Invoice{ID: "inv-1"}, "a@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), TopicInvoiceSendRequested)
}

func TestPublish_Disabled(t *testing.T) {
	p := newTestProducer(nil)
	assert.NoError(t, p.PublishUserRegistered(context.Background(), &domain.User{ID: "u-1"}))

	var nilProducer *Producer
	assert.NoError(t, nilProducer.PublishUserRegistered(context.Background(), &domain.User{ID: "u-1"}))
}
