package event

import (
	"context"
	"errors"
	"testing"

	"github.com/lgcert/indigene-certificate/logger"
	"github.com/stretchr/testify/assert"
)

func TestSyncPublisherFansOut(t *testing.T) {
	var seen []string
	first := HandlerFunc(func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+string(e.Type))
		return errors.New("smtp down")
	})
	second := HandlerFunc(func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+string(e.Type))
		return nil
	})

	p := NewSyncPublisher(logger.Nop(), first, second)
	assert.NoError(t, p.Publish(context.Background(), New(PaymentVerified, "application", 7)))
	assert.Equal(t, []string{"first:payment.verified", "second:payment.verified"}, seen)
}

func TestNewStampsEvent(t *testing.T) {
	e := New(CertificateIssued, "digitization", 3)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.OccurredAt.IsZero())
	assert.Equal(t, uint(3), e.RecordID)

	r := &Recorder{}
	_ = r.Publish(context.Background(), e)
	assert.Equal(t, []Type{CertificateIssued}, r.Types())
}
