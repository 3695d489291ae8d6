package notify

import (
	"context"
	"testing"

	"github.com/sponsorlink/dealcore/internal/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	stream string
	event  events.Event
	calls  int
}

func (p *recordingPublisher) Publish(ctx context.Context, stream string, event events.Event) error {
	p.stream = stream
	p.event = event
	p.calls++
	return nil
}

func TestDealStatusChangedPublishesToDealStream(t *testing.T) {
	pub := &recordingPublisher{}
	d := New(pub, zap.NewNop())
	dealID := uuid.New()

	d.DealStatusChanged(context.Background(), dealID, "funded", "creative_pending", "escrow_funded")

	if pub.calls != 1 {
		t.Fatalf("calls = %d, want 1", pub.calls)
	}
	if pub.stream != DealStream {
		t.Errorf("stream = %q, want %q", pub.stream, DealStream)
	}
	if pub.event.Type != events.EventDealStatusChanged {
		t.Errorf("event type = %q, want %q", pub.event.Type, events.EventDealStatusChanged)
	}
	if pub.event.Payload["deal_id"] != dealID.String() {
		t.Errorf("payload deal_id = %v, want %v", pub.event.Payload["deal_id"], dealID.String())
	}
	if pub.event.Payload["old_status"] != "funded" || pub.event.Payload["new_status"] != "creative_pending" {
		t.Errorf("unexpected status fields in payload: %+v", pub.event.Payload)
	}
}

func TestNilDispatcherIsNoOp(t *testing.T) {
	var d *Dispatcher
	// Must not panic even though the dispatcher was never constructed.
	d.DealStatusChanged(context.Background(), uuid.New(), "a", "b", "c")
}

func TestDispatcherWithNilPublisherIsNoOp(t *testing.T) {
	d := New(nil, zap.NewNop())
	d.DealStatusChanged(context.Background(), uuid.New(), "a", "b", "c")
}
