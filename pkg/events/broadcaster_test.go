package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesPublishedEvent(t *testing.T) {
	b := NewBroadcaster()
	ch, unsubscribe := b.Subscribe("camp-1")
	defer unsubscribe()

	b.Publish(Event{Type: TypeRoundStarted, CampaignID: "camp-1", EmittedAt: time.Now()})

	select {
	case evt := <-ch:
		assert.Equal(t, TypeRoundStarted, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishIgnoresOtherCampaigns(t *testing.T) {
	b := NewBroadcaster()
	ch, unsubscribe := b.Subscribe("camp-1")
	defer unsubscribe()

	b.Publish(Event{Type: TypeRoundStarted, CampaignID: "camp-2"})

	select {
	case evt := <-ch:
		t.Fatalf("unexpected event delivered: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeRemovesSubscriber(t *testing.T) {
	b := NewBroadcaster()
	_, unsubscribe := b.Subscribe("camp-1")
	require.Equal(t, 1, b.SubscriberCount("camp-1"))
	unsubscribe()
	assert.Equal(t, 0, b.SubscriberCount("camp-1"))
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	b := NewBroadcaster()
	ch, unsubscribe := b.Subscribe("camp-1")
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(Event{Type: TypeRoundCompleted, CampaignID: "camp-1"})
	}
	assert.Len(t, ch, subscriberBuffer)
}
