package bus

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := New()
	sub := b.Subscribe("session.")
	defer b.Unsubscribe(sub)

	b.Publish(TopicSessionTextChanged, TextChangedEvent{SessionID: "local", Length: 5})

	select {
	case event := <-sub.Ch():
		if event.Topic != TopicSessionTextChanged {
			t.Fatalf("topic = %q, want %q", event.Topic, TopicSessionTextChanged)
		}
		payload, ok := event.Payload.(TextChangedEvent)
		if !ok || payload.Length != 5 {
			t.Fatalf("unexpected payload %#v", event.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_PrefixMatching(t *testing.T) {
	b := New()

	analysisSub := b.Subscribe("analysis.")
	defer b.Unsubscribe(analysisSub)
	allSub := b.Subscribe("")
	defer b.Unsubscribe(allSub)

	b.Publish(TopicAnalysisStarted, AnalysisStartedEvent{RunID: "r1"})
	b.Publish(TopicSessionBusyChanged, BusyChangedEvent{Busy: true})

	select {
	case event := <-analysisSub.Ch():
		if event.Topic != TopicAnalysisStarted {
			t.Fatalf("topic = %q, want %q", event.Topic, TopicAnalysisStarted)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for analysis event")
	}

	select {
	case event := <-analysisSub.Ch():
		t.Fatalf("unexpected event on analysis subscription: %v", event)
	case <-time.After(50 * time.Millisecond):
	}

	for i := 0; i < 2; i++ {
		select {
		case <-allSub.Ch():
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d on wildcard subscription", i)
		}
	}
}

func TestBus_DropsWhenBufferFull(t *testing.T) {
	b := New()
	sub := b.Subscribe("")
	defer b.Unsubscribe(sub)

	for i := 0; i < defaultBufferSize+10; i++ {
		b.Publish(TopicSessionTextChanged, i)
	}
	if got := len(sub.ch); got != defaultBufferSize {
		t.Fatalf("buffered = %d, want %d", got, defaultBufferSize)
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := New()
	sub := b.Subscribe("")
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.SubscriberCount())
	}
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", b.SubscriberCount())
	}
	if _, ok := <-sub.Ch(); ok {
		t.Fatal("expected closed channel")
	}
}

func TestBus_NilPublishIsNoop(t *testing.T) {
	var b *Bus
	b.Publish(TopicAnalysisStarted, nil)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	b := New()
	sub := b.Subscribe("analysis.")
	defer b.Unsubscribe(sub)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				b.Publish(TopicAnalysisCompleted, AnalysisCompletedEvent{TokenCount: j})
			}
		}()
	}
	wg.Wait()
	if got := len(sub.ch); got != 32 {
		t.Fatalf("received %d events, want 32", got)
	}
}
