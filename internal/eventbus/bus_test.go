package eventbus

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Topic: TopicTaskCompleted, Data: TaskEvent{Task: "demo"}})

	select {
	case e := <-ch:
		if e.Topic != TopicTaskCompleted {
			t.Fatalf("topic = %s, want %s", e.Topic, TopicTaskCompleted)
		}
		if e.Time.IsZero() {
			t.Fatal("publish should stamp event time")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.Publish(Event{Topic: TopicTaskStarted})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestUnsubscribeIsIdempotentAndSafeDuringPublish(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)

	go func() {
		for i := 0; i < 50; i++ {
			b.Publish(Event{Topic: TopicTaskFailed})
		}
	}()
	unsub()
	unsub()
}
