package pubsub

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/tendermint/tmquery/libs/pubsub/query"
)

var (
	// ErrUnsubscribed is returned by Next when the client has unsubscribed.
	ErrUnsubscribed = errors.New("subscription removed by client")

	// ErrTerminated is returned by Next when the server terminated the
	// subscription because the subscriber did not keep up. A server stop is
	// reported as ErrServerStopped instead.
	ErrTerminated = errors.New("subscription terminated")
)

// A Subscription represents a client subscription for a particular query.
// Messages are buffered up to the subscription's limit; a subscriber that
// lets the buffer fill is terminated.
type Subscription struct {
	id    string
	limit int

	mtx    sync.Mutex
	queue  []Message
	err    error
	signal chan struct{} // closed and replaced whenever the state changes
}

func newSubscription(limit int) *Subscription {
	return &Subscription{
		id:     uuid.NewString(),
		limit:  limit,
		signal: make(chan struct{}),
	}
}

// ID returns the unique identifier of the subscription.
func (s *Subscription) ID() string { return s.id }

// Next blocks until a message is available, ctx ends, or the subscription
// is closed. Buffered messages are delivered before a close is reported.
// When the subscription is closed, Next reports ErrUnsubscribed,
// ErrTerminated, ErrServerStopped, or another error explaining why.
func (s *Subscription) Next(ctx context.Context) (Message, error) {
	for {
		s.mtx.Lock()
		if len(s.queue) != 0 {
			msg := s.queue[0]
			s.queue[0] = Message{}
			s.queue = s.queue[1:]
			s.mtx.Unlock()
			return msg, nil
		}
		if s.err != nil {
			err := s.err
			s.mtx.Unlock()
			return Message{}, err
		}
		wait := s.signal
		s.mtx.Unlock()

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-wait:
		}
	}
}

// publish adds msg to the queue. It reports false if the queue is full or
// the subscription is closed.
func (s *Subscription) publish(msg Message) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.err != nil || len(s.queue) >= s.limit {
		return false
	}
	s.queue = append(s.queue, msg)
	s.notify()
	return true
}

// stop closes the subscription with err. Messages already queued remain
// available to Next.
func (s *Subscription) stop(err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.err != nil {
		return
	}
	s.err = err
	s.notify()
}

// notify wakes all waiters. The caller must hold s.mtx.
func (s *Subscription) notify() {
	close(s.signal)
	s.signal = make(chan struct{})
}

// Message glues data and the record it was matched on together.
type Message struct {
	subID  string
	data   interface{}
	record query.Record
}

// SubscriptionID returns the unique identifier for the subscription
// that produced this message.
func (msg Message) SubscriptionID() string { return msg.subID }

// Data returns the original data published.
func (msg Message) Data() interface{} { return msg.data }

// Record returns the record the subscription's query matched.
func (msg Message) Record() query.Record { return msg.record }
