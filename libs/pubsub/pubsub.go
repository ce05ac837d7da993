// Package pubsub implements an asynchronous publish-subscribe server that
// delivers records to the clients whose query matches them.
//
// Clients subscribe with a query (see the query subpackage) and an optional
// list of positional arguments for it. Each published record is evaluated
// against every subscription's query; matching records are queued on the
// subscription and read back with Next.
//
// Example:
//
//	q, err := query.New(`level == "error" AND service == $0`)
//	if err != nil {
//	    return err
//	}
//	sub, err := s.SubscribeWithArgs(ctx, pubsub.SubscribeArgs{
//	    ClientID: "alerts",
//	    Query:    q,
//	    Args:     []interface{}{"api"},
//	})
//	if err != nil {
//	    return err
//	}
//	for {
//	    msg, err := sub.Next(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    handle(msg.Data())
//	}
//
// Publishing never blocks on a slow subscriber. Each subscription buffers up
// to its limit of messages; a subscriber that lets its buffer fill is
// terminated and its Next reports ErrTerminated. When the server stops, the
// remaining subscriptions report ErrServerStopped once drained.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tendermint/tmquery/libs/log"
	"github.com/tendermint/tmquery/libs/pubsub/query"
	"github.com/tendermint/tmquery/libs/service"
)

var (
	// ErrSubscriptionNotFound is returned when a client tries to unsubscribe
	// from not existing subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrAlreadySubscribed is returned when a client tries to subscribe twice or
	// more using the same query.
	ErrAlreadySubscribed = errors.New("already subscribed")

	// ErrServerStopped is returned when attempting to publish or subscribe to
	// a server that has been stopped.
	ErrServerStopped = errors.New("pubsub server is stopped")
)

// Query defines an interface for a query to be used for subscribing. A
// *query.Compiled satisfies it.
type Query interface {
	Matches(rec query.Record, args ...interface{}) (bool, error)
	String() string
}

// SubscribeArgs are the parameters to create a new subscription.
type SubscribeArgs struct {
	ClientID string        // Client ID
	Query    Query         // filter query for records (required)
	Args     []interface{} // values for the query's $n placeholders
	Limit    int           // subscription queue capacity limit (0 means 1)
}

// Validate reports whether the arguments are usable.
func (args SubscribeArgs) Validate() error {
	if args.ClientID == "" {
		return errors.New("missing client ID")
	}
	if args.Query == nil {
		return errors.New("missing query")
	}
	if args.Limit < 0 {
		return errors.New("limit must be positive")
	}
	return nil
}

// UnsubscribeArgs are the parameters to remove a subscription.
// The subscriber must be populated, and at least one of the subscription ID
// or the registered query.
type UnsubscribeArgs struct {
	Subscriber string // Subscriber ID
	ID         string // Subscription ID (optional)
	Query      Query  // Subscription query (optional)
}

// Validate checks whether the arguments are valid.
func (args UnsubscribeArgs) Validate() error {
	if args.Subscriber == "" {
		return errors.New("must specify a subscriber")
	}
	if args.ID == "" && args.Query == nil {
		return fmt.Errorf("subscription is not fully defined [subscriber=%q]", args.Subscriber)
	}
	return nil
}

// Server allows clients to subscribe/unsubscribe for records, publishing
// records, and manages internal state.
type Server struct {
	service.BaseService
	logger  log.Logger
	metrics *Metrics

	queue    chan item
	queueCap int

	// pubs guards the queue against being closed while a publish is in
	// flight.
	pubs   sync.RWMutex
	closed bool

	subs struct {
		sync.RWMutex
		index *subIndex // nil when the server has stopped
	}
}

type item struct {
	data   interface{}
	record query.Record
}

// Option sets a parameter for the server.
type Option func(*Server)

// NewServer returns a new server. See the commentary on the Option functions
// for a detailed description of how to configure buffering. If no options are
// provided, the resulting server's queue is unbuffered.
func NewServer(logger log.Logger, options ...Option) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Server{
		logger:  logger,
		metrics: NopMetrics(),
	}
	s.subs.index = newSubIndex()
	s.BaseService = *service.NewBaseService(logger, "PubSub", s)

	for _, option := range options {
		option(s)
	}

	// if BufferCapacity option was not set, the channel is unbuffered
	s.queue = make(chan item, s.queueCap)
	return s
}

// BufferCapacity allows you to specify capacity for publisher's queue. This
// is the number of records that can be published without blocking before
// the server has matched them against subscriptions. With no buffer, each
// publish blocks until the previous record has been handed to the server.
func BufferCapacity(cap int) Option {
	return func(s *Server) {
		if cap > 0 {
			s.queueCap = cap
		}
	}
}

// WithMetrics sets the metrics the server reports to.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// BufferCapacity returns capacity of the publication queue.
func (s *Server) BufferCapacity() int { return s.queueCap }

// SubscribeWithArgs creates a subscription for the given arguments. It is an
// error if the query is nil, a subscription already exists for the
// specified client ID and query, or if the capacity arguments are invalid.
func (s *Server) SubscribeWithArgs(ctx context.Context, args SubscribeArgs) (*Subscription, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	s.subs.Lock()
	defer s.subs.Unlock()

	if s.subs.index == nil {
		return nil, ErrServerStopped
	} else if s.subs.index.contains(args.ClientID, args.Query.String()) {
		return nil, ErrAlreadySubscribed
	}

	limit := args.Limit
	if limit == 0 {
		limit = 1
	}
	sub := newSubscription(limit)
	s.subs.index.add(&subInfo{
		clientID: args.ClientID,
		query:    args.Query,
		args:     args.Args,
		sub:      sub,
	})
	s.metrics.Subscriptions.Add(1)
	s.logger.Debug("subscribed", "client", args.ClientID, "query", args.Query.String(), "id", sub.id)
	return sub, nil
}

// Unsubscribe removes the subscription for the given client and/or query. It
// returns ErrSubscriptionNotFound if no such subscription exists.
func (s *Server) Unsubscribe(ctx context.Context, args UnsubscribeArgs) error {
	if err := args.Validate(); err != nil {
		return err
	}
	s.subs.Lock()
	defer s.subs.Unlock()
	if s.subs.index == nil {
		return ErrServerStopped
	}

	var evict subInfoSet
	if args.ID != "" {
		evict = s.subs.index.findID(args.Subscriber, args.ID)
	} else {
		evict = s.subs.index.findClientQuery(args.Subscriber, args.Query.String())
	}
	if len(evict) == 0 {
		return ErrSubscriptionNotFound
	}
	s.removeSubs(evict, ErrUnsubscribed)
	return nil
}

// UnsubscribeAll removes all subscriptions for the given client ID.
// It returns ErrSubscriptionNotFound if no subscriptions exist for that
// client.
func (s *Server) UnsubscribeAll(ctx context.Context, clientID string) error {
	s.subs.Lock()
	defer s.subs.Unlock()
	if s.subs.index == nil {
		return ErrServerStopped
	}

	evict := s.subs.index.byClient[clientID]
	if len(evict) == 0 {
		return ErrSubscriptionNotFound
	}
	s.removeSubs(evict, ErrUnsubscribed)
	return nil
}

// NumClients returns the number of clients.
func (s *Server) NumClients() int {
	s.subs.RLock()
	defer s.subs.RUnlock()
	if s.subs.index == nil {
		return 0
	}
	return len(s.subs.index.byClient)
}

// NumClientSubscriptions returns the number of subscriptions the client has.
func (s *Server) NumClientSubscriptions(clientID string) int {
	s.subs.RLock()
	defer s.subs.RUnlock()
	if s.subs.index == nil {
		return 0
	}
	return len(s.subs.index.byClient[clientID])
}

// Publish publishes the given record. If data does not implement
// query.Record, it is matched as an empty record.
func (s *Server) Publish(ctx context.Context, data interface{}) error {
	rec, ok := data.(query.Record)
	if !ok {
		rec = query.MapRecord{}
	}
	return s.PublishWithRecord(ctx, data, rec)
}

// PublishWithRecord publishes data, matching subscriptions against rec.
// It blocks only while the publication queue is full.
func (s *Server) PublishWithRecord(ctx context.Context, data interface{}, rec query.Record) error {
	s.pubs.RLock()
	defer s.pubs.RUnlock()
	if s.closed {
		return ErrServerStopped
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.queue <- item{data: data, record: rec}:
		return nil
	}
}

// OnStart implements part of service.Service.
func (s *Server) OnStart(ctx context.Context) error {
	go s.run(s.queue)
	return nil
}

// OnStop implements part of service.Service. Records already queued are
// delivered before the remaining subscriptions are terminated.
func (s *Server) OnStop() {
	s.pubs.Lock()
	defer s.pubs.Unlock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
}

func (s *Server) run(queue <-chan item) {
	for it := range queue {
		s.send(it)
	}

	// Close all subscriptions before exit.
	s.subs.Lock()
	defer s.subs.Unlock()
	for si := range s.subs.index.all {
		si.sub.stop(ErrServerStopped)
	}
	s.metrics.Subscriptions.Set(0)
	s.subs.index = nil
}

// send delivers it to all matching subscriptions, and terminates those that
// cannot accept it.
func (s *Server) send(it item) {
	s.metrics.Published.Add(1)

	var evict subInfoSet
	s.subs.RLock()
	for si := range s.subs.index.all {
		match, err := si.query.Matches(it.record, si.args...)
		if err != nil {
			s.metrics.MatchErrors.Add(1)
			s.logger.Debug("skipping record", "client", si.clientID, "query", si.query.String(), "err", err)
			continue
		}
		if !match {
			continue
		}
		if !si.sub.publish(Message{subID: si.sub.id, data: it.data, record: it.record}) {
			if evict == nil {
				evict = make(subInfoSet)
			}
			evict.add(si)
			continue
		}
		s.metrics.Delivered.Add(1)
	}
	s.subs.RUnlock()

	if len(evict) != 0 {
		s.subs.Lock()
		for si := range evict {
			s.logger.Info("terminating slow subscriber", "client", si.clientID, "query", si.query.String())
		}
		s.metrics.Terminated.Add(float64(len(evict)))
		s.removeSubs(evict, ErrTerminated)
		s.subs.Unlock()
	}
}

// removeSubs stops and removes the given subscriptions. The caller must hold
// the subs lock exclusively.
func (s *Server) removeSubs(evict subInfoSet, reason error) {
	n := len(evict)
	for si := range evict {
		s.subs.index.remove(si)
		si.sub.stop(reason)
	}
	s.metrics.Subscriptions.Add(-float64(n))
}
