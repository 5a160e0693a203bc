package broker

import (
	"context"

	"github.com/Manty2503/demo-final/internal/errors"
)

var ErrStopped = errors.NewSentinel("broker stopped")

type publishChannelContent[TID comparable, TPayload any] struct {
	ID      TID
	Channel chan TPayload
}

type subscribeChannelContent[TID comparable, TPayload any] struct {
	ID      TID
	Channel chan chan TPayload
}

// ChannelBroker passes a channel with ID from producer to the first consumer.
// The subsequent consumers will block until producer is finished so that they
// can resolve the situation e.g. by fetching persisted data from the database.
//
// This kind of broker is useful for streaming interview status through SSE. The
// producer is the interview coordinator started by the live WebSocket. The first
// consumer is the HTTP handler that returns the SSE stream. The subsequent
// consumers are likely caused by connectivity issues. In their case, it's better to
// wait for the interview to finish and return the stored result at the end.
type ChannelBroker[TID comparable, TPayload any] struct {
	done             chan struct{}
	publishChannel   chan publishChannelContent[TID, TPayload]
	unpublishChannel chan TID
	subscribeChannel chan subscribeChannelContent[TID, TPayload]
}

func NewChannelBroker[TID comparable, TPayload any]() *ChannelBroker[TID, TPayload] {
	broker := ChannelBroker[TID, TPayload]{
		done:             make(chan struct{}),
		publishChannel:   make(chan publishChannelContent[TID, TPayload]),
		unpublishChannel: make(chan TID),
		subscribeChannel: make(chan subscribeChannelContent[TID, TPayload]),
	}
	return &broker
}

// Start listening for publish, unpublish, and subscribe events. This function blocks until ctx is done,
// so it should be called in a goroutine. It does not handle panics, so it should be wrapped in a recover.
func (b *ChannelBroker[TID, TPayload]) Start(ctx context.Context) {
	defer close(b.done)
	publishedChannels := map[TID]chan TPayload{}
	subscriberLists := map[TID][]chan chan TPayload{}
	for {
		select {
		case <-ctx.Done():
			for _, subscribers := range subscriberLists {
				closeWaiting(subscribers)
			}
			return

		case subscription := <-b.subscribeChannel:
			c := publishedChannels[subscription.ID]
			if c == nil {
				// Signal to the subscriber that the producer is finished (or haven't started yet)
				close(subscription.Channel)
				break
			}
			subscribers := subscriberLists[subscription.ID]
			if subscribers == nil {
				// First subscriber gets the channel from the producer
				subscription.Channel <- c
			}
			// Subsequent subscribers block until the producer is finished
			subscriberLists[subscription.ID] = append(subscribers, subscription.Channel)

		case publication := <-b.publishChannel:
			publishedChannels[publication.ID] = publication.Channel

		case id := <-b.unpublishChannel:
			closeWaiting(subscriberLists[id])
			delete(publishedChannels, id)
			delete(subscriberLists, id)
		}
	}
}

// closeWaiting releases the subscribers queued behind the first one.
func closeWaiting[TPayload any](subscribers []chan chan TPayload) {
	for i, subscriber := range subscribers {
		if i > 0 {
			close(subscriber)
		}
	}
}

// Subscribe to the channel with ID. Returns a channel that will receive the channel corresponding to the ID.
// If the channel is not yet published, the returned channel will be closed.
// If there's already a subscriber, the returned channel will block until the producer is finished and then
// close the returned channel.
func (b *ChannelBroker[TID, TPayload]) Subscribe(ctx context.Context, id TID) (chan chan TPayload, error) {
	channel := make(chan chan TPayload, 1)
	select {
	case b.subscribeChannel <- subscribeChannelContent[TID, TPayload]{ID: id, Channel: channel}:
		return channel, nil
	case <-b.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "subscribe")
	}
}

// Publish the channel with ID. The channel will be sent to the first subscriber.
func (b *ChannelBroker[TID, TPayload]) Publish(ctx context.Context, id TID, channel chan TPayload) error {
	select {
	case b.publishChannel <- publishChannelContent[TID, TPayload]{ID: id, Channel: channel}:
		return nil
	case <-b.done:
		return ErrStopped
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "publish")
	}
}

// Unpublish the channel with ID. Note that the channel will be removed from the broker which means
// that subscribers will not be able to receive the channel from the broker. The producer should close
// its channel before unpublishing so that the first subscriber sees the end of the stream.
func (b *ChannelBroker[TID, TPayload]) Unpublish(ctx context.Context, id TID) error {
	select {
	case b.unpublishChannel <- id:
		return nil
	case <-b.done:
		return ErrStopped
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "unpublish")
	}
}
