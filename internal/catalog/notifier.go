package catalog

import (
	"context"

	"github.com/feastlyapp/feastly-backend/pkg/logger"
	redispkg "github.com/feastlyapp/feastly-backend/pkg/redis"
)

const changePayload = "changed"

// Notifier fans catalog change signals through a Redis pub/sub channel.
// Writers publish after any catalog mutation; mirrors listen and reload.
type Notifier struct {
	client  *redispkg.Client
	channel string
	logg    *logger.Logger
}

func NewNotifier(client *redispkg.Client, channel string, logg *logger.Logger) *Notifier {
	return &Notifier{client: client, channel: channel, logg: logg}
}

// NotifyChanged signals that the catalog changed. The payload carries no
// detail on purpose: listeners reload the whole catalog.
func (n *Notifier) NotifyChanged(ctx context.Context) error {
	return n.client.Publish(ctx, n.channel, changePayload)
}

// Listen opens a subscription and returns a channel that receives one value
// per change signal. The returned stop function closes the subscription and
// the channel.
func (n *Notifier) Listen(ctx context.Context) (<-chan struct{}, func(), error) {
	sub, err := n.client.Subscribe(ctx, n.channel)
	if err != nil {
		return nil, nil, err
	}
	signals := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(signals)
		msgs := sub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case signals <- struct{}{}:
				default:
					// a reload is already pending, coalesce
				}
			}
		}
	}()

	stop := func() {
		close(done)
		if err := sub.Close(); err != nil && n.logg != nil {
			n.logg.Warn(context.Background(), "closing catalog subscription: "+err.Error())
		}
	}
	return signals, stop, nil
}
