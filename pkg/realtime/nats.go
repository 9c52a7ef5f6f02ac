package realtime

import (
	"strings"

	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/nats-io/nats.go"
)

// NatsSubscriber receives raw FeedMessage bytes on <subject>.<feed id> and publishes each of them.
type NatsSubscriber struct {
	nc        *nats.Conn
	sub       *nats.Subscription
	subject   string
	publisher *Publisher
	log       logger.Logger
}

func NewNatsSubscriber(url, subject string, publisher *Publisher, log logger.Logger) (*NatsSubscriber, error) {
	nc, err := nats.Connect(url,
		nats.Name("navigatorx-pt"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			log.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NatsSubscriber{nc: nc, subject: subject, publisher: publisher, log: log}, nil
}

func (s *NatsSubscriber) Subscribe() error {
	sub, err := s.nc.Subscribe(s.subject+".*", s.handle)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

func (s *NatsSubscriber) handle(msg *nats.Msg) {
	handleFeedMessage(s.publisher, s.log, s.subject, msg)
}

func handleFeedMessage(publisher *Publisher, log logger.Logger, subject string, msg *nats.Msg) {
	feedID := strings.TrimPrefix(msg.Subject, subject+".")
	if feedID == "" || feedID == msg.Subject {
		log.Warn("feed message on unexpected subject", "subject", msg.Subject)
		return
	}
	message, err := Decode(msg.Data)
	if err != nil {
		log.Error("decoding nats feed message", "feed", feedID, "error", err)
		publisher.failed(feedID)
		return
	}
	publisher.Update(feedID, message)
}

func (s *NatsSubscriber) Close() {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Drain()
		s.nc.Close()
	}
}
