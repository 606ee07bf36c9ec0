package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/domain"
)

// Config controls the NATS connection.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "quiz.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Publisher forwards every engine event to NATS on <prefix>.<audience>.<type>.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

func NewPublisher(cfg Config) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("live-quiz-service"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{nc: nc, prefix: cfg.SubjectPrefix}, nil
}

// Subject returns the subject an event is published on.
func Subject(prefix string, ev domain.Event) string {
	if prefix == "" {
		return fmt.Sprintf("%s.%s", ev.Audience, ev.Type)
	}
	return fmt.Sprintf("%s.%s.%s", prefix, ev.Audience, ev.Type)
}

// Encode builds the message for ev. The event id doubles as the dedup header.
func Encode(prefix string, ev domain.Event) (*nats.Msg, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event %d: %w", ev.Seq, err)
	}
	msg := nats.NewMsg(Subject(prefix, ev))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.ID)
	return msg, nil
}

// Run publishes events until ctx is cancelled or the channel closes, then flushes.
func (p *Publisher) Run(ctx context.Context, events <-chan domain.Event) error {
	defer p.flush()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := p.Publish(ev); err != nil {
				log.Warn().Err(err).Str("event", string(ev.Type)).Uint64("seq", ev.Seq).Msg("NATS publish failed")
			}
		}
	}
}

// Publish sends one event.
func (p *Publisher) Publish(ev domain.Event) error {
	msg, err := Encode(p.prefix, ev)
	if err != nil {
		return err
	}
	return p.nc.PublishMsg(msg)
}

// Healthy reports whether the connection is up.
func (p *Publisher) Healthy() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats status %s", p.nc.Status())
	}
	return nil
}

func (p *Publisher) flush() {
	if err := p.nc.FlushTimeout(2 * time.Second); err != nil {
		log.Warn().Err(err).Msg("NATS flush failed")
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
