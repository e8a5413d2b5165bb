// Package areaevents publishes served area requests to Kafka.
package areaevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/map-area-select/internal/core/model"
	"github.com/mohammed-shakir/map-area-select/internal/core/observability"
)

type Event struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	Resolution int       `json:"resolution"`
	H3Res      int       `json:"h3_res"`
	Cells      int       `json:"cells"`
	Cache      string    `json:"cache,omitempty"`
	TS         time.Time `json:"ts"`
}

func NewEvent(a model.Area, resolution int) Event {
	return Event{
		Lat:        a.Lat,
		Lng:        a.Lng,
		Width:      a.Width,
		Height:     a.Height,
		Resolution: resolution,
		TS:         time.Now().UTC(),
	}
}

// Publisher queues events and hands them to an async producer. Publish
// never blocks; events are dropped once the queue is full.
type Publisher struct {
	logger  *slog.Logger
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	stopped chan struct{}
	errDone chan struct{}
}

// ProducerConfig is the sarama config used by NewPublisher.
func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	return cfg
}

func NewPublisher(logger *slog.Logger, brokers []string, topic string, queueSize int) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("areaevents: no brokers")
	}
	prod, err := sarama.NewAsyncProducer(brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("areaevents: create async producer: %w", err)
	}
	return NewWithProducer(logger, prod, topic, queueSize), nil
}

// NewWithProducer wraps an existing producer. The producer must report
// errors on its Errors channel.
func NewWithProducer(logger *slog.Logger, prod sarama.AsyncProducer, topic string, queueSize int) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	p := &Publisher{
		logger:  logger,
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}
	go p.pump()
	go p.drainErrors()
	return p
}

func (p *Publisher) pump() {
	defer close(p.stopped)
	for ev := range p.events {
		b, err := json.Marshal(ev)
		if err != nil {
			observability.IncAreaEvent("failed")
			p.logger.Warn("areaevents: marshal error", "err", err)
			continue
		}
		p.prod.Input() <- &sarama.ProducerMessage{
			Topic: p.topic,
			Value: sarama.ByteEncoder(b),
		}
	}
}

func (p *Publisher) drainErrors() {
	defer close(p.errDone)
	for err := range p.prod.Errors() {
		if err != nil {
			observability.IncAreaEvent("failed")
			p.logger.Warn("areaevents: producer error", "err", err.Err, "topic", err.Msg.Topic)
		}
	}
}

func (p *Publisher) Publish(ev Event) {
	select {
	case p.events <- ev:
		observability.IncAreaEvent("queued")
	default:
		observability.IncAreaEvent("dropped")
	}
}

// Close flushes queued events and closes the producer. Publish must not be
// called after Close.
func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	err := p.prod.Close()
	<-p.errDone
	if err != nil {
		return fmt.Errorf("areaevents: close producer: %w", err)
	}
	return nil
}
