// Package searchevents publishes served city searches to Kafka. The offline
// query cache build reads them to learn which prefixes people type.
package searchevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

type Event struct {
	ID        string    `json:"id"`
	Raw       string    `json:"raw"`
	Query     string    `json:"query"`
	Tier      string    `json:"tier"`
	ResultIDs []int64   `json:"resultIds"`
	TS        time.Time `json:"ts"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(raw, query, tier string, ids []int64) Event {
	return Event{
		ID:        uuid.NewString(),
		Raw:       raw,
		Query:     query,
		Tier:      tier,
		ResultIDs: ids,
		TS:        time.Now().UTC(),
	}
}

type Sink interface {
	Publish(ev Event)
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}

func (Nop) Close() error { return nil }

type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	log     *slog.Logger
	stopped chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	return cfg
}

func NewPublisher(brokers []string, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	prod, err := sarama.NewAsyncProducer(brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("searchevents: create async producer: %w", err)
	}
	return newPublisher(prod, topic, queueSize, log), nil
}

func newPublisher(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		log:     log.With("component", "searchevents"),
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("marshal search event", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Query),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("search event not delivered", "err", err)
			}
		}
	}()

	return p
}

// Publish queues ev without blocking; a full queue drops it.
func (p *Publisher) Publish(ev Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped.Add(1)
	}
}

// Dropped counts events lost to a full queue.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Close flushes queued events and closes the producer. Safe to call twice.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.stopped
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("searchevents: close producer: %w", err)
	}
	return nil
}
