package searchevents

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"

	"github.com/mohammed-shakir/weather-dashboard/internal/logger"
)

func TestPublisher_ProducesJSON(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, producerConfig())
	mp.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Query != "boston, m" || ev.Tier != "cache" || len(ev.ResultIDs) != 2 {
			return fmt.Errorf("unexpected event %+v", ev)
		}
		if _, err := uuid.Parse(ev.ID); err != nil {
			return fmt.Errorf("bad id %q: %w", ev.ID, err)
		}
		return nil
	})
	mp.ExpectInputAndSucceed()

	p := newPublisher(mp, "city-search-events", 8, logger.Discard())
	p.Publish(NewEvent("Boston, M", "boston, m", "cache", []int64{4930956, 4931972}))
	p.Publish(NewEvent("", "", "empty", nil))

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	// after Close events are ignored, not a panic
	p.Publish(NewEvent("x", "x", "scan", nil))
}

func TestPublisher_ProducerErrorsAreLogged(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, producerConfig())
	mp.ExpectInputAndFail(fmt.Errorf("broker gone"))

	p := newPublisher(mp, "t", 1, logger.Discard())
	p.Publish(NewEvent("a", "a", "scan", nil))
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPublish_FullQueueDrops(t *testing.T) {
	p := &Publisher{events: make(chan Event, 1)}
	p.Publish(Event{Query: "a"})
	p.Publish(Event{Query: "b"})
	p.Publish(Event{Query: "c"})
	if got := p.Dropped(); got != 2 {
		t.Fatalf("Dropped=%d want 2", got)
	}
	if ev := <-p.events; ev.Query != "a" {
		t.Fatalf("queued=%q want a", ev.Query)
	}
}

func TestNewEvent_StampsIDAndTime(t *testing.T) {
	a := NewEvent("r", "q", "index", []int64{1})
	b := NewEvent("r", "q", "index", []int64{1})
	if a.ID == b.ID {
		t.Fatal("event ids must be unique")
	}
	if a.TS.IsZero() {
		t.Fatal("missing timestamp")
	}
}

func TestNop(t *testing.T) {
	var s Sink = Nop{}
	s.Publish(Event{})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
