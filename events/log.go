package events

import (
	"log/slog"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Record is an event as stored in the Log.
type Record struct {
	Seq   uint64    `json:"seq"`
	Time  time.Time `json:"time"`
	Name  string    `json:"name"`
	Event Event     `json:"event"`
}

// Log is an append-only, in-memory event log. Sequence numbers start at 1
// and increase by one per event. When capacity is positive only the most
// recent capacity records are retained.
type Log struct {
	mu       deadlock.RWMutex
	records  []Record
	nextSeq  uint64
	capacity int
	now      func() time.Time
}

// NewLog creates an event log. A capacity of zero keeps every record.
func NewLog(capacity int) *Log {
	return &Log{
		nextSeq:  1,
		capacity: capacity,
		now:      time.Now,
	}
}

// Emit appends ev to the log.
func (l *Log) Emit(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, Record{
		Seq:   l.nextSeq,
		Time:  l.now().UTC(),
		Name:  ev.EventName(),
		Event: ev,
	})
	l.nextSeq++

	if l.capacity > 0 && len(l.records) > l.capacity {
		drop := len(l.records) - l.capacity
		l.records = append([]Record(nil), l.records[drop:]...)
	}
}

// Since returns up to limit records with a sequence number greater than seq,
// oldest first. A non-positive limit returns all of them.
func (l *Log) Since(seq uint64, limit int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := len(l.records)
	for i, rec := range l.records {
		if rec.Seq > seq {
			start = i
			break
		}
	}

	end := len(l.records)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	out := make([]Record, end-start)
	copy(out, l.records[start:end])
	return out
}

// LastSeq returns the sequence number of the most recent event, 0 if none.
func (l *Log) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextSeq - 1
}

// Multi fans every event out to all emitters, in order.
type Multi []Emitter

func (m Multi) Emit(ev Event) {
	for _, e := range m {
		e.Emit(ev)
	}
}

type slogEmitter struct {
	log *slog.Logger
}

// NewSlogEmitter returns an emitter that logs each event at debug level.
func NewSlogEmitter(log *slog.Logger) Emitter {
	return &slogEmitter{log: log}
}

func (s *slogEmitter) Emit(ev Event) {
	s.log.Debug("registry event", slog.String("event", ev.EventName()), slog.Any("payload", ev))
}
