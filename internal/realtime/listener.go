package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"

	"staff-chat/internal/db"
)

// Event kinds delivered to subscribers. Every kind means the same thing to a
// consumer: reload the room. Reloads are idempotent, so duplicates and
// reordering are harmless.
const (
	KindMessageCreated   = "message_created"
	KindParticipantAdded = "participant_added"
	KindResync           = "resync"
)

// Event is a change notification scoped to one room. Resync events carry
// RoomID 0 and mean "the stream may have gaps, reload everything you watch".
type Event struct {
	Kind   string `json:"kind"`
	RoomID int    `json:"room_id"`
}

// Listener bridges Postgres NOTIFY into per-room subscriptions. Insert
// triggers on messages and chat_room_participants feed the channel;
// pq.Listener owns reconnection with backoff, and after a reconnect every
// subscriber receives a resync event because notifications may have been
// missed while disconnected.
type Listener struct {
	pql *pq.Listener

	mu     sync.Mutex
	nextID int
	subs   map[int]map[int]chan Event // roomID -> subscription id -> channel
	all    map[int]chan Event         // wildcard subscribers (ws hub pump)
}

// NewListener opens a dedicated listening connection with the given DSN.
func NewListener(dsn string) *Listener {
	pql := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("realtime listener: %v", err)
		}
	})
	return &Listener{
		pql:  pql,
		subs: make(map[int]map[int]chan Event),
		all:  make(map[int]chan Event),
	}
}

// Run listens until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.pql.Listen(db.NotifyChannel); err != nil {
		return err
	}
	defer l.pql.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-l.pql.Notify:
			if n == nil {
				// connection was re-established; subscribers may have
				// missed notifications in between
				l.broadcast(Event{Kind: KindResync})
				continue
			}
			l.dispatch([]byte(n.Extra))
		case <-time.After(90 * time.Second):
			go l.pql.Ping()
		}
	}
}

// Subscribe registers interest in one room. The returned cancel func is safe
// to call multiple times and must be called when the viewing component is
// torn down so subscriptions do not leak.
func (l *Listener) Subscribe(roomID int) (<-chan Event, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	if _, ok := l.subs[roomID]; !ok {
		l.subs[roomID] = make(map[int]chan Event)
	}
	ch := make(chan Event, 4)
	l.subs[roomID][id] = ch

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if chans, ok := l.subs[roomID]; ok {
			delete(chans, id)
			if len(chans) == 0 {
				delete(l.subs, roomID)
			}
		}
	}
	return ch, cancel
}

// SubscribeAll registers a wildcard subscriber receiving events for every
// room; the websocket hub pump uses this to fan events out to sockets.
func (l *Listener) SubscribeAll() (<-chan Event, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	ch := make(chan Event, 64)
	l.all[id] = ch

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.all, id)
	}
	return ch, cancel
}

func (l *Listener) dispatch(payload []byte) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("realtime listener: bad payload %q: %v", payload, err)
		return
	}
	l.broadcast(ev)
}

func (l *Listener) broadcast(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	deliver := func(ch chan Event) {
		select {
		case ch <- ev:
		default:
			// channel full: a reload is already pending, coalesce
		}
	}

	if ev.Kind == KindResync {
		for _, chans := range l.subs {
			for _, ch := range chans {
				deliver(ch)
			}
		}
	} else {
		for _, ch := range l.subs[ev.RoomID] {
			deliver(ch)
		}
	}
	for _, ch := range l.all {
		deliver(ch)
	}
}
