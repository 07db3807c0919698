package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestListener() *Listener {
	return &Listener{
		subs: make(map[int]map[int]chan Event),
		all:  make(map[int]chan Event),
	}
}

func TestDispatchRoutesToRoomSubscribers(t *testing.T) {
	l := newTestListener()

	ch5, cancel5 := l.Subscribe(5)
	defer cancel5()
	ch6, cancel6 := l.Subscribe(6)
	defer cancel6()

	l.dispatch([]byte(`{"kind":"message_created","room_id":5}`))

	select {
	case ev := <-ch5:
		assert.Equal(t, KindMessageCreated, ev.Kind)
		assert.Equal(t, 5, ev.RoomID)
	default:
		t.Fatal("expected event for room 5")
	}
	assert.Empty(t, ch6)
}

func TestDispatchIgnoresMalformedPayload(t *testing.T) {
	l := newTestListener()
	ch, cancel := l.Subscribe(1)
	defer cancel()

	l.dispatch([]byte(`not json`))
	assert.Empty(t, ch)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	l := newTestListener()

	_, cancel := l.Subscribe(3)
	cancel()
	cancel()

	require.Empty(t, l.subs)

	// events after unsubscribe go nowhere and do not panic
	l.dispatch([]byte(`{"kind":"message_created","room_id":3}`))
}

func TestResyncReachesEverySubscriber(t *testing.T) {
	l := newTestListener()

	ch1, cancel1 := l.Subscribe(1)
	defer cancel1()
	ch2, cancel2 := l.Subscribe(2)
	defer cancel2()
	all, cancelAll := l.SubscribeAll()
	defer cancelAll()

	l.broadcast(Event{Kind: KindResync})

	for _, ch := range []<-chan Event{ch1, ch2, all} {
		select {
		case ev := <-ch:
			assert.Equal(t, KindResync, ev.Kind)
		default:
			t.Fatal("expected resync event")
		}
	}
}

func TestBroadcastCoalescesWhenChannelFull(t *testing.T) {
	l := newTestListener()
	ch, cancel := l.Subscribe(9)
	defer cancel()

	// more events than the buffer holds must not block
	for i := 0; i < 20; i++ {
		l.broadcast(Event{Kind: KindMessageCreated, RoomID: 9})
	}
	assert.Equal(t, cap(ch), len(ch))
}
