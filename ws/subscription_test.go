package ws

import (
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"luminaflow.lol/context"
	"luminaflow.lol/envelopes/closedenvelope"
	"luminaflow.lol/envelopes/closeenvelope"
	"luminaflow.lol/envelopes/eoseenvelope"
	"luminaflow.lol/envelopes/eventenvelope"
	"luminaflow.lol/envelopes/noticeenvelope"
	"luminaflow.lol/envelopes/reqenvelope"
	"luminaflow.lol/errs"
	"luminaflow.lol/event"
	"luminaflow.lol/filter"
	"luminaflow.lol/kind"
	"luminaflow.lol/subscription"
	"luminaflow.lol/tag"
)

// receiveReq reads messages until a REQ and returns its subscription id.
func receiveReq(t *testing.T, conn *websocket.Conn) (id string, ok bool) {
	for {
		label, rem, err := receive(conn)
		if err != nil {
			return
		}
		if label != reqenvelope.L {
			continue
		}
		req := reqenvelope.New()
		if _, err = req.Unmarshal(rem); err != nil {
			t.Errorf("bad REQ: %v", err)
			return
		}
		return req.Subscription, true
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	follows := signedNote(t, kind.FollowList, "", tag.New("p", "bob"))
	ws := newWebsocketServer(func(conn *websocket.Conn) {
		id, ok := receiveReq(t, conn)
		if !ok {
			return
		}
		chk.E(send(conn, eventenvelope.NewResultWith(id, follows).Marshal(nil)))
		chk.E(send(conn, eoseenvelope.NewFrom(id).Marshal(nil)))
		// wait for the CLOSE, then send the event again, which the client
		// must drop
		for {
			label, rem, err := receive(conn)
			if err != nil {
				return
			}
			if label == closeenvelope.L {
				cl := closeenvelope.New()
				if _, err = cl.Unmarshal(rem); err != nil || cl.Subscription != id {
					t.Errorf("bad CLOSE %q: %v", rem, err)
				}
				break
			}
		}
		chk.E(send(conn, eventenvelope.NewResultWith(id, follows).Marshal(nil)))
		chk.E(send(conn, noticeenvelope.NewFrom("sync").Marshal(nil)))
		io.ReadAll(conn)
	})
	defer ws.Close()

	notices := make(chan string, 1)
	rl := mustRelayConnect(t, ws.URL, WithNoticeHandler(func(n string) { notices <- n }))
	defer rl.Close()

	var mu sync.Mutex
	var friends []string
	var count int
	eose := make(chan struct{})
	sub, err := rl.Subscribe(context.Bg(), filter.AuthorsKinds([][]byte{follows.Pubkey}, kind.FollowList),
		func(ev *event.T) {
			mu.Lock()
			defer mu.Unlock()
			count++
			friends = append(friends, ev.Tags.Values("p")...)
		},
		WithLabel("friends"),
		WithEOSEHandler(func() { close(eose) }))
	require.NoError(t, err)
	require.Regexp(t, `^friends-[0-9a-f]{8}$`, sub.ID())

	select {
	case <-eose:
	case <-time.After(5 * time.Second):
		t.Fatal("no EOSE")
	}
	require.True(t, sub.EOSEd())
	sub.Unsub()
	require.Zero(t, rl.Subscriptions.Size())
	// unsubscribing again does nothing
	rl.Unsubscribe(sub.ID())

	select {
	case n := <-notices:
		require.Equal(t, "sync", n)
	case <-time.After(5 * time.Second):
		t.Fatal("no NOTICE")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, count)
	require.Equal(t, []string{"bob"}, friends)
}

func TestSubscriptionDropsInvalidEvents(t *testing.T) {
	good := signedNote(t, kind.FollowList, "", tag.New("p", "bob"))
	tampered := signedNote(t, kind.FollowList, "", tag.New("p", "mallory"))
	tampered.Content = []byte("changed")
	note := signedNote(t, kind.TextNote, "not a follow list")
	ws := newWebsocketServer(func(conn *websocket.Conn) {
		id, ok := receiveReq(t, conn)
		if !ok {
			return
		}
		for _, ev := range []*event.T{tampered, note, good} {
			chk.E(send(conn, eventenvelope.NewResultWith(id, ev).Marshal(nil)))
		}
		chk.E(send(conn, eventenvelope.NewResultWith("someone-else", good).Marshal(nil)))
		chk.E(send(conn, eoseenvelope.NewFrom(id).Marshal(nil)))
		io.ReadAll(conn)
	})
	defer ws.Close()
	rl := mustRelayConnect(t, ws.URL)
	defer rl.Close()

	evs, err := rl.QuerySync(context.Bg(), &filter.T{Kinds: []*kind.T{kind.FollowList}})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.Equal(t, good.ID, evs[0].ID)
	require.Zero(t, rl.Subscriptions.Size())
}

func TestQuerySyncClosedByRelay(t *testing.T) {
	ws := newWebsocketServer(func(conn *websocket.Conn) {
		id, ok := receiveReq(t, conn)
		if !ok {
			return
		}
		chk.E(send(conn, closedenvelope.NewFrom(id, []byte("auth-required: log in")).Marshal(nil)))
		io.ReadAll(conn)
	})
	defer ws.Close()
	rl := mustRelayConnect(t, ws.URL)
	defer rl.Close()
	_, err := rl.QuerySync(context.Bg(), filter.New())
	require.ErrorIs(t, err, errs.ErrRejected)
	require.Contains(t, err.Error(), "auth-required")
}

func TestQuerySyncTimeout(t *testing.T) {
	ws := newWebsocketServer(discardingHandler)
	defer ws.Close()
	rl := mustRelayConnect(t, ws.URL)
	defer rl.Close()
	ctx, cancel := context.Timeout(context.Bg(), 100*time.Millisecond)
	defer cancel()
	evs, err := rl.QuerySync(ctx, filter.New())
	require.NoError(t, err)
	require.Empty(t, evs)
}

func TestResubscribeAfterReconnect(t *testing.T) {
	follows := signedNote(t, kind.FollowList, "", tag.New("p", "carol"))
	var connections atomic.Int32
	ids := make(chan string, 2)
	ws := newWebsocketServer(func(conn *websocket.Conn) {
		n := connections.Add(1)
		id, ok := receiveReq(t, conn)
		if !ok {
			return
		}
		ids <- id
		if n == 1 {
			// drop the first connection once the subscription arrived
			conn.Close()
			return
		}
		chk.E(send(conn, eventenvelope.NewResultWith(id, follows).Marshal(nil)))
		io.ReadAll(conn)
	})
	defer ws.Close()

	var lost atomic.Int32
	rl := mustRelayConnect(t, ws.URL,
		WithRetryDelay(50*time.Millisecond),
		WithErrorHandler(func(err error) {
			if errs.CodeOf(err) == errs.ConnectionLost {
				lost.Add(1)
			}
		}))
	defer rl.Close()
	got := make(chan *event.T, 1)
	_, err := rl.Subscribe(context.Bg(), filter.AuthorsKinds([][]byte{follows.Pubkey}, kind.FollowList),
		func(ev *event.T) { got <- ev })
	require.NoError(t, err)

	select {
	case ev := <-got:
		require.Equal(t, follows.ID, ev.ID)
	case <-time.After(10 * time.Second):
		t.Fatal("subscription was not renewed after the reconnect")
	}
	first, second := <-ids, <-ids
	require.Equal(t, first, second)
	require.GreaterOrEqual(t, lost.Load(), int32(1))
	require.True(t, rl.IsConnected())
}

func TestPrepareSubscriptionUniqueIDs(t *testing.T) {
	rl := NewClient(context.Bg(), "ws://localhost:1")
	defer rl.Close()
	seen := map[string]bool{}
	for _i := 0; _i < 50; _i++ {
		sub := rl.PrepareSubscription(filter.New(), nil, WithLabel("x"))
		require.True(t, subscription.IsValid(sub.ID()))
		require.False(t, seen[sub.ID()])
		seen[sub.ID()] = true
	}
	require.Equal(t, 50, rl.Subscriptions.Size())
}

func TestCloseFromHandler(t *testing.T) {
	note := signedNote(t, kind.TextNote, "bye")
	ws := newWebsocketServer(func(conn *websocket.Conn) {
		id, ok := receiveReq(t, conn)
		if !ok {
			return
		}
		chk.E(send(conn, eventenvelope.NewResultWith(id, note).Marshal(nil)))
		io.ReadAll(conn)
	})
	defer ws.Close()
	rl := mustRelayConnect(t, ws.URL)
	closed := make(chan error, 1)
	_, err := rl.Subscribe(context.Bg(), filter.AuthorsKinds([][]byte{note.Pubkey}, kind.TextNote),
		func(*event.T) { closed <- rl.Close() })
	require.NoError(t, err)
	select {
	case err = <-closed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("Close in a handler did not return; status %s", rl.Status())
	}
	require.Eventually(t, func() bool { return rl.Status() == Closed },
		5*time.Second, 10*time.Millisecond)
	require.ErrorIs(t, rl.PublishSync(context.Bg(), note), errs.ErrSessionClosed)
	require.NoError(t, rl.Close())
}
