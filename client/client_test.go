package client

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"luminaflow.lol/bech32encoding"
	"luminaflow.lol/context"
	"luminaflow.lol/envelopes"
	"luminaflow.lol/envelopes/closeenvelope"
	"luminaflow.lol/envelopes/eoseenvelope"
	"luminaflow.lol/envelopes/eventenvelope"
	"luminaflow.lol/envelopes/okenvelope"
	"luminaflow.lol/envelopes/reqenvelope"
	"luminaflow.lol/errs"
	"luminaflow.lol/event"
	"luminaflow.lol/filter"
	"luminaflow.lol/keys"
	"luminaflow.lol/kind"
	"luminaflow.lol/profile"
	"luminaflow.lol/tag"
	"luminaflow.lol/tags"
	"luminaflow.lol/timestamp"
)

// relay is a small in-memory relay: it stores every event, answers REQ with
// the stored events that match and then EOSE, and forwards new events to
// open subscriptions.
type relay struct {
	mx     sync.Mutex
	events []*event.T
	subs   map[*websocket.Conn]map[string]*filter.T
}

func newRelay(t *testing.T) (r *relay, url string) {
	r = &relay{subs: make(map[*websocket.Conn]map[string]*filter.T)}
	srv := httptest.NewServer(&websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   r.handle,
	})
	t.Cleanup(srv.Close)
	return r, srv.URL
}

func (r *relay) handle(conn *websocket.Conn) {
	r.mx.Lock()
	r.subs[conn] = make(map[string]*filter.T)
	r.mx.Unlock()
	defer func() {
		r.mx.Lock()
		delete(r.subs, conn)
		r.mx.Unlock()
	}()
	for {
		var msg []byte
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			return
		}
		label, rem, err := envelopes.Identify(msg)
		if err != nil {
			continue
		}
		switch label {
		case eventenvelope.L:
			env := eventenvelope.NewSubmission()
			if _, err = env.Unmarshal(rem); err != nil {
				continue
			}
			r.mx.Lock()
			r.events = append(r.events, env.T)
			type target struct {
				conn *websocket.Conn
				id   string
			}
			var targets []target
			for c, subs := range r.subs {
				for id, f := range subs {
					if f.Matches(env.T) {
						targets = append(targets, target{c, id})
					}
				}
			}
			r.mx.Unlock()
			websocket.Message.Send(conn, string(okenvelope.NewFrom(env.T.ID, true).Marshal(nil)))
			for _, tg := range targets {
				websocket.Message.Send(tg.conn,
					string(eventenvelope.NewResultWith(tg.id, env.T).Marshal(nil)))
			}
		case reqenvelope.L:
			req := reqenvelope.New()
			if _, err = req.Unmarshal(rem); err != nil || len(req.Filters) == 0 {
				continue
			}
			f := req.Filters[0]
			r.mx.Lock()
			r.subs[conn][req.Subscription] = f
			var stored []*event.T
			for _, ev := range r.events {
				if f.Matches(ev) {
					stored = append(stored, ev)
				}
			}
			r.mx.Unlock()
			for _, ev := range stored {
				websocket.Message.Send(conn,
					string(eventenvelope.NewResultWith(req.Subscription, ev).Marshal(nil)))
			}
			websocket.Message.Send(conn, string(eoseenvelope.NewFrom(req.Subscription).Marshal(nil)))
		case closeenvelope.L:
			cl := closeenvelope.New()
			if _, err = cl.Unmarshal(rem); err == nil {
				r.mx.Lock()
				delete(r.subs[conn], cl.Subscription)
				r.mx.Unlock()
			}
		}
	}
}

func (r *relay) store(ev *event.T) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.events = append(r.events, ev)
}

func newClient(t *testing.T, url, sec, cacheDir string) *T {
	if sec == "" {
		var err error
		sec, err = keys.GenerateSecretKeyHex()
		require.NoError(t, err)
	}
	cl, err := New(context.Bg(), Options{SecretKey: sec, Relay: url, CacheDir: cacheDir})
	require.NoError(t, err)
	t.Cleanup(func() { cl.Close() })
	ctx, cancel := context.Timeout(context.Bg(), 5*time.Second)
	defer cancel()
	require.NoError(t, cl.Connect(ctx))
	return cl
}

func TestNewRejectsBadKey(t *testing.T) {
	_, err := New(context.Bg(), Options{SecretKey: "nsec1nope", Relay: "ws://localhost:1"})
	require.ErrorIs(t, err, errs.EncodingError)
	_, err = New(context.Bg(), Options{SecretKey: "zz", Relay: "ws://localhost:1"})
	require.Error(t, err)
}

func TestProfileRoundTrip(t *testing.T) {
	_, url := newRelay(t)
	alice := newClient(t, url, "", "")
	bob := newClient(t, url, "", "")
	ctx := context.Bg()

	md, err := bob.FetchProfile(ctx, alice.PublicKey())
	require.NoError(t, err)
	require.Nil(t, md)

	require.NoError(t, alice.PublishProfile(ctx, &profile.Metadata{Name: "alice", About: "hi"}))
	npub, err := bech32encoding.HexToNpub(alice.PublicKey())
	require.NoError(t, err)
	md, err = bob.FetchProfile(ctx, npub)
	require.NoError(t, err)
	require.NotNil(t, md)
	require.Equal(t, "alice", md.Name)
	require.Equal(t, "hi", md.About)
}

func TestFetchProfileTakesNewest(t *testing.T) {
	r, url := newRelay(t)
	alice := newClient(t, url, "", "")
	for i, name := range []string{"old", "new", "older"} {
		ev, err := profile.Event(alice.Signer, &profile.Metadata{Name: name})
		require.NoError(t, err)
		ev.CreatedAt = timestamp.FromUnix(int64(1700000000 + []int{1, 3, 0}[i]))
		require.NoError(t, ev.Sign(alice.Signer))
		r.store(ev)
	}
	md, err := alice.FetchProfile(context.Bg(), alice.PublicKey())
	require.NoError(t, err)
	require.Equal(t, "new", md.Name)
}

func TestAddContactAndWatch(t *testing.T) {
	_, url := newRelay(t)
	sec, err := keys.GenerateSecretKeyHex()
	require.NoError(t, err)
	bobSec, err := keys.GenerateSecretKeyHex()
	require.NoError(t, err)
	bobPub, err := keys.PublicKeyHex(bobSec)
	require.NoError(t, err)
	bobNpub, err := bech32encoding.HexToNpub(bobPub)
	require.NoError(t, err)

	dir := t.TempDir()
	alice := newClient(t, url, sec, filepath.Join(dir, "one"))
	require.NoError(t, alice.AddContact(context.Bg(), bobNpub))
	require.Equal(t, []string{bobPub}, alice.Contacts.Members())
	require.ErrorIs(t, alice.AddContact(context.Bg(), "nobody"), errs.ErrInvalidKey)

	// the same account elsewhere, with an empty cache, picks up the list
	elsewhere := newClient(t, url, sec, filepath.Join(dir, "two"))
	got := make(chan []string, 1)
	_, err = elsewhere.WatchContacts(context.Bg(), func(friends []string) { got <- friends })
	require.NoError(t, err)
	select {
	case friends := <-got:
		require.Equal(t, []string{bobPub}, friends)
	case <-time.After(5 * time.Second):
		t.Fatal("no follow list")
	}
	require.True(t, elsewhere.Contacts.Has(bobPub))
}

func TestDirectMessages(t *testing.T) {
	_, url := newRelay(t)
	alice := newClient(t, url, "", "")
	bob := newClient(t, url, "", "")

	msgs := make(chan DirectMessage, 4)
	sub, err := bob.WatchDirectMessages(context.Bg(), alice.PublicKey(),
		func(msg DirectMessage) { msgs <- msg })
	require.NoError(t, err)
	require.Eventually(t, sub.EOSEd, 5*time.Second, 10*time.Millisecond)

	res, err := alice.SendDirectMessage(context.Bg(), bob.PublicKey(), "hello, bob")
	require.NoError(t, err)
	require.NoError(t, <-res)
	select {
	case msg := <-msgs:
		require.NoError(t, msg.Err)
		require.Equal(t, "hello, bob", msg.Text)
		require.Equal(t, alice.PublicKey(), msg.From)
	case <-time.After(5 * time.Second):
		t.Fatal("no direct message")
	}

	// a message that is not an encrypted payload arrives with the reason
	bad := &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.EncryptedDirectMessage,
		Tags:      tags.New(tag.New("p", bob.PublicKey())),
		Content:   []byte("no iv here"),
	}
	require.NoError(t, bad.Sign(alice.Signer))
	require.NoError(t, alice.Session.PublishSync(context.Bg(), bad))
	select {
	case msg := <-msgs:
		require.ErrorIs(t, msg.Err, errs.ErrMalformedPayload)
		require.Empty(t, msg.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("no direct message")
	}
}

func TestReadDirectMessage(t *testing.T) {
	aliceSec, err := keys.GenerateSecretKeyHex()
	require.NoError(t, err)
	bobSec, err := keys.GenerateSecretKeyHex()
	require.NoError(t, err)
	alice, err := New(context.Bg(), Options{SecretKey: aliceSec, Relay: "ws://localhost:1"})
	require.NoError(t, err)
	bob, err := New(context.Bg(), Options{SecretKey: bobSec, Relay: "ws://localhost:1"})
	require.NoError(t, err)
	carolSec, err := keys.GenerateSecretKeyHex()
	require.NoError(t, err)
	carol, err := New(context.Bg(), Options{SecretKey: carolSec, Relay: "ws://localhost:1"})
	require.NoError(t, err)
	defer alice.Close()
	defer bob.Close()
	defer carol.Close()

	ev, err := alice.DirectMessageEvent(bob.PublicKey(), "secret plans")
	require.NoError(t, err)
	require.Equal(t, []string{bob.PublicKey()}, ev.Tags.Values("p"))
	require.Equal(t, "secret plans", bob.ReadDirectMessage(ev).Text)

	// someone else cannot read it, and is told so
	msg := carol.ReadDirectMessage(ev)
	require.Error(t, msg.Err)
	require.Empty(t, msg.Text)
	require.Equal(t, errs.Crypto, errs.ClassOf(msg.Err))

	note := &event.T{Kind: kind.TextNote, Pubkey: alice.Signer.Pub()}
	require.ErrorIs(t, bob.ReadDirectMessage(note).Err, errs.ErrBadFrame)
}
