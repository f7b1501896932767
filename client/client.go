// Package client ties a relay session to an account: its signer, its cached
// contact list, its profile and its direct messages.
package client

import (
	"path/filepath"

	"luminaflow.lol/contacts"
	"luminaflow.lol/encryption"
	"luminaflow.lol/errs"
	"luminaflow.lol/event"
	"luminaflow.lol/filter"
	"luminaflow.lol/hex"
	"luminaflow.lol/keys"
	"luminaflow.lol/kind"
	"luminaflow.lol/p256k"
	"luminaflow.lol/profile"
	"luminaflow.lol/tag"
	"luminaflow.lol/tags"
	"luminaflow.lol/timestamp"
	"luminaflow.lol/ws"
)

// Options configure a client.
type Options struct {
	// SecretKey is the account's secret key as hex or nsec.
	SecretKey st
	// Relay is the address of the relay to use.
	Relay st
	// CacheDir holds the account's cached contact list. When empty, contacts
	// are kept in memory only.
	CacheDir st
	// Session options are passed on to the relay session.
	Session []ws.Option
}

// T is a client for one account on one relay.
type T struct {
	Signer   *p256k.Signer
	Session  *ws.Client
	Contacts *contacts.Store
}

// New creates a client. The relay session is not connected until Connect is
// called.
func New(c cx, o Options) (cl *T, err er) {
	var sec by
	if sec, err = keys.ParseSecret(o.SecretKey); chk.E(err) {
		return
	}
	sign := p256k.New()
	if err = sign.InitSec(sec); chk.E(err) {
		return
	}
	var path st
	if o.CacheDir != "" {
		path = filepath.Join(o.CacheDir, contacts.FileName)
	}
	cl = &T{
		Signer:   sign,
		Session:  ws.NewClient(c, o.Relay, o.Session...),
		Contacts: contacts.Load(path),
	}
	return
}

// Connect connects the relay session, retrying until the context is done.
func (cl *T) Connect(c cx) er { return cl.Session.Connect(c) }

// Close ends the relay session and wipes the secret key.
func (cl *T) Close() (err er) {
	err = cl.Session.Close()
	cl.Signer.Zero()
	return
}

// PublicKey is the account's public key in hex.
func (cl *T) PublicKey() st { return hex.Enc(cl.Signer.Pub()) }

// WatchContacts subscribes to the account's follow list. Each list that
// arrives is merged into the cached contacts and then passed to h.
func (cl *T) WatchContacts(c cx, h func(friends []st),
	opts ...ws.SubscriptionOption) (sub *ws.Subscription, err er) {

	f := filter.AuthorsKinds([]by{cl.Signer.Pub()}, kind.FollowList)
	return cl.Session.Subscribe(c, f, func(ev *event.T) {
		friends := contacts.FromEvent(ev)
		log.D.F("follow list with %d contacts", len(friends))
		chk.E(cl.Contacts.Merge(friends...))
		if h != nil {
			h(friends)
		}
	}, append([]ws.SubscriptionOption{ws.WithLabel("contacts")}, opts...)...)
}

// AddContact adds a public key, as hex or npub, to the cached contacts and
// publishes the whole cached list, which replaces the relay's list.
func (cl *T) AddContact(c cx, pubkey st) (err er) {
	var pk by
	if pk, err = keys.ParsePublic(pubkey); chk.E(err) {
		return
	}
	if err = cl.Contacts.Merge(hex.Enc(pk)); chk.E(err) {
		return
	}
	return <-contacts.Publish(c, cl.Session, cl.Signer, cl.Contacts.Members())
}

// FetchProfile queries the relay for the newest profile of a public key. It
// returns nil when the relay has none.
func (cl *T) FetchProfile(c cx, pubkey st) (md *profile.Metadata, err er) {
	var pk by
	if pk, err = keys.ParsePublic(pubkey); chk.E(err) {
		return
	}
	f := filter.AuthorsKinds([]by{pk}, kind.ProfileMetadata)
	limit := uint(1)
	f.Limit = &limit
	var evs []*event.T
	if evs, err = cl.Session.QuerySync(c, f, ws.WithLabel("profile")); chk.E(err) {
		return
	}
	var newest *event.T
	for _, ev := range evs {
		if newest == nil || ev.CreatedAt.I64() > newest.CreatedAt.I64() {
			newest = ev
		}
	}
	if newest == nil {
		return
	}
	return profile.Parse(newest)
}

// PublishProfile signs the metadata as the account's profile and waits for
// the relay to accept it.
func (cl *T) PublishProfile(c cx, md *profile.Metadata) (err er) {
	var ev *event.T
	if ev, err = profile.Event(cl.Signer, md); chk.E(err) {
		return
	}
	return cl.Session.PublishSync(c, ev)
}

// DirectMessage is a message received from a friend. When it could not be
// decrypted, Err says why and Text is empty.
type DirectMessage struct {
	Event *event.T
	From  st
	Text  st
	Err   er
}

// DirectMessageEvent encrypts text to the recipient and makes the signed
// kind 4 event carrying it.
func (cl *T) DirectMessageEvent(recipient st, text st) (ev *event.T, err er) {
	var pk by
	if pk, err = keys.ParsePublic(recipient); chk.E(err) {
		return
	}
	pkh := hex.Enc(pk)
	var payload st
	if payload, err = encryption.Encrypt(cl.Signer.Sec(), pkh, by(text)); chk.E(err) {
		return
	}
	ev = &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.EncryptedDirectMessage,
		Tags:      tags.New(tag.New("p", pkh)),
		Content:   by(payload),
	}
	if err = ev.Sign(cl.Signer); chk.E(err) {
		return nil, err
	}
	return
}

// SendDirectMessage encrypts and publishes a direct message. Key and
// encryption failures are returned at once; the channel gets the result
// from the relay.
func (cl *T) SendDirectMessage(c cx, recipient st, text st) (res <-chan er, err er) {
	var ev *event.T
	if ev, err = cl.DirectMessageEvent(recipient, text); err != nil {
		return
	}
	return cl.Session.Publish(c, ev), nil
}

// ReadDirectMessage decrypts a kind 4 event from its author.
func (cl *T) ReadDirectMessage(ev *event.T) (msg DirectMessage) {
	msg = DirectMessage{Event: ev, From: ev.PubkeyString()}
	if !ev.Kind.Equal(kind.EncryptedDirectMessage) {
		msg.Err = errs.New(errs.BadFrame, "event %s is kind %d, not a direct message",
			ev.IDString(), ev.Kind.ToInt())
		return
	}
	text, err := encryption.Decrypt(cl.Signer.Sec(), msg.From, st(ev.Content))
	if err != nil {
		log.D.F("message %s from %s: %v", ev.IDString(), msg.From, err)
		msg.Err = err
		return
	}
	msg.Text = st(text)
	return
}

// WatchDirectMessages subscribes to direct messages from a friend to this
// account and passes each, decrypted, to h.
func (cl *T) WatchDirectMessages(c cx, friend st,
	h func(msg DirectMessage)) (sub *ws.Subscription, err er) {

	var pk by
	if pk, err = keys.ParsePublic(friend); chk.E(err) {
		return
	}
	f := filter.AuthorsKinds([]by{pk}, kind.EncryptedDirectMessage)
	f.Tags = map[st][]st{"p": {cl.PublicKey()}}
	return cl.Session.Subscribe(c, f, func(ev *event.T) {
		h(cl.ReadDirectMessage(ev))
	}, ws.WithLabel("dm"))
}
