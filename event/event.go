// Package event is the nostr event: its canonical form and id, signing and
// verification, and its JSON encoding.
package event

import (
	"luminaflow.lol/errs"
	"luminaflow.lol/hex"
	"luminaflow.lol/kind"
	"luminaflow.lol/p256k"
	"luminaflow.lol/sha256"
	"luminaflow.lol/signer"
	"luminaflow.lol/tags"
	"luminaflow.lol/text"
	"luminaflow.lol/timestamp"
)

// T is the primary datatype of nostr.
type T struct {
	// ID is the SHA256 hash of the canonical encoding of the event
	ID by
	// Pubkey is the x-only public key of the event creator
	Pubkey by
	// CreatedAt is the UNIX timestamp of the event according to the event
	// creator (never trust a timestamp!)
	CreatedAt *timestamp.T
	// Kind is the nostr protocol code for the type of event. See kind.T
	Kind *kind.T
	// Tags are a list of tags, which are a list of strings usually structured
	// as a 3 layer scheme indicating specific features of an event.
	Tags *tags.T
	// Content is an arbitrary string that can contain anything, but usually
	// following a layout set by the Kind and the Tags.
	Content by
	// Sig is the signature on the ID hash that validates as coming from the
	// Pubkey.
	Sig by
}

// New makes an empty event.T.
func New() (ev *T) { return &T{} }

// ToCanonical appends the canonical form of the event, the compact JSON array
// [0,pubkey,created_at,kind,tags,content] that is hashed to make its ID.
func (ev *T) ToCanonical(dst by) (b by) {
	b = append(dst, "[0,"...)
	b = text.AppendQuote(b, ev.Pubkey, hex.EncAppend)
	b = append(b, ',')
	b = ev.CreatedAt.Marshal(b)
	b = append(b, ',')
	b = ev.Kind.Marshal(b)
	b = append(b, ',')
	b = ev.Tags.Marshal(b)
	b = append(b, ',')
	b = text.AppendQuote(b, ev.Content, text.NostrEscape)
	b = append(b, ']')
	return
}

// GetIDBytes returns the raw SHA256 hash of the canonical form of an event.T.
func (ev *T) GetIDBytes() by { return Hash(ev.ToCanonical(nil)) }

// Hash is the digest used for event ids.
func Hash(in by) (out by) { return sha256.Hash(in) }

// Sign sets the Pubkey of the event from the signer, computes the ID and signs
// it.
func (ev *T) Sign(keys signer.I) (err er) {
	ev.Pubkey = keys.Pub()
	ev.ID = ev.GetIDBytes()
	if ev.Sig, err = keys.Sign(ev.ID); chk.E(err) {
		return
	}
	return
}

// Verify recomputes the ID of the event, checks it matches, and checks the
// signature against the Pubkey.
func (ev *T) Verify() (valid bo, err er) {
	if id := ev.GetIDBytes(); !equals(id, ev.ID) {
		err = errs.New(errs.BadID, "event id %0x does not match computed %0x",
			ev.ID, id)
		return
	}
	if valid = p256k.Verify(ev.Pubkey, ev.ID, ev.Sig); !valid {
		err = errs.New(errs.BadSignature, "signature of event %0x does not verify",
			ev.ID)
	}
	return
}

// IDString returns the hex of the event ID.
func (ev *T) IDString() st { return hex.Enc(ev.ID) }

// PubkeyString returns the hex of the event Pubkey.
func (ev *T) PubkeyString() st { return hex.Enc(ev.Pubkey) }
