// Package accounts is a badger database of account records, each sealed with
// a key derived from a passphrase supplied by configuration.
package accounts

import (
	"crypto/cipher"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"lukechampine.com/frand"

	"luminaflow.lol/bech32encoding"
	"luminaflow.lol/errs"
	"luminaflow.lol/hex"
	"luminaflow.lol/keys"
)

// Record is an account. The JSON field names are those of the original
// account file.
type Record struct {
	SecretKeyHex     st `json:"private_key"`
	PublicKeyEncoded st `json:"public_key"`
	Nickname         st `json:"nickname"`
}

const (
	prefixMeta   byte = 0
	prefixRecord byte = 1

	saltLen = 16
	// argon2id parameters
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

var (
	saltKey  = by{prefixMeta, 's'}
	checkKey = by{prefixMeta, 'c'}
	checkVal = by("luminaflow accounts")
)

// T is an open account store.
type T struct {
	*badger.DB
	path   st
	aead   cipher.AEAD
	Logger *logger
}

// Open opens or creates the store at path. An empty path makes an in-memory
// store. The passphrase must be the same every time a store is opened;
// without one the store does not open.
func Open(path, passphrase st, logLevel no) (a *T, err er) {
	if passphrase == "" {
		err = errs.New(errs.InvalidKey, "no key for the account store is configured")
		return
	}
	a = &T{path: path, Logger: NewLogger(logLevel, "accounts")}
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Compression = options.None
	opts.Logger = a.Logger
	log.D.Ln("opening account store at", path)
	if a.DB, err = badger.Open(opts); chk.E(err) {
		return nil, err
	}
	var salt by
	if salt, err = a.salt(); chk.E(err) {
		chk.E(a.DB.Close())
		return nil, err
	}
	key := argon2.IDKey(by(passphrase), salt, kdfTime, kdfMemory, kdfThreads,
		chacha20poly1305.KeySize)
	if a.aead, err = chacha20poly1305.NewX(key); chk.E(err) {
		chk.E(a.DB.Close())
		return nil, err
	}
	if err = a.check(); err != nil {
		chk.E(a.DB.Close())
		return nil, err
	}
	return
}

// Path is where the database files are.
func (a *T) Path() st { return a.path }

// salt returns the salt of the database, making one when there is none.
func (a *T) salt() (salt by, err er) {
	err = a.Update(func(txn *badger.Txn) (err er) {
		var item *badger.Item
		item, err = txn.Get(saltKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			salt = frand.Bytes(saltLen)
			return txn.Set(saltKey, salt)
		} else if err != nil {
			return
		}
		salt, err = item.ValueCopy(nil)
		return
	})
	return
}

// check seals a known value in a new store, and opens it in an existing
// one, which fails when the passphrase is wrong.
func (a *T) check() (err er) {
	return a.Update(func(txn *badger.Txn) (err er) {
		var item *badger.Item
		item, err = txn.Get(checkKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set(checkKey, a.seal(checkKey, checkVal))
		} else if err != nil {
			return
		}
		var sealed by
		if sealed, err = item.ValueCopy(nil); err != nil {
			return
		}
		if _, err = a.open(checkKey, sealed); err != nil {
			err = errs.New(errs.InvalidKey, "the key for the account store is wrong")
		}
		return
	})
}

func (a *T) seal(key, plaintext by) (sealed by) {
	nonce := frand.Bytes(a.aead.NonceSize())
	return a.aead.Seal(nonce, nonce, plaintext, key)
}

func (a *T) open(key, sealed by) (plaintext by, err er) {
	n := a.aead.NonceSize()
	if len(sealed) < n {
		err = errs.New(errs.MalformedPayload, "sealed record is %d bytes", len(sealed))
		return
	}
	if plaintext, err = a.aead.Open(nil, sealed[:n], sealed[n:], key); err != nil {
		err = errs.Wrap(errs.DecryptionFailed, err, "opening record")
	}
	return
}

func recordKey(pub by) by { return append(by{prefixRecord}, pub...) }

// Save stores a record, replacing any with the same public key. The public
// key is derived from the secret key; a record whose public key does not
// match its secret key is refused.
func (a *T) Save(rec Record) (err er) {
	var sec by
	if sec, err = keys.ParseSecret(rec.SecretKeyHex); chk.E(err) {
		return
	}
	var pkh st
	if pkh, err = keys.PublicKeyHex(hex.Enc(sec)); chk.E(err) {
		return
	}
	var npub st
	if npub, err = bech32encoding.HexToNpub(pkh); chk.E(err) {
		return
	}
	if rec.PublicKeyEncoded != "" && rec.PublicKeyEncoded != npub {
		var given by
		if given, err = keys.ParsePublic(rec.PublicKeyEncoded); err != nil ||
			hex.Enc(given) != pkh {
			err = errs.New(errs.InvalidKey, "public key %s is not that of the secret key",
				rec.PublicKeyEncoded)
			return
		}
	}
	rec.SecretKeyHex, rec.PublicKeyEncoded = hex.Enc(sec), npub
	var b by
	if b, err = json.Marshal(rec); chk.E(err) {
		return
	}
	pub, _ := hex.Dec(pkh)
	k := recordKey(pub)
	return a.Update(func(txn *badger.Txn) er {
		return txn.Set(k, a.seal(k, b))
	})
}

// List returns every record, ordered by public key.
func (a *T) List() (recs []Record, err er) {
	err = a.View(func(txn *badger.Txn) (err er) {
		prefix := by{prefixRecord}
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true,
			PrefetchSize: 100})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var rec Record
			if rec, err = a.decode(item); err != nil {
				return
			}
			recs = append(recs, rec)
		}
		return
	})
	return
}

func (a *T) decode(item *badger.Item) (rec Record, err er) {
	var sealed, b by
	if sealed, err = item.ValueCopy(nil); chk.E(err) {
		return
	}
	if b, err = a.open(item.KeyCopy(nil), sealed); chk.E(err) {
		return
	}
	if err = json.Unmarshal(b, &rec); err != nil {
		err = errs.Encode(err, "account record")
	}
	return
}

// Get finds the record of a public key given as npub or hex. It returns nil
// when there is none.
func (a *T) Get(pubkey st) (rec *Record, err er) {
	var pub by
	if pub, err = keys.ParsePublic(pubkey); chk.E(err) {
		return
	}
	err = a.View(func(txn *badger.Txn) (err er) {
		var item *badger.Item
		if item, err = txn.Get(recordKey(pub)); errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return
		}
		var r Record
		if r, err = a.decode(item); err != nil {
			return
		}
		rec = &r
		return
	})
	return
}

// Delete removes the record of a public key given as npub or hex. Deleting a
// key that has no record is not an error.
func (a *T) Delete(pubkey st) (err er) {
	var pub by
	if pub, err = keys.ParsePublic(pubkey); chk.E(err) {
		return
	}
	return a.Update(func(txn *badger.Txn) er { return txn.Delete(recordKey(pub)) })
}

// Close closes the database.
func (a *T) Close() (err er) {
	log.D.F("closing account store %s", a.path)
	if err = a.DB.Close(); chk.E(err) {
		return
	}
	return
}
