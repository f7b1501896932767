package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"luminaflow.lol/accounts"
	"luminaflow.lol/bech32encoding"
	"luminaflow.lol/client"
	"luminaflow.lol/config"
	"luminaflow.lol/errs"
	"luminaflow.lol/hex"
	"luminaflow.lol/keys"
	"luminaflow.lol/lol"
	"luminaflow.lol/p256k"
	"luminaflow.lol/profile"
	"luminaflow.lol/relaylist"
	"luminaflow.lol/ws"
)

type app struct {
	cfg  *config.C
	args *Args
	out  io.Writer
}

func (a *app) printf(format st, v ...any) { _, _ = fmt.Fprintf(a.out, format, v...) }

func (a *app) run(c cx, cmd any) (err er) {
	switch cmd := cmd.(type) {
	case *KeygenCmd:
		return a.keygen(cmd)
	case *EncodeCmd:
		return a.encode(cmd)
	case *DecodeCmd:
		return a.decode(cmd)
	case *PubCmd:
		return a.pub(cmd.Secret)
	case *AccountListCmd:
		return a.accountList()
	case *AccountSaveCmd:
		return a.accountSave(accounts.Record{SecretKeyHex: cmd.Secret, Nickname: cmd.Nickname})
	case *AccountDeleteCmd:
		return a.accountDelete(cmd.Pubkey)
	case *RelaysListCmd:
		return a.relaysList()
	case *RelaysAddCmd:
		return a.relaysEdit(relaylist.Add, cmd.URL)
	case *RelaysRemoveCmd:
		return a.relaysEdit(relaylist.Remove, cmd.URL)
	case *PublishProfileCmd:
		return a.publishProfile(c, cmd)
	case *ProfileCmd:
		return a.profile(c, cmd.Pubkey)
	case *FollowCmd:
		return a.follow(c, cmd.Pubkey)
	case *ContactsCmd:
		return a.contacts(c, cmd.Watch)
	case *DMSendCmd:
		return a.dmSend(c, cmd)
	case *DMWatchCmd:
		return a.dmWatch(c, cmd.From)
	case *EnvCmd:
		config.PrintEnv(a.cfg, a.out)
		return
	case *AccountCmd, *RelaysCmd, *DMCmd:
		return errorf.E("a subcommand is needed, see --help")
	}
	return errorf.E("unknown command %T", cmd)
}

func (a *app) keygen(cmd *KeygenCmd) (err er) {
	var sec st
	if sec, err = keys.GenerateSecretKeyHex(); chk.E(err) {
		return
	}
	if err = a.pub(sec); err != nil {
		return
	}
	if cmd.Save != "" {
		return a.accountSave(accounts.Record{SecretKeyHex: sec, Nickname: cmd.Save})
	}
	return
}

func (a *app) encode(cmd *EncodeCmd) (err er) {
	var b by
	if b, err = keys.HexToBin32(cmd.Hex); err != nil {
		return
	}
	var s st
	switch strings.ToLower(cmd.Kind) {
	case bech32encoding.SecHRP:
		s, err = bech32encoding.BinToNsec(b)
	case bech32encoding.PubHRP:
		s, err = bech32encoding.BinToNpub(b)
	default:
		return errs.New(errs.InvalidPrefix, "kind must be %s or %s", bech32encoding.SecHRP,
			bech32encoding.PubHRP)
	}
	if err != nil {
		return
	}
	a.printf("%s\n", s)
	return
}

func (a *app) decode(cmd *DecodeCmd) (err er) {
	var b by
	var hrp st
	if b, hrp, err = bech32encoding.Decode(cmd.Key); err != nil {
		return
	}
	a.printf("%s %s\n", hrp, hex.Enc(b))
	return
}

func (a *app) pub(secret st) (err er) {
	var sec by
	if sec, err = keys.ParseSecret(secret); err != nil {
		return
	}
	sign := p256k.New()
	if err = sign.InitSec(sec); err != nil {
		return
	}
	defer sign.Zero()
	var nsec, npub st
	if nsec, err = bech32encoding.BinToNsec(sign.Sec()); err != nil {
		return
	}
	if npub, err = bech32encoding.BinToNpub(sign.Pub()); err != nil {
		return
	}
	a.printf("secret %s\n       %s\npublic %s\n       %s\n", nsec, hex.Enc(sign.Sec()), npub,
		hex.Enc(sign.Pub()))
	return
}

func (a *app) openAccounts() (store *accounts.T, err er) {
	return accounts.Open(a.cfg.AccountsPath(), a.cfg.AccountsKey, lol.GetLogLevel(a.cfg.LogLevel))
}

func (a *app) accountList() (err er) {
	var store *accounts.T
	if store, err = a.openAccounts(); err != nil {
		return
	}
	defer store.Close()
	var recs []accounts.Record
	if recs, err = store.List(); err != nil {
		return
	}
	for _, r := range recs {
		a.printf("%s %s\n", r.PublicKeyEncoded, r.Nickname)
	}
	return
}

func (a *app) accountSave(rec accounts.Record) (err er) {
	var store *accounts.T
	if store, err = a.openAccounts(); err != nil {
		return
	}
	defer store.Close()
	if err = store.Save(rec); err != nil {
		return
	}
	a.printf("saved account %s\n", rec.Nickname)
	return
}

func (a *app) accountDelete(pubkey st) (err er) {
	var store *accounts.T
	if store, err = a.openAccounts(); err != nil {
		return
	}
	defer store.Close()
	return store.Delete(pubkey)
}

func (a *app) relaysList() (err er) {
	for i, r := range a.cfg.RelayList() {
		if i == 0 {
			a.printf("%s (default)\n", r)
		} else {
			a.printf("%s\n", r)
		}
	}
	return
}

func (a *app) relaysEdit(edit func(path, url st) ([]st, er), url st) (err er) {
	if _, err = edit(a.cfg.RelayFilePath(), url); err != nil {
		return
	}
	return a.relaysList()
}

// secret finds the secret key to act with: the one given on the command
// line, or that of the selected stored account, or of the only one.
func (a *app) secret() (sec st, err er) {
	if a.args.Secret != "" {
		return a.args.Secret, nil
	}
	var store *accounts.T
	if store, err = a.openAccounts(); err != nil {
		return
	}
	defer store.Close()
	var recs []accounts.Record
	if recs, err = store.List(); err != nil {
		return
	}
	var found []accounts.Record
	for _, r := range recs {
		switch {
		case a.args.Account == "":
			found = append(found, r)
		case r.Nickname == a.args.Account, r.PublicKeyEncoded == a.args.Account:
			found = append(found, r)
		default:
			if pk, e := bech32encoding.NpubToHex(r.PublicKeyEncoded); e == nil &&
				pk == strings.ToLower(a.args.Account) {
				found = append(found, r)
			}
		}
	}
	switch len(found) {
	case 1:
		return found[0].SecretKeyHex, nil
	case 0:
		err = errorf.E("no account found; save one with 'account save' or pass --sec")
	default:
		err = errorf.E("%d accounts match; choose one with --account", len(found))
	}
	return
}

// connect creates a client for the account and connects it to the relay.
func (a *app) connect(c cx) (cl *client.T, err er) {
	var sec st
	if sec, err = a.secret(); err != nil {
		return
	}
	relay := a.args.Relay
	if relay == "" {
		relay = a.cfg.RelayList()[0]
	}
	var b by
	if b, err = keys.ParseSecret(sec); err != nil {
		return
	}
	var pkh st
	if pkh, err = keys.PublicKeyHex(hex.Enc(b)); err != nil {
		return
	}
	opts := client.Options{
		SecretKey: sec,
		Relay:     relay,
		CacheDir:  a.cfg.AccountCache(pkh),
		Session: []ws.Option{
			ws.WithRetryDelay(a.cfg.RetryDelay),
			ws.WithConnectTimeout(a.cfg.ConnectTimeout),
			ws.WithNoticeHandler(func(n st) { log.I.F("NOTICE from %s: %s", relay, n) }),
		},
	}
	if cl, err = client.New(c, opts); err != nil {
		return
	}
	log.I.F("connecting to %s", relay)
	if err = cl.Connect(c); err != nil {
		chk.E(cl.Close())
		return nil, err
	}
	return
}

func (a *app) publishProfile(c cx, cmd *PublishProfileCmd) (err er) {
	var cl *client.T
	if cl, err = a.connect(c); err != nil {
		return
	}
	defer cl.Close()
	md := &profile.Metadata{Name: cmd.Name, DisplayName: cmd.DisplayName, About: cmd.About,
		Picture: cmd.Picture}
	if err = cl.PublishProfile(c, md); err != nil {
		return
	}
	a.printf("published profile of %s\n", cl.PublicKey())
	return
}

func (a *app) profile(c cx, pubkey st) (err er) {
	var cl *client.T
	if cl, err = a.connect(c); err != nil {
		return
	}
	defer cl.Close()
	if pubkey == "" {
		pubkey = cl.PublicKey()
	}
	var md *profile.Metadata
	if md, err = cl.FetchProfile(c, pubkey); err != nil {
		return
	}
	if md == nil {
		a.printf("no profile found\n")
		return
	}
	a.printf("name:         %s\n", md.Name)
	if md.DisplayName != "" {
		a.printf("display name: %s\n", md.DisplayName)
	}
	if md.About != "" {
		a.printf("about:        %s\n", md.About)
	}
	if md.Picture != "" {
		a.printf("picture:      %s\n", md.Picture)
	}
	return
}

func (a *app) follow(c cx, pubkey st) (err er) {
	var cl *client.T
	if cl, err = a.connect(c); err != nil {
		return
	}
	defer cl.Close()
	if err = cl.AddContact(c, pubkey); err != nil {
		return
	}
	a.printf("following %d contacts\n", cl.Contacts.Len())
	return
}

func (a *app) contacts(c cx, watch bo) (err er) {
	var cl *client.T
	if cl, err = a.connect(c); err != nil {
		return
	}
	defer cl.Close()
	lists := make(chan []st, 16)
	eose := make(chan struct{})
	var once sync.Once
	var sub *ws.Subscription
	if sub, err = cl.WatchContacts(c, func(friends []st) {
		select {
		case lists <- friends:
		default:
			log.W.Ln("dropping a follow list update")
		}
	}, ws.WithEOSEHandler(func() { once.Do(func() { close(eose) }) })); err != nil {
		return
	}
	defer sub.Unsub()
	if !watch {
		select {
		case <-eose:
		case <-time.After(ws.DefaultQueryTimeout):
			log.W.Ln("relay did not finish sending stored events")
		case <-c.Done():
			return c.Err()
		}
		a.printContacts(cl.Contacts.Members())
		return
	}
	g, gc := errgroup.WithContext(c)
	g.Go(func() er {
		for {
			select {
			case friends := <-lists:
				a.printf("follow list update:\n")
				a.printContacts(friends)
			case <-gc.Done():
				return nil
			}
		}
	})
	return g.Wait()
}

func (a *app) printContacts(pubkeys []st) {
	for _, pk := range pubkeys {
		npub, err := bech32encoding.HexToNpub(pk)
		if err != nil {
			npub = pk
		}
		a.printf("%s\n", npub)
	}
}

func (a *app) dmSend(c cx, cmd *DMSendCmd) (err er) {
	var cl *client.T
	if cl, err = a.connect(c); err != nil {
		return
	}
	defer cl.Close()
	var res <-chan er
	if res, err = cl.SendDirectMessage(c, cmd.To, cmd.Text); err != nil {
		return
	}
	if err = <-res; err != nil {
		return
	}
	a.printf("sent\n")
	return
}

func (a *app) dmWatch(c cx, friends []st) (err er) {
	var cl *client.T
	if cl, err = a.connect(c); err != nil {
		return
	}
	defer cl.Close()
	msgs := make(chan client.DirectMessage, 64)
	g, gc := errgroup.WithContext(c)
	for _, friend := range friends {
		friend := friend
		g.Go(func() (err er) {
			var sub *ws.Subscription
			if sub, err = cl.WatchDirectMessages(gc, friend, func(msg client.DirectMessage) {
				select {
				case msgs <- msg:
				case <-gc.Done():
				}
			}); err != nil {
				return
			}
			<-gc.Done()
			sub.Unsub()
			return
		})
	}
	g.Go(func() er {
		for {
			select {
			case msg := <-msgs:
				a.printMessage(msg)
			case <-gc.Done():
				return nil
			}
		}
	})
	return g.Wait()
}

func (a *app) printMessage(msg client.DirectMessage) {
	from, err := bech32encoding.HexToNpub(msg.From)
	if err != nil {
		from = msg.From
	}
	when := msg.Event.CreatedAt.Time().Format(time.DateTime)
	if msg.Err != nil {
		a.printf("%s %s: [%v]\n", when, from, msg.Err)
		return
	}
	a.printf("%s %s: %s\n", when, from, msg.Text)
}
