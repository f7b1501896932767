// Command lumina is a nostr client for the command line: it manages keys,
// accounts and relays, publishes and fetches profiles, follows contacts and
// sends and receives encrypted direct messages.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/alexflint/go-arg"
	"github.com/pkg/profile"

	"luminaflow.lol/config"
	"luminaflow.lol/context"
	"luminaflow.lol/lol"
)

type KeygenCmd struct {
	Save st `arg:"--save" placeholder:"NICKNAME" help:"store the new key in the account store under this nickname"`
}

type EncodeCmd struct {
	Kind st `arg:"positional,required" help:"nsec or npub"`
	Hex  st `arg:"positional,required" help:"the key as 64 hex characters"`
}

type DecodeCmd struct {
	Key st `arg:"positional,required" help:"an nsec or npub"`
}

type PubCmd struct {
	Secret st `arg:"positional,required" help:"a secret key as nsec or hex"`
}

type AccountListCmd struct{}

type AccountSaveCmd struct {
	Secret   st `arg:"positional,required" help:"secret key as nsec or hex"`
	Nickname st `arg:"positional" help:"name to show for the account"`
}

type AccountDeleteCmd struct {
	Pubkey st `arg:"positional,required" help:"public key of the account as npub or hex"`
}

type AccountCmd struct {
	List   *AccountListCmd   `arg:"subcommand:list" help:"list stored accounts"`
	Save   *AccountSaveCmd   `arg:"subcommand:save" help:"store an account"`
	Delete *AccountDeleteCmd `arg:"subcommand:delete" help:"remove an account"`
}

type RelaysListCmd struct{}

type RelaysAddCmd struct {
	URL st `arg:"positional,required" help:"relay address"`
}

type RelaysRemoveCmd struct {
	URL st `arg:"positional,required" help:"relay address"`
}

type RelaysCmd struct {
	List   *RelaysListCmd   `arg:"subcommand:list" help:"show the relay list"`
	Add    *RelaysAddCmd    `arg:"subcommand:add" help:"add a relay to the list"`
	Remove *RelaysRemoveCmd `arg:"subcommand:remove" help:"remove a relay from the list"`
}

type PublishProfileCmd struct {
	Name        st `arg:"--name,required" help:"name"`
	DisplayName st `arg:"--display-name" help:"display name"`
	About       st `arg:"--about" help:"about text"`
	Picture     st `arg:"--picture" help:"picture URL"`
}

type ProfileCmd struct {
	Pubkey st `arg:"positional" help:"public key as npub or hex (default is the account's own)"`
}

type FollowCmd struct {
	Pubkey st `arg:"positional,required" help:"public key to follow as npub or hex"`
}

type ContactsCmd struct {
	Watch bo `arg:"-w,--watch" help:"keep running and print follow list updates"`
}

type DMSendCmd struct {
	To   st `arg:"positional,required" help:"recipient public key as npub or hex"`
	Text st `arg:"positional,required" help:"message text"`
}

type DMWatchCmd struct {
	From []st `arg:"positional,required" help:"public keys of the friends to receive messages from"`
}

type DMCmd struct {
	Send  *DMSendCmd  `arg:"subcommand:send" help:"send an encrypted direct message"`
	Watch *DMWatchCmd `arg:"subcommand:watch" help:"print direct messages as they arrive"`
}

type EnvCmd struct{}

type Args struct {
	Account st `arg:"-a,--account" help:"account to use, by npub, hex public key or nickname"`
	Secret  st `arg:"-s,--sec,env:LUMINA_SECRET" help:"secret key to use instead of a stored account"`
	Relay   st `arg:"-r,--relay" help:"relay to use instead of the first of the relay list"`

	Keygen         *KeygenCmd         `arg:"subcommand:keygen" help:"generate a new key pair"`
	Encode         *EncodeCmd         `arg:"subcommand:encode" help:"encode a hex key as nsec or npub"`
	Decode         *DecodeCmd         `arg:"subcommand:decode" help:"decode an nsec or npub to hex"`
	Pub            *PubCmd            `arg:"subcommand:pub" help:"derive the public key of a secret key"`
	AccountCmd     *AccountCmd        `arg:"subcommand:account" help:"manage stored accounts"`
	Relays         *RelaysCmd         `arg:"subcommand:relays" help:"manage the relay list"`
	PublishProfile *PublishProfileCmd `arg:"subcommand:publish-profile" help:"publish the account's profile"`
	Profile        *ProfileCmd        `arg:"subcommand:profile" help:"fetch a profile"`
	Follow         *FollowCmd         `arg:"subcommand:follow" help:"add a contact and publish the follow list"`
	Contacts       *ContactsCmd       `arg:"subcommand:contacts" help:"fetch the account's follow list"`
	DM             *DMCmd             `arg:"subcommand:dm" help:"encrypted direct messages"`
	Env            *EnvCmd            `arg:"subcommand:env" help:"print the configuration as a shell script"`
}

func (Args) Description() st {
	return "lumina is a nostr client for keys, profiles, contacts and direct messages\n"
}

func main() {
	var args Args
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	cfg, err := config.New()
	if chk.E(err) {
		fail(err)
	}
	lol.SetLogLevel(cfg.LogLevel)
	if cfg.Pprof {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Profile)).Stop()
	}
	c, cancel := signal.NotifyContext(context.Bg(), os.Interrupt)
	defer cancel()
	a := &app{cfg: cfg, args: &args, out: os.Stdout}
	if err = a.run(c, p.Subcommand()); err != nil {
		cancel()
		fail(err)
	}
}

func fail(err er) {
	_, _ = fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
