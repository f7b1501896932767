// Package kind is the event type codes used by the client.
package kind

import (
	"strconv"
)

// T is the event type code of an event.
type T struct {
	K uint16
}

func New[V uint16 | uint32 | int32 | int64 | no](k V) (ki *T) { return &T{uint16(k)} }

func (k *T) ToInt() no {
	if k == nil {
		return 0
	}
	return no(k.K)
}

func (k *T) ToU16() uint16 {
	if k == nil {
		return 0
	}
	return k.K
}

func (k *T) Equal(k2 *T) bo {
	if k == nil || k2 == nil {
		return k == k2
	}
	return k.K == k2.K
}

func (k *T) Name() st {
	if n, ok := Map[k.ToU16()]; ok {
		return n
	}
	return "unknown"
}

// Marshal appends the decimal form of the kind.
func (k *T) Marshal(dst by) (b by) { return strconv.AppendUint(dst, uint64(k.ToU16()), 10) }

var (
	// ProfileMetadata is a JSON object with the name, about and picture of the
	// publishing key.
	ProfileMetadata = &T{0}
	// TextNote is a plain text public note.
	TextNote = &T{1}
	// FollowList is the list of keys an account follows, as p tags.
	FollowList = &T{3}
	// EncryptedDirectMessage is a message encrypted to the key in its p tag.
	EncryptedDirectMessage = &T{4}
)

var Map = map[uint16]st{
	ProfileMetadata.K:        "ProfileMetadata",
	TextNote.K:               "TextNote",
	FollowList.K:             "FollowList",
	EncryptedDirectMessage.K: "EncryptedDirectMessage",
}
