// Package identity derives and formats a node's 24-hex-character chain
// identifier from three fixed-size words read through an abstract chip
// info source.
package identity

import (
	"fmt"

	"github.com/vinagres/sramchain/wire"
)

// ChipInfo supplies the three immutable 32-bit words a node's identity is
// derived from. A real chip has no userspace-readable immutable ID
// register, so production builds back this with a config-supplied value
// and tests back it with a fixed stub, per the firmware's own design note
// about treating chip identity as an external collaborator.
type ChipInfo interface {
	IDWords() (hi, mid, lo uint32)
}

// Static is the simplest ChipInfo: three words fixed at construction,
// suitable both for the config-supplied production case and for tests.
type Static struct {
	Hi, Mid, Lo uint32
}

func (s Static) IDWords() (hi, mid, lo uint32) { return s.Hi, s.Mid, s.Lo }

// UID formats the three words into the wire uid field: 24 hex digits
// followed by a trailing NUL, matching the firmware's
// snprintf(uid_buf, UID_SIZE, "%08X%08X%08X", ...).
func UID(c ChipInfo) [wire.UIDSize]byte {
	hi, mid, lo := c.IDWords()
	s := fmt.Sprintf("%08X%08X%08X", hi, mid, lo)

	var uid [wire.UIDSize]byte
	copy(uid[:], s)
	return uid
}
