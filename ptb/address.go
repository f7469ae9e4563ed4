package ptb

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/xerrors"
)

var ErrInvalidID = errors.New("invalid object id")

// ObjectID identifies an object or package on the ledger. Account addresses share the representation.
type ObjectID [32]byte

type Address = ObjectID

// ClockObjectID is the shared system clock.
var ClockObjectID = ObjectID{31: 0x6}

// ClockInitialSharedVersion is the version at which the clock became shared.
const ClockInitialSharedVersion = 1

// ParseObjectID parses a hex object id. Short ids are left padded with zeroes, so
// "0x2" and its full 64 character form parse to the same id.
func ParseObjectID(s string) (ObjectID, error) {
	var id ObjectID
	v := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if v == "" || len(v) > 2*len(id) {
		return id, xerrors.Errorf("%w: %q", ErrInvalidID, s)
	}
	if len(v)%2 == 1 {
		v = "0" + v
	}
	b, err := hex.DecodeString(v)
	if err != nil {
		return id, xerrors.Errorf("%w: %q: %v", ErrInvalidID, s, err)
	}
	copy(id[len(id)-len(b):], b)
	return id, nil
}

// MustParseObjectID is ParseObjectID for constants.
func MustParseObjectID(s string) ObjectID {
	id, err := ParseObjectID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NormalizeObjectID returns the canonical 0x-prefixed 64 character form of s.
func NormalizeObjectID(s string) (string, error) {
	id, err := ParseObjectID(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (id ObjectID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id ObjectID) IsZero() bool {
	return id == ObjectID{}
}

func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ObjectID) UnmarshalText(text []byte) error {
	v, err := ParseObjectID(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
