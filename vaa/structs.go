package vaa

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/xerrors"
)

const (
	// SupportedVAAVersion is the only VAA version produced and accepted.
	SupportedVAAVersion = 0x01

	// SignatureLength is the length of a recoverable secp256k1 signature (r||s||v).
	SignatureLength = 65

	// envelopeHeaderLength is timestamp | nonce | emitter chain | emitter address | sequence | consistency level.
	envelopeHeaderLength = 4 + 4 + 2 + 32 + 8 + 1

	// signedHeaderLength is version | guardian set index | signature count.
	signedHeaderLength = 1 + 4 + 1

	signatureEntryLength = 1 + SignatureLength

	// DefaultConsistencyLevel is the consistency level of governance messages.
	DefaultConsistencyLevel = 32
)

// Envelope is the observed body of a VAA: the part covered by guardian signatures.
type Envelope struct {
	Timestamp        time.Time
	Nonce            uint32
	EmitterChain     ChainID
	EmitterAddress   Address
	Sequence         uint64
	ConsistencyLevel uint8
	Payload          []byte
}

// Signature is one guardian's signature over the envelope digest.
type Signature struct {
	Index     uint8
	Signature [SignatureLength]byte
}

// VAA is a signed envelope.
type VAA struct {
	Version          uint8
	GuardianSetIndex uint32
	Signatures       []*Signature
	Envelope
}

// NewGovernanceEnvelope wraps a governance action as a message from emitter.
func NewGovernanceEnvelope(emitter GovernanceEmitter, timestamp time.Time, nonce uint32, sequence uint64, consistencyLevel uint8, action []byte) Envelope {
	return Envelope{
		Timestamp:        timestamp,
		Nonce:            nonce,
		EmitterChain:     emitter.Chain,
		EmitterAddress:   emitter.Address,
		Sequence:         sequence,
		ConsistencyLevel: consistencyLevel,
		Payload:          action,
	}
}

// Validate checks the envelope fits its wire encoding: the timestamp must be
// representable as unsigned 32 bit seconds.
func (e *Envelope) Validate() error {
	ts := e.Timestamp.Unix()
	if ts < 0 || ts > math.MaxUint32 {
		return xerrors.Errorf("%w: timestamp %d is outside the 32 bit range", ErrEncoding, ts)
	}
	return nil
}

// Marshal encodes the envelope. The encoding is deterministic; the timestamp is
// truncated to whole seconds. Callers validate the envelope first.
func (e *Envelope) Marshal() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, envelopeHeaderLength+len(e.Payload)))
	MustWrite(buf, binary.BigEndian, uint32(e.Timestamp.Unix())) // #nosec G115 -- checked by Validate
	MustWrite(buf, binary.BigEndian, e.Nonce)
	MustWrite(buf, binary.BigEndian, uint16(e.EmitterChain))
	buf.Write(e.EmitterAddress[:])
	MustWrite(buf, binary.BigEndian, e.Sequence)
	MustWrite(buf, binary.BigEndian, e.ConsistencyLevel)
	buf.Write(e.Payload)
	return buf.Bytes()
}

// EncodeEnvelope encodes the header fields in big-endian fixed widths followed by action.
func EncodeEnvelope(timestamp uint32, nonce uint32, emitter GovernanceEmitter, sequence uint64, consistencyLevel uint8, action []byte) []byte {
	e := NewGovernanceEnvelope(emitter, time.Unix(int64(timestamp), 0), nonce, sequence, consistencyLevel, action)
	return e.Marshal()
}

// UnmarshalEnvelope decodes an envelope produced by Marshal.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	if len(data) < envelopeHeaderLength {
		return nil, xerrors.Errorf("%w: envelope too short: %d bytes", ErrEncoding, len(data))
	}

	e := &Envelope{}
	e.Timestamp = time.Unix(int64(binary.BigEndian.Uint32(data[0:4])), 0)
	e.Nonce = binary.BigEndian.Uint32(data[4:8])
	e.EmitterChain = ChainID(binary.BigEndian.Uint16(data[8:10]))
	copy(e.EmitterAddress[:], data[10:42])
	e.Sequence = binary.BigEndian.Uint64(data[42:50])
	e.ConsistencyLevel = data[50]
	e.Payload = make([]byte, len(data)-envelopeHeaderLength)
	copy(e.Payload, data[envelopeHeaderLength:])
	return e, nil
}

// SigningDigest returns the hash guardians sign: keccak256(keccak256(body)).
func SigningDigest(body []byte) common.Hash {
	return crypto.Keccak256Hash(crypto.Keccak256Hash(body).Bytes())
}

// SigningDigest returns the digest of the VAA's envelope.
func (v *VAA) SigningDigest() common.Hash {
	return SigningDigest(v.Envelope.Marshal())
}

// Marshal encodes the signed VAA: version | guardian set index | signature count |
// signatures | envelope.
func (v *VAA) Marshal() ([]byte, error) {
	if len(v.Signatures) > 0xff {
		return nil, xerrors.Errorf("%w: too many signatures: %d", ErrEncoding, len(v.Signatures))
	}
	if err := v.Envelope.Validate(); err != nil {
		return nil, err
	}
	body := v.Envelope.Marshal()

	buf := bytes.NewBuffer(make([]byte, 0, signedHeaderLength+len(v.Signatures)*signatureEntryLength+len(body)))
	MustWrite(buf, binary.BigEndian, v.Version)
	MustWrite(buf, binary.BigEndian, v.GuardianSetIndex)
	MustWrite(buf, binary.BigEndian, uint8(len(v.Signatures))) // #nosec G115 -- checked above
	for _, sig := range v.Signatures {
		MustWrite(buf, binary.BigEndian, sig.Index)
		buf.Write(sig.Signature[:])
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// Unmarshal decodes a signed VAA.
func Unmarshal(data []byte) (*VAA, error) {
	if len(data) < signedHeaderLength {
		return nil, xerrors.Errorf("%w: VAA too short: %d bytes", ErrEncoding, len(data))
	}

	v := &VAA{}
	v.Version = data[0]
	if v.Version != SupportedVAAVersion {
		return nil, xerrors.Errorf("%w: unsupported VAA version: %d", ErrEncoding, v.Version)
	}
	v.GuardianSetIndex = binary.BigEndian.Uint32(data[1:5])

	count := int(data[5])
	offset := signedHeaderLength
	if len(data) < offset+count*signatureEntryLength {
		return nil, xerrors.Errorf("%w: VAA declares %d signatures but is %d bytes", ErrEncoding, count, len(data))
	}
	v.Signatures = make([]*Signature, 0, count)
	for i := 0; i < count; i++ {
		sig := &Signature{Index: data[offset]}
		if i > 0 && sig.Index <= v.Signatures[i-1].Index {
			return nil, xerrors.Errorf("%w: guardian index %d after %d, signatures must be sorted and unique", ErrEncoding, sig.Index, v.Signatures[i-1].Index)
		}
		copy(sig.Signature[:], data[offset+1:offset+signatureEntryLength])
		v.Signatures = append(v.Signatures, sig)
		offset += signatureEntryLength
	}

	e, err := UnmarshalEnvelope(data[offset:])
	if err != nil {
		return nil, err
	}
	v.Envelope = *e
	return v, nil
}

// ParseHex decodes a hex encoded signed VAA, as printed by the sign command.
func ParseHex(s string) (*VAA, error) {
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return nil, xerrors.Errorf("%w: decode VAA hex: %v", ErrEncoding, err)
	}
	return Unmarshal(b)
}

// VerifyGovernanceEmitter checks the VAA was emitted by the governance emitter.
func (v *VAA) VerifyGovernanceEmitter(emitter GovernanceEmitter) error {
	if v.EmitterChain != emitter.Chain {
		return xerrors.Errorf("%w: emitter chain %d is not the governance chain %d", ErrEncoding, v.EmitterChain, emitter.Chain)
	}
	if v.EmitterAddress != emitter.Address {
		return xerrors.Errorf("%w: emitter address %s is not the governance emitter %s", ErrEncoding, v.EmitterAddress, emitter.Address)
	}
	return nil
}

// GovernanceMessage decodes the payload as a governance action.
func (v *VAA) GovernanceMessage() (*GovernanceMessage, error) {
	return DecodeGovernanceAction(v.Payload)
}

// RecoverSigners recovers the guardian address behind each signature, keyed by guardian index.
func (v *VAA) RecoverSigners() (map[uint8]common.Address, error) {
	digest := v.SigningDigest()
	out := make(map[uint8]common.Address, len(v.Signatures))
	for _, sig := range v.Signatures {
		pub, err := crypto.SigToPub(digest.Bytes(), sig.Signature[:])
		if err != nil {
			return nil, xerrors.Errorf("%w: recover signer %d: %v", ErrSigning, sig.Index, err)
		}
		out[sig.Index] = crypto.PubkeyToAddress(*pub)
	}
	return out, nil
}

// sortSignatures orders signatures by guardian index and rejects duplicates.
func sortSignatures(sigs []*Signature) error {
	sort.Slice(sigs, func(i, j int) bool {
		return sigs[i].Index < sigs[j].Index
	})
	for i := 1; i < len(sigs); i++ {
		if sigs[i].Index == sigs[i-1].Index {
			return xerrors.Errorf("%w: duplicate guardian index %d", ErrSigning, sigs[i].Index)
		}
	}
	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
