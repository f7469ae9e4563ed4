package lens

import (
	"bytes"
	"encoding/json"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/ptb"
)

const (
	ExecutionSuccess = "success"
	ExecutionFailure = "failure"

	DataTypeMoveObject = "moveObject"
	DataTypePackage    = "package"
)

// Uint64 decodes from either a JSON number or a decimal string, the node uses both.
type Uint64 uint64

func (u *Uint64) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return xerrors.Errorf("decode u64 %s: %w", data, err)
	}
	*u = Uint64(v)
	return nil
}

func (u Uint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

type ObjectOptions struct {
	ShowType    bool `json:"showType,omitempty"`
	ShowOwner   bool `json:"showOwner,omitempty"`
	ShowContent bool `json:"showContent,omitempty"`
}

type ResponseOptions struct {
	ShowInput         bool `json:"showInput,omitempty"`
	ShowEffects       bool `json:"showEffects,omitempty"`
	ShowEvents        bool `json:"showEvents,omitempty"`
	ShowObjectChanges bool `json:"showObjectChanges,omitempty"`
}

type Object struct {
	ObjectID ptb.ObjectID   `json:"objectId"`
	Version  Uint64         `json:"version"`
	Digest   string         `json:"digest"`
	Type     string         `json:"type,omitempty"`
	Owner    *Owner         `json:"owner,omitempty"`
	Content  *ObjectContent `json:"content,omitempty"`
}

type ObjectContent struct {
	DataType          string          `json:"dataType"`
	Type              string          `json:"type,omitempty"`
	HasPublicTransfer bool            `json:"hasPublicTransfer,omitempty"`
	Fields            json.RawMessage `json:"fields,omitempty"`
}

// Owner describes who may use an object. At most one of the fields is set, an
// owner with none set is Immutable.
type Owner struct {
	AddressOwner         *ptb.Address  `json:"AddressOwner,omitempty"`
	ObjectOwner          *ptb.ObjectID `json:"ObjectOwner,omitempty"`
	InitialSharedVersion *Uint64       `json:"-"`
	Immutable            bool          `json:"-"`
}

func (o *Owner) IsShared() bool {
	return o != nil && o.InitialSharedVersion != nil
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if name != "Immutable" {
			return xerrors.Errorf("unknown owner %q", name)
		}
		*o = Owner{Immutable: true}
		return nil
	}

	var raw struct {
		AddressOwner *ptb.Address  `json:"AddressOwner"`
		ObjectOwner  *ptb.ObjectID `json:"ObjectOwner"`
		Shared       *struct {
			InitialSharedVersion Uint64 `json:"initial_shared_version"`
		} `json:"Shared"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return xerrors.Errorf("decode owner: %w", err)
	}
	*o = Owner{AddressOwner: raw.AddressOwner, ObjectOwner: raw.ObjectOwner}
	if raw.Shared != nil {
		v := raw.Shared.InitialSharedVersion
		o.InitialSharedVersion = &v
	}
	if o.AddressOwner == nil && o.ObjectOwner == nil && o.InitialSharedVersion == nil {
		return xerrors.Errorf("unknown owner %s", data)
	}
	return nil
}

type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Effects struct {
	Status ExecutionStatus `json:"status"`
}

type Event struct {
	Type       string          `json:"type"`
	Sender     string          `json:"sender,omitempty"`
	ParsedJSON json.RawMessage `json:"parsedJson,omitempty"`
}

type ObjectChange struct {
	Type      string `json:"type"`
	PackageID string `json:"packageId,omitempty"`
	ObjectID  string `json:"objectId,omitempty"`
}

type TransactionResponse struct {
	Digest        string         `json:"digest"`
	Effects       *Effects       `json:"effects,omitempty"`
	Events        []Event        `json:"events,omitempty"`
	ObjectChanges []ObjectChange `json:"objectChanges,omitempty"`
	Checkpoint    *Uint64        `json:"checkpoint,omitempty"`
	Errors        []string       `json:"errors,omitempty"`
}

// Succeeded reports whether the transaction executed with a success status.
func (r *TransactionResponse) Succeeded() bool {
	return r.Effects != nil && r.Effects.Status.Status == ExecutionSuccess
}

// Finalized reports whether the transaction is included in a checkpoint.
func (r *TransactionResponse) Finalized() bool {
	return r.Checkpoint != nil
}

// Err returns ErrTransactionRejected carrying the ledger's reason when the transaction did not succeed.
func (r *TransactionResponse) Err() error {
	if r.Succeeded() {
		return nil
	}
	reason := "no effects"
	if r.Effects != nil {
		reason = r.Effects.Status.Error
	}
	if len(r.Errors) > 0 {
		reason = r.Errors[0]
	}
	return xerrors.Errorf("%s: %s: %w", r.Digest, reason, ErrTransactionRejected)
}
