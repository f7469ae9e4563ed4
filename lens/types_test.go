package lens

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wormhole-foundation/suigov/ptb"
)

func TestUint64(t *testing.T) {
	var v struct {
		A Uint64 `json:"a"`
		B Uint64 `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"42","b":7}`), &v))
	assert.EqualValues(t, 42, v.A)
	assert.EqualValues(t, 7, v.B)

	out, err := json.Marshal(v.A)
	require.NoError(t, err)
	assert.Equal(t, `"42"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"x"}`), &v))
}

func TestOwnerUnmarshal(t *testing.T) {
	var o Owner
	require.NoError(t, json.Unmarshal([]byte(`"Immutable"`), &o))
	assert.True(t, o.Immutable)
	assert.False(t, o.IsShared())

	require.NoError(t, json.Unmarshal([]byte(`{"Shared":{"initial_shared_version":17}}`), &o))
	require.True(t, o.IsShared())
	assert.EqualValues(t, 17, *o.InitialSharedVersion)

	require.NoError(t, json.Unmarshal([]byte(`{"AddressOwner":"0xabc"}`), &o))
	require.NotNil(t, o.AddressOwner)
	assert.Equal(t, ptb.MustParseObjectID("0xabc"), *o.AddressOwner)
	assert.False(t, o.IsShared())

	assert.Error(t, json.Unmarshal([]byte(`"Mutable"`), &o))
	assert.Error(t, json.Unmarshal([]byte(`{"Unknown":1}`), &o))
}

func TestObjectUnmarshal(t *testing.T) {
	data := `{
		"objectId": "0x5306f64e312b581766351c07af79c72fcb1cd25147157fdc2f8ad76de9a3fb6a",
		"version": "12",
		"digest": "4mVn6w7qZQjDJyoRXr3GsP2Vbd6ETxpZ8ZFLJDVb1RxC",
		"owner": {"Shared": {"initial_shared_version": 3}},
		"content": {
			"dataType": "moveObject",
			"type": "0x5::state::State",
			"fields": {"upgrade_cap": {"fields": {"package": "0x5"}}}
		}
	}`
	var obj Object
	require.NoError(t, json.Unmarshal([]byte(data), &obj))
	assert.EqualValues(t, 12, obj.Version)
	assert.True(t, obj.Owner.IsShared())
	assert.Equal(t, DataTypeMoveObject, obj.Content.DataType)
	assert.Contains(t, string(obj.Content.Fields), "upgrade_cap")
}

func TestTransactionResponseStatus(t *testing.T) {
	cp := Uint64(10)
	ok := &TransactionResponse{Digest: "d", Effects: &Effects{Status: ExecutionStatus{Status: ExecutionSuccess}}, Checkpoint: &cp}
	assert.True(t, ok.Succeeded())
	assert.True(t, ok.Finalized())
	assert.NoError(t, ok.Err())

	failed := &TransactionResponse{Digest: "d", Effects: &Effects{Status: ExecutionStatus{Status: ExecutionFailure, Error: "MoveAbort(digest mismatch)"}}}
	assert.False(t, failed.Finalized())
	err := failed.Err()
	assert.ErrorIs(t, err, ErrTransactionRejected)
	assert.Contains(t, err.Error(), "MoveAbort(digest mismatch)")

	assert.ErrorIs(t, (&TransactionResponse{}).Err(), ErrTransactionRejected)
}
