package upgrade

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wormhole-foundation/suigov/lens"
	"github.com/wormhole-foundation/suigov/ptb"
)

type MockedAPI struct {
	mock.Mock
}

func (m *MockedAPI) GetObject(ctx context.Context, id ptb.ObjectID, opts lens.ObjectOptions) (*lens.Object, error) {
	args := m.Called(ctx, id, opts)
	obj, _ := args.Get(0).(*lens.Object)
	return obj, args.Error(1)
}

func (m *MockedAPI) SignAndExecuteTransaction(ctx context.Context, tx *ptb.Transaction, opts lens.ResponseOptions) (*lens.TransactionResponse, error) {
	args := m.Called(ctx, tx, opts)
	resp, _ := args.Get(0).(*lens.TransactionResponse)
	return resp, args.Error(1)
}

func (m *MockedAPI) GetTransaction(ctx context.Context, digest string, opts lens.ResponseOptions) (*lens.TransactionResponse, error) {
	args := m.Called(ctx, digest, opts)
	resp, _ := args.Get(0).(*lens.TransactionResponse)
	return resp, args.Error(1)
}

func stateObject(fields string) *lens.Object {
	return &lens.Object{
		ObjectID: testStateID,
		Content: &lens.ObjectContent{
			DataType: lens.DataTypeMoveObject,
			Type:     "0xaaaa::state::State",
			Fields:   json.RawMessage(fields),
		},
	}
}

func TestResolverResolve(t *testing.T) {
	api := new(MockedAPI)
	api.On("GetObject", mock.Anything, testStateID, lens.ObjectOptions{ShowContent: true}).
		Return(stateObject(`{"id":{"id":"0x3135"},"upgrade_cap":{"type":"0x2::package::UpgradeCap","fields":{"id":{"id":"0x99"},"package":"0xaaaa","version":"1","policy":0}}}`), nil).
		Once()

	pkg, err := NewResolver(api).Resolve(context.Background(), testStateID)
	require.NoError(t, err)
	assert.Equal(t, testPackage, pkg)
	api.AssertExpectations(t)
}

func TestResolverErrors(t *testing.T) {
	api := new(MockedAPI)
	api.On("GetObject", mock.Anything, testStateID, mock.Anything).Return(nil, lens.ErrObjectNotFound)
	_, err := NewResolver(api).Resolve(context.Background(), testStateID)
	assert.ErrorIs(t, err, ErrResolution)

	pkgObject := stateObject(`{}`)
	pkgObject.Content.DataType = lens.DataTypePackage

	testCases := map[string]*lens.Object{
		"no content":      {ObjectID: testStateID},
		"package":         pkgObject,
		"no upgrade cap":  stateObject(`{"id":{"id":"0x1"}}`),
		"no package":      stateObject(`{"upgrade_cap":{"fields":{}}}`),
		"cap not object":  stateObject(`{"upgrade_cap":"0x1"}`),
		"package number":  stateObject(`{"upgrade_cap":{"fields":{"package":7}}}`),
		"package invalid": stateObject(`{"upgrade_cap":{"fields":{"package":"0xnothex"}}}`),
		"fields not json": stateObject(`nope`),
	}
	for name, obj := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := PackageFromState(obj)
			assert.ErrorIs(t, err, ErrResolution)
		})
	}
	_, err = PackageFromState(nil)
	assert.ErrorIs(t, err, ErrResolution)
}

func TestLookupField(t *testing.T) {
	data := json.RawMessage(`{"a":{"b":{"c":"x","n":3,"z":null}}}`)

	s, err := lookupField[string](data, "a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	n, err := lookupField[float64](data, "a.b.n")
	require.NoError(t, err)
	assert.Equal(t, float64(3), n)

	_, err = lookupField[string](data, "a.b.n")
	assert.Error(t, err)
	_, err = lookupField[string](data, "a.b.z")
	assert.Error(t, err)
	_, err = lookupField[string](data, "a.c.x")
	assert.Error(t, err)
	_, err = lookupField[string](data, "a.b.c.d")
	assert.True(t, err != nil && !errors.Is(err, ErrResolution))
}
