package txparams

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullTxObject(t *testing.T) {
	raw := json.RawMessage(`[{"from":"0xfrom","to":"0xto","value":"0x64","data":"0xabcd"}]`)
	p, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "0xfrom", p.From)
	assert.Equal(t, "0xto", p.To)
	assert.Equal(t, big.NewInt(100), p.Value)
	assert.Equal(t, "0xabcd", p.Data)
}

func TestParseMissingFromToDefaultsToZeroAddress(t *testing.T) {
	raw := json.RawMessage(`[{"value":"0x1"}]`)
	p, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "0x0", p.From)
	assert.Equal(t, "0x0", p.To)
}

func TestParseMissingValueDefaultsToZero(t *testing.T) {
	raw := json.RawMessage(`[{"from":"0xfrom","to":"0xto"}]`)
	p, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), p.Value)
}

func TestParseDataFallsBackToInput(t *testing.T) {
	raw := json.RawMessage(`[{"from":"0xfrom","to":"0xto","input":"0xdeadbeef"}]`)
	p, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", p.Data)
}

func TestParseDataPreferredOverInputWhenBothPresent(t *testing.T) {
	raw := json.RawMessage(`[{"data":"0xdata","input":"0xinput"}]`)
	p, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "0xdata", p.Data)
}

func TestParseRejectsNonArrayParams(t *testing.T) {
	_, err := Parse(json.RawMessage(`{"from":"0xfrom"}`))
	assert.Error(t, err)
}

func TestParseRejectsEmptyArray(t *testing.T) {
	_, err := Parse(json.RawMessage(`[]`))
	assert.Error(t, err)
}

func TestParseRejectsMalformedTxObject(t *testing.T) {
	_, err := Parse(json.RawMessage(`["not-an-object"]`))
	assert.Error(t, err)
}

func TestParseMalformedValueDefaultsToZero(t *testing.T) {
	raw := json.RawMessage(`[{"value":"not-hex"}]`)
	p, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), p.Value)
}
