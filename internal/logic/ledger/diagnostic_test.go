package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDiag(t *testing.T, raw string) any {
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestParseInstructionError(t *testing.T) {
	ie, ok := ParseInstructionError(decodeDiag(t, `{"InstructionError":[1,{"Custom":6000}]}`))
	require.True(t, ok)
	assert.Equal(t, 1, ie.Index)
	require.NotNil(t, ie.Custom)
	assert.Equal(t, uint32(6000), *ie.Custom)

	ie, ok = ParseInstructionError(decodeDiag(t, `{"InstructionError":[0,"InvalidAccountData"]}`))
	require.True(t, ok)
	assert.Nil(t, ie.Custom)
	assert.Equal(t, "InvalidAccountData", ie.Name)

	ie, ok = ParseInstructionError(decodeDiag(t, `{"InstructionError":[2,{"BorshIoError":"Unknown"}]}`))
	require.True(t, ok)
	assert.Equal(t, "BorshIoError", ie.Name)

	_, ok = ParseInstructionError("AccountInUse")
	assert.False(t, ok)
	_, ok = ParseInstructionError(nil)
	assert.False(t, ok)
}

func TestIsAccountInUse(t *testing.T) {
	logs := []string{
		"Program 11111111111111111111111111111111 invoke [2]",
		"Allocate: account Address { address: 9xQ..., base: None } already in use",
	}
	assert.True(t, IsAccountInUse(nil, logs))
	assert.True(t, IsAccountInUse("AccountInUse", nil))
	assert.False(t, IsAccountInUse(nil, []string{"Program log: ok"}))
}

func TestCommitmentRank(t *testing.T) {
	assert.Less(t, CommitmentRank(CommitmentProcessed), CommitmentRank(CommitmentConfirmed))
	assert.Less(t, CommitmentRank(CommitmentConfirmed), CommitmentRank(CommitmentFinalized))
	assert.Equal(t, -1, CommitmentRank("bogus"))
}
