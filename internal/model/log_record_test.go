package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecordJSONRoundTrip(t *testing.T) {
	record := LogRecord{
		ChainID:     1,
		BlockNumber: 36000000,
		BlockHash:   "0xabc123",
		TxHash:      "0xdef456",
		TxIndex:     7,
		TxFrom:      "0x2222222222222222222222222222222222222222",
		LogIndex:    12,
		Address:     "0x1111111111111111111111111111111111111111",
		Topics:      []string{"0xaaa", "0xbbb"},
		Data:        "0xdeadbeef",
		Timestamp:   1700000000,
		IngestedAt:  "2024-01-01T00:00:00Z",
	}

	b, err := json.Marshal(record)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"tx_from":"0x2222222222222222222222222222222222222222"`)

	var decoded LogRecord
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, record, decoded)
}
