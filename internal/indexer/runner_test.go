package indexer

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"poolScope/internal/model"
)

type fakeSource struct {
	logs        []types.Log
	topics      []common.Hash
	senderFails int
	maxSpan     uint64
	queries     []BlockRange
}

func (f *fakeSource) GetChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeSource) LatestBlockNumber(context.Context) (uint64, error) { return 20, nil }

func (f *fakeSource) FilterLogs(_ context.Context, from, to uint64, _ []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	f.topics = topic0
	f.queries = append(f.queries, BlockRange{From: from, To: to})
	if f.maxSpan > 0 && to-from+1 > f.maxSpan {
		return nil, errors.New("query returned more than 10000 results")
	}
	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber >= from && l.BlockNumber <= to {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeSource) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1_700_000_000 + number*12, nil
}

func (f *fakeSource) TxSender(_ context.Context, txHash, _ common.Hash, _ uint) (string, error) {
	if f.senderFails > 0 {
		f.senderFails--
		return "", errors.New("temporary")
	}
	return "0x" + txHash.Hex()[26:], nil
}

type captureSink struct {
	records []model.LogRecord
}

func (c *captureSink) PutLogBatch(logs []model.LogRecord) error {
	c.records = append(c.records, logs...)
	return nil
}

func TestRunnerDefaultsTopicsAndRecordsOrigin(t *testing.T) {
	tx := common.HexToHash("0x00000000000000000000000099999999999999999999999999999999999999aa")
	src := &fakeSource{
		logs: []types.Log{
			{BlockNumber: 5, TxHash: tx, Index: 0, Topics: []common.Hash{common.HexToHash("0x01")}},
			{BlockNumber: 5, TxHash: tx, Index: 0, Topics: []common.Hash{common.HexToHash("0x01")}},
			{BlockNumber: 9, TxHash: tx, Index: 3, Topics: []common.Hash{common.HexToHash("0x02")}},
		},
		senderFails: 1,
	}
	sink := &captureSink{}

	r := NewRunner(RunConfig{
		FromBlock:    1,
		ToBlock:      10,
		BatchSize:    4,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}, src, sink, zaptest.NewLogger(t))
	require.NoError(t, r.Run(t.Context()))

	assert.Len(t, src.topics, 5)
	require.Len(t, sink.records, 2)
	assert.Equal(t, "0x99999999999999999999999999999999999999aa", sink.records[0].TxFrom)
	assert.Equal(t, uint64(1_700_000_000+5*12), sink.records[0].Timestamp)
	assert.Equal(t, uint64(9), sink.records[1].BlockNumber)
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	filter := Filter{Topic0: []common.Hash{common.HexToHash("0x01")}}
	cp := NewCheckpointStore(path, true)
	require.NoError(t, cp.Save(1, filter.Fingerprint(), 6))

	src := &fakeSource{logs: []types.Log{
		{BlockNumber: 5, Index: 0},
		{BlockNumber: 8, Index: 1},
	}}
	sink := &captureSink{}
	r := NewRunner(RunConfig{
		FromBlock:         1,
		ToBlock:           10,
		BatchSize:         100,
		CheckpointPath:    path,
		CheckpointEnabled: true,
		Filter:            filter,
	}, src, sink, nil)
	require.NoError(t, r.Run(t.Context()))

	require.Len(t, sink.records, 1)
	assert.Equal(t, uint64(8), sink.records[0].BlockNumber)

	saved, ok, err := cp.Load(1, filter.Fingerprint())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(10), saved.LastProcessedBlock)
}

func TestRunnerRejectsForeignCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	require.NoError(t, NewCheckpointStore(path, true).Save(10, "0xother", 6))

	r := NewRunner(RunConfig{
		FromBlock:         1,
		ToBlock:           10,
		BatchSize:         100,
		CheckpointPath:    path,
		CheckpointEnabled: true,
	}, &fakeSource{}, &captureSink{}, nil)
	assert.ErrorIs(t, r.Run(t.Context()), ErrCheckpointMismatch)
}

func TestRunnerSplitsOversizedRanges(t *testing.T) {
	src := &fakeSource{
		logs: []types.Log{
			{BlockNumber: 2, Index: 0},
			{BlockNumber: 7, Index: 0},
			{BlockNumber: 8, Index: 1},
		},
		maxSpan: 3,
	}
	sink := &captureSink{}
	r := NewRunner(RunConfig{
		FromBlock:  1,
		ToBlock:    8,
		BatchSize:  8,
		MaxRetries: 3,
	}, src, sink, zaptest.NewLogger(t))
	require.NoError(t, r.Run(t.Context()))

	require.Len(t, sink.records, 3)
	assert.Equal(t, []uint64{2, 7, 8}, []uint64{sink.records[0].BlockNumber, sink.records[1].BlockNumber, sink.records[2].BlockNumber})
	assert.Equal(t, []BlockRange{
		{From: 1, To: 8},
		{From: 1, To: 4},
		{From: 1, To: 2},
		{From: 3, To: 4},
		{From: 5, To: 8},
		{From: 5, To: 6},
		{From: 7, To: 8},
	}, src.queries)
}
