package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/balisegate/internal/balise"
	"example.com/balisegate/internal/common"
)

func telegramHex(t *testing.T, packets ...*balise.Packet) string {
	t.Helper()
	tg := balise.NewTelegram(balise.Version2_0)
	tg.Packets = append(packets, tg.Packets...)
	return tg.Hex()
}

func TestReadInputs(t *testing.T) {
	in := "# header comment\n\n  0600612201F7FF  \n#skip\nFF\n"
	inputs, err := ReadInputs(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Input{{Line: 3, Hex: "0600612201F7FF"}, {Line: 5, Hex: "FF"}}, inputs)
}

func TestDecodeKeepsInputOrder(t *testing.T) {
	var inputs []Input
	for i := 0; i < 40; i++ {
		n := uint64(i % 32)
		gp := balise.GradientProfile.Build(map[string]uint64{"N_ITER": n})
		inputs = append(inputs, Input{Line: i + 1, Hex: telegramHex(t, gp)})
	}

	results, err := Decode(context.Background(), inputs, Options{Workers: 4})
	require.NoError(t, err)
	require.Len(t, results, len(inputs))
	for i, res := range results {
		require.Equal(t, i+1, res.Line)
		require.False(t, res.Failed(), res.Error)
		require.NotNil(t, res.Document)
		require.Len(t, res.Document.Packets, 2)
		length := *res.Document.Packets[0].Length
		assert.Equal(t, uint64(54+24*(i%32)), length)
	}
}

func TestDecodeFailures(t *testing.T) {
	inputs := []Input{
		{Line: 1, Hex: "FFFF"},
		{Line: 2, Hex: telegramHex(t, balise.VBCOrder.Default())},
	}
	m := common.NewMetrics()
	results, err := Decode(context.Background(), inputs, Options{Workers: 2, Metrics: m})
	require.NoError(t, err)

	assert.True(t, results[0].Failed())
	assert.Nil(t, results[0].Document)
	assert.Contains(t, results[0].Error, "truncated")
	assert.False(t, results[1].Failed())

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Telegrams)
	assert.Equal(t, int64(1), snap.Failures)
}

func TestDecodeHeaderless(t *testing.T) {
	inputs := []Input{{Line: 1, Hex: "0600612201F7FF"}, {Line: 2, Hex: "88"}}
	results, err := Decode(context.Background(), inputs, Options{Headerless: true, Version: balise.Version1_0})
	require.NoError(t, err)

	require.NotNil(t, results[0].Document)
	assert.Equal(t, "baseline 2", results[0].Document.Catalog)
	assert.Len(t, results[0].Document.Packets, 2)

	// 136 is not part of the version 1 catalog.
	assert.True(t, results[1].Failed())
	require.NotNil(t, results[1].Document)
	assert.True(t, results[1].Document.Packets[0].Unknown)
}

func TestRunWritesNDJSON(t *testing.T) {
	src := strings.Join([]string{
		telegramHex(t, balise.TSR.Default()),
		"FFFF",
		telegramHex(t),
	}, "\n")
	var out bytes.Buffer
	sum, err := Run(context.Background(), strings.NewReader(src), &out, Options{Workers: 3, Metrics: common.NewMetrics()})
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Failed: 1}, sum)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		var res Result
		require.NoError(t, json.Unmarshal([]byte(line), &res))
		assert.Equal(t, i+1, res.Line)
	}
}

func TestStreamStopsOnEmitError(t *testing.T) {
	inputs := make([]Input, 20)
	for i := range inputs {
		inputs[i] = Input{Line: i + 1, Hex: "FF"}
	}
	boom := errors.New("boom")
	calls := 0
	err := Stream(context.Background(), inputs, Options{Workers: 2, Headerless: true}, func(Result) error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestStreamCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Stream(ctx, []Input{{Line: 1, Hex: "FF"}}, Options{}, func(Result) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	assert.NoError(t, Stream(ctx, nil, Options{}, func(Result) error { return nil }))
}
