package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreRollEvictsOldest(t *testing.T) {
	p := NewPreRoll(3)
	for i := 0; i < 5; i++ {
		p.Push([]byte{byte(i)})
	}

	require.Equal(t, 3, p.Len())
	require.Equal(t, [][]byte{{2}, {3}, {4}}, p.Drain())
	require.Zero(t, p.Len())
}

func TestPreRollZeroCapacityStaysEmpty(t *testing.T) {
	p := NewPreRoll(0)
	p.Push([]byte{1})
	require.Zero(t, p.Len())
}

func TestPreRollSnapshotKeepsContents(t *testing.T) {
	p := NewPreRoll(2)
	p.Push([]byte{1})
	snap := p.Snapshot()
	require.Equal(t, [][]byte{{1}}, snap)
	require.Equal(t, 1, p.Len())
}

func TestPreRollCapacity(t *testing.T) {
	// One second of 512-sample chunks at 16kHz is 31 full chunks.
	require.Equal(t, 31, PreRollCapacity(16000, 512, 1.0))
	require.Zero(t, PreRollCapacity(16000, 512, 0))
	require.Zero(t, PreRollCapacity(0, 512, 1.0))
}
