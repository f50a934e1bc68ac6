package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l2dy/ostinato/internal/txengine"
)

func TestStreamStatsWriterWritesSortedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")

	w, err := NewStreamStatsWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.WriteAll(map[uint32]txengine.StreamTotals{
		7: {TxPkts: 10, TxBytes: 640},
		3: {TxPkts: 5, TxBytes: 320},
	}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := "StreamGuid,TxPkts,TxBytes\n3,5,320\n7,10,640\n"
	assert.Equal(t, want, string(data))
}
