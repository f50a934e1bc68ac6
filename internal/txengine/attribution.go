package txengine

import (
	"github.com/l2dy/ostinato/internal/ttag"
	"github.com/l2dy/ostinato/internal/txprogram"
)

// updateTxStreamStats attributes the run's observed packet delta
// (current ledger counters minus the snapshot captured at Start) to
// per-stream tallies: a closed form over every complete program
// revolution, plus a record-by-record walk of the trailing partial
// revolution that falls back to parsing each record's stream-guid
// trailer.
func (e *Engine) updateTxStreamStats(program *txprogram.Program) {
	if program.PacketListSize == 0 {
		return
	}

	delta := e.lastStats.Delta(e.ledger.Snapshot())
	complete := delta.Pkts / program.PacketListSize
	partial := delta.Pkts % program.PacketListSize

	e.streamMu.Lock()
	defer e.streamMu.Unlock()
	if e.streamStats == nil {
		e.streamStats = make(map[uint32]StreamTotals)
	}

	if complete > 0 {
		e.creditCompleteRevolutions(program, complete)
	}
	if partial > 0 {
		e.creditPartialRevolution(program, partial)
	}
}

func (e *Engine) creditCompleteRevolutions(program *txprogram.Program, revolutions uint64) {
	i := 0
	for i < len(program.Sequences) {
		head := program.Sequences[i]
		rptSz := head.RepeatSize()
		for k := 0; k < rptSz; k++ {
			seq := program.Sequences[i+k]
			for guid, meta := range seq.StreamStatsMeta() {
				e.credit(guid, revolutions*uint64(seq.RepeatCount())*meta.TxPkts,
					revolutions*uint64(seq.RepeatCount())*meta.TxBytes)
			}
		}
		i += rptSz
	}
}

// creditPartialRevolution walks groups in program order, simulating each
// group's inner repeat_count x repeat_size expansion, crediting whole
// sequences until fewer than a full sequence's packets remain, then
// falling back to a record-by-record guid-trailer parse for the
// remainder.
func (e *Engine) creditPartialRevolution(program *txprogram.Program, remaining uint64) {
	i := 0
outer:
	for i < len(program.Sequences) {
		head := program.Sequences[i]
		rptSz := head.RepeatSize()
		rptCnt := head.RepeatCount()

		for j := int64(0); j < rptCnt; j++ {
			for k := 0; k < rptSz; k++ {
				if remaining == 0 {
					break outer
				}
				seq := program.Sequences[i+k]

				if remaining >= seq.Packets() {
					for guid, meta := range seq.StreamStatsMeta() {
						e.credit(guid, meta.TxPkts, meta.TxBytes)
					}
					remaining -= seq.Packets()
					continue
				}

				left := remaining
				seq.ForEach(func(offset int, hdr txprogram.RecordHeader, payload []byte) bool {
					if left == 0 {
						return false
					}
					if guid, present := ttag.PacketGUID(payload); present {
						e.credit(guid, 1, uint64(hdr.CapturedLen))
					}
					left--
					return true
				})
				remaining = 0
			}
		}
		i += rptSz
	}
}

func (e *Engine) credit(guid uint32, pkts, bytes uint64) {
	t := e.streamStats[guid]
	t.TxPkts += pkts
	t.TxBytes += bytes
	e.streamStats[guid] = t
}
