package simnet_test

import (
	"testing"

	"github.com/netsimlab/simnet"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestSendBufferSequenceInvariantsHold drives a [simnet.SendBuffer] through
// arbitrary sequences of Put/Get/Slide and checks the invariant that must
// hold after every operation: baseSeq <= nextSeq <= lastSeq, and Get never
// returns more bytes than are actually available.
func TestSendBufferSequenceInvariantsHold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := simnet.NewSendBuffer(0)
		var put []byte

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				chunk := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "chunk")
				before := b.LastSeq()
				b.Put(chunk)
				put = append(put, chunk...)
				assert.Equal(t, before+uint64(len(chunk)), b.LastSeq())
			case 1:
				size := rapid.IntRange(0, 64).Draw(t, "size")
				beforeAvail := b.Available()
				data, seq := b.Get(size)
				assert.LessOrEqual(t, len(data), size)
				assert.LessOrEqual(t, len(data), beforeAvail)
				assert.Equal(t, b.NextSeq(), seq+uint64(len(data)))
			case 2:
				// Only slide within what has actually been sent, so the
				// defensive nextSeq-pull-forward branch isn't exercised here
				// (it has its own dedicated unit test).
				if b.Outstanding() == 0 {
					continue
				}
				delta := rapid.IntRange(0, b.Outstanding()).Draw(t, "delta")
				b.Slide(b.BaseSeq() + uint64(delta))
			}

			assert.LessOrEqual(t, b.BaseSeq(), b.NextSeq())
			assert.LessOrEqual(t, b.NextSeq(), b.LastSeq())
		}
	})
}
