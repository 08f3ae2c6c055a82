package simnet_test

import (
	"testing"

	"github.com/netsimlab/simnet"
	"github.com/stretchr/testify/require"
)

func TestSendBufferGetRespectsSizeAndAdvancesNextSeq(t *testing.T) {
	b := simnet.NewSendBuffer(0)
	b.Put([]byte("hello world"))

	data, seq := b.Get(5)
	require.Equal(t, "hello", string(data))
	require.Equal(t, uint64(0), seq)
	require.Equal(t, uint64(5), b.NextSeq())
	require.Equal(t, 5, b.Outstanding())
	require.Equal(t, 6, b.Available())
}

func TestSendBufferGetClampsToAvailableData(t *testing.T) {
	b := simnet.NewSendBuffer(0)
	b.Put([]byte("hi"))
	data, seq := b.Get(100)
	require.Equal(t, "hi", string(data))
	require.Equal(t, uint64(0), seq)
	require.Equal(t, 0, b.Available())
}

func TestSendBufferSlideDropsAckedPrefix(t *testing.T) {
	b := simnet.NewSendBuffer(0)
	b.Put([]byte("0123456789"))
	b.Get(10)
	b.Slide(4)
	require.Equal(t, uint64(4), b.BaseSeq())
	require.Equal(t, uint64(10), b.NextSeq())
	require.Equal(t, 6, b.Outstanding())
}

func TestSendBufferSlideAtBaseSeqIsNoOp(t *testing.T) {
	b := simnet.NewSendBuffer(0)
	b.Put([]byte("0123456789"))
	b.Get(5)
	before := b.Available()
	b.Slide(0)
	require.Equal(t, uint64(0), b.BaseSeq())
	require.Equal(t, before, b.Available())
}

func TestSendBufferSlidePastNextSeqPullsNextSeqForward(t *testing.T) {
	b := simnet.NewSendBuffer(0)
	b.Put([]byte("0123456789"))
	b.Get(3)
	b.Slide(5) // acking bytes we never even sent yet
	require.Equal(t, uint64(5), b.NextSeq())
}

func TestSendBufferResendReturnsOldestOutstandingAndResetsNextSeq(t *testing.T) {
	b := simnet.NewSendBuffer(0)
	b.Put([]byte("0123456789"))
	b.Get(10) // everything outstanding, next_seq = 10

	data, seq := b.Resend(4, true)
	require.Equal(t, "0123", string(data))
	require.Equal(t, uint64(0), seq)
	require.Equal(t, uint64(4), b.NextSeq())
}

func TestSendBufferInvariantBaseLeNextLeLast(t *testing.T) {
	b := simnet.NewSendBuffer(0)
	b.Put([]byte("0123456789"))
	b.Get(3)
	require.LessOrEqual(t, b.BaseSeq(), b.NextSeq())
	require.LessOrEqual(t, b.NextSeq(), b.LastSeq())
	b.Slide(2)
	require.LessOrEqual(t, b.BaseSeq(), b.NextSeq())
	require.LessOrEqual(t, b.NextSeq(), b.LastSeq())
}
