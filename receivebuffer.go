package simnet

//
// ReceiveBuffer: the incoming byte stream of a [Transport] connection,
// reassembling out-of-order and deduplicating overlapping segments. See
// spec §4.6.
//

import "sort"

// chunk is a run of received bytes starting at sequence, held in a
// [ReceiveBuffer] until it can be delivered in order.
type chunk struct {
	data     []byte
	sequence uint64
}

func (c *chunk) length() int { return len(c.data) }

// trim checks this chunk for overlap with a chunk ending at
// prevEnd (prevSeq + prevLen) and drops the overlapping prefix, if any.
func (c *chunk) trim(prevSeq uint64, prevLen int) {
	prevEnd := prevSeq + uint64(prevLen)
	if prevLen == 0 {
		return
	}
	if c.sequence < prevEnd {
		cut := prevEnd - c.sequence
		if cut > uint64(len(c.data)) {
			cut = uint64(len(c.data))
		}
		c.data = c.data[cut:]
		c.sequence = prevEnd
	}
}

// ReceiveBuffer reassembles a byte stream from segments that may arrive
// out of order or duplicated, indexed by sequence number. The zero value
// is a buffer starting at sequence 0; use [NewReceiveBuffer] if a
// different starting sequence is needed.
type ReceiveBuffer struct {
	chunks  map[uint64]*chunk
	baseSeq uint64
}

// NewReceiveBuffer constructs an empty [ReceiveBuffer] starting at the
// given initial sequence number.
func NewReceiveBuffer(initialSeq uint64) *ReceiveBuffer {
	return &ReceiveBuffer{chunks: make(map[uint64]*chunk), baseSeq: initialSeq}
}

// BaseSeq returns the sequence number of the next byte the application
// expects, i.e. the first byte not yet delivered by [Get].
func (b *ReceiveBuffer) BaseSeq() uint64 { return b.baseSeq }

// Put adds data arriving at sequence to the buffer. Data starting before
// baseSeq is ignored, even if it extends past baseSeq; a chunk already on file at
// sequence is replaced only if data is strictly longer (a genuine
// duplicate, not new information, is dropped). After insertion, every
// chunk in the buffer is swept in sequence order and trimmed against its
// predecessor so overlapping duplicate bytes never survive twice.
func (b *ReceiveBuffer) Put(data []byte, sequence uint64) {
	if sequence < b.baseSeq {
		return
	}
	if existing, ok := b.chunks[sequence]; ok && existing.length() >= len(data) {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	b.chunks[sequence] = &chunk{data: cp, sequence: sequence}

	seqs := make([]uint64, 0, len(b.chunks))
	for s := range b.chunks {
		seqs = append(seqs, s)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	// Trimming can move a chunk's sequence forward, so survivors are
	// re-keyed by their (possibly new) sequence for Get to find them.
	kept := make(map[uint64]*chunk, len(b.chunks))
	var prevSeq uint64
	var prevLen int
	for _, s := range seqs {
		c := b.chunks[s]
		c.trim(prevSeq, prevLen)
		if c.length() == 0 {
			continue
		}
		kept[c.sequence] = c
		prevSeq = c.sequence
		prevLen = c.length()
	}
	b.chunks = kept
}

// Get removes and returns every contiguous run of bytes available
// starting at baseSeq, in order, along with the sequence number the
// returned bytes start at. Bytes not yet contiguous with baseSeq (a gap
// remains) are left buffered for a future call.
func (b *ReceiveBuffer) Get() ([]byte, uint64) {
	start := b.baseSeq
	var out []byte

	for {
		c, ok := b.chunks[b.baseSeq]
		if !ok {
			break
		}
		out = append(out, c.data...)
		b.baseSeq += uint64(c.length())
		delete(b.chunks, c.sequence)
	}
	return out, start
}
