package mqttv3

import (
	"sync"
)

const (
	// initialBufferSize covers typical control packets without growing.
	initialBufferSize = 256

	// maxPooledBufferSize bounds what goes back into the pool so one large
	// PUBLISH does not pin memory.
	maxPooledBufferSize = 64 * 1024
)

// Buffer pools for reducing allocations in hot paths.
var (
	bytesReaderPool = sync.Pool{
		New: func() any {
			return &bytesReader{}
		},
	}

	bytesBufferPool = sync.Pool{
		New: func() any {
			return &bytesBuffer{data: make([]byte, 0, initialBufferSize)}
		},
	}
)

// getBytesReader returns a pooled reader positioned at the start of data.
func getBytesReader(data []byte) *bytesReader {
	r := bytesReaderPool.Get().(*bytesReader)
	r.data = data
	r.pos = 0
	return r
}

// putBytesReader returns a reader to the pool.
func putBytesReader(r *bytesReader) {
	if r == nil {
		return
	}
	r.data = nil
	r.pos = 0
	bytesReaderPool.Put(r)
}

// getBytesBuffer returns an empty pooled buffer. The caller owns it until
// putBytesBuffer.
func getBytesBuffer() *bytesBuffer {
	b := bytesBufferPool.Get().(*bytesBuffer)
	b.data = b.data[:0]
	return b
}

// putBytesBuffer returns a buffer to the pool.
func putBytesBuffer(b *bytesBuffer) {
	if b == nil || cap(b.data) > maxPooledBufferSize {
		return
	}
	b.data = b.data[:0]
	bytesBufferPool.Put(b)
}
