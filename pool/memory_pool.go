package pool

import (
	"bytes"
	"sync"
)

// maxPooledBuffer keeps rendered frames of unusual size from pinning memory
const maxPooledBuffer = 16 << 20

// BufferPool provides a pool of reusable encode buffers
var BufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 256<<10))
	},
}

// GetBuffer returns a buffer from the pool
func GetBuffer() *bytes.Buffer {
	return BufferPool.Get().(*bytes.Buffer)
}

// PutBuffer returns a buffer to the pool after resetting it
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	BufferPool.Put(buf)
}
