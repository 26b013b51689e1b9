// Package buffer provides concurrent-safe generic buffers.
//
//   - Buffer: an unbounded FIFO queue. Readers block while it is empty; writers
//     never block. Used to decouple audio capture from network sends.
//
//   - RingBuffer: a fixed-size window over the most recent items. Used to keep
//     the tail of log output for display.
//
// Example usage:
//
//	q := buffer.N[Chunk](64)
//	go func() {
//	    for {
//	        c, err := q.Next()
//	        if err != nil {
//	            return // ErrIteratorDone after CloseWrite
//	        }
//	        send(c)
//	    }
//	}()
//	q.Add(chunk)
//	q.CloseWrite()
package buffer
