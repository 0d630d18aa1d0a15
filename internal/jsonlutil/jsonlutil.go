// Package jsonlutil streams values as JSON Lines from a background encoder.
package jsonlutil

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
)

var bwPool = sync.Pool{
	New: func() any {
		return bufio.NewWriterSize(io.Discard, 64<<10)
	},
}

// Start returns a channel that accepts values and a channel that yields the
// final error once the input channel is closed. After the first encode error
// the remaining values are drained and dropped so senders never block.
func Start[T any](out io.Writer, bufSize int, encode func(*json.Encoder, T) error) (chan<- T, <-chan error) {
	if bufSize <= 0 {
		bufSize = 64
	}
	in := make(chan T, bufSize)
	done := make(chan error, 1)

	go func() {
		bw := bwPool.Get().(*bufio.Writer)
		bw.Reset(out)
		defer func() {
			bw.Reset(io.Discard)
			bwPool.Put(bw)
		}()

		enc := json.NewEncoder(bw)
		enc.SetEscapeHTML(false)
		var err error
		for v := range in {
			if err == nil {
				err = encode(enc, v)
			}
		}
		if err == nil {
			err = bw.Flush()
		}
		done <- err
	}()

	return in, done
}

// WriteAll encodes every value of vs on its own line.
func WriteAll[T any](out io.Writer, vs []T, encode func(*json.Encoder, T) error) error {
	in, done := Start(out, 0, encode)
	for _, v := range vs {
		in <- v
	}
	close(in)
	return <-done
}
