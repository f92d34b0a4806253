package wire

import (
	"bufio"
	"errors"
	"fmt"
)

// MaxLineSize limits the size of a logical line read by ReadLine, literals
// included.
const MaxLineSize = 64 << 20

var ErrLineTooLong = errors.New("response line exceeds maximum size")

// ReadLine reads one logical response line from r. Literals announced at
// the end of a physical line are read and become part of the returned line.
func ReadLine(r *bufio.Reader) ([]byte, error) {
	var buf []byte

	for {
		chunk, err := r.ReadBytes('\n')
		buf = append(buf, chunk...)
		if err != nil {
			return nil, fmt.Errorf("reading response line failed: %w", err)
		}

		if len(buf) > MaxLineSize {
			return nil, ErrLineTooLong
		}

		if n := LineLength(buf); n == len(buf) {
			return buf, nil
		}
	}
}
