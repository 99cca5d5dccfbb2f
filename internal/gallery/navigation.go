package gallery

import (
	"errors"
	"fmt"
)

var ErrOutOfRange = errors.New("index out of range")

// Navigator owns the current index into a resolved image sequence.
type Navigator struct {
	index int
}

func (n *Navigator) Index() int {
	return n.index
}

// Next advances with wraparound. Sequences of one image or less leave the
// index untouched.
func (n *Navigator) Next(length int) int {
	if length <= 1 {
		return n.index
	}
	n.index = (n.index + 1) % length
	return n.index
}

func (n *Navigator) Previous(length int) int {
	if length <= 1 {
		return n.index
	}
	n.index = (n.index - 1 + length) % length
	return n.index
}

func (n *Navigator) JumpTo(i int, length int) error {
	if i < 0 || i >= length {
		return fmt.Errorf("fail to jump to %d in a gallery of %d images: %w", i, length, ErrOutOfRange)
	}
	n.index = i
	return nil
}

func (n *Navigator) Reset() {
	n.index = 0
}
