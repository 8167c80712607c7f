package game

import rand "math/rand/v2"

const (
	// BoardSize is the side length of the grid.
	BoardSize = 5

	// BoardCells is the total number of cells on a board.
	BoardCells = BoardSize * BoardSize
)

// Board is a participant's private card: the integers 1..25 arranged
// row-major on a 5x5 grid. Every board is a permutation, so each value
// appears exactly once.
type Board [BoardCells]int

// NewBoard deals a fresh board as a uniform permutation of 1..25.
// Boards across participants are independent shuffles.
func NewBoard(rng *rand.Rand) Board {
	var b Board
	for i, v := range rng.Perm(BoardCells) {
		b[i] = v + 1
	}
	return b
}

// IndexOf returns the position of value on the board, or -1 if the value
// is out of range. The board is small enough that a linear scan beats
// maintaining a lookup table.
func (b Board) IndexOf(value int) int {
	for i, v := range b {
		if v == value {
			return i
		}
	}
	return -1
}

// ValueAt returns the value at index, or 0 if the index is invalid.
func (b Board) ValueAt(index int) int {
	if index < 0 || index >= BoardCells {
		return 0
	}
	return b[index]
}

// Values returns the board as a slice for wire encoding.
func (b Board) Values() []int {
	out := make([]int, BoardCells)
	copy(out, b[:])
	return out
}
