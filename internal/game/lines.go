package game

// WinningLines is the number of completed lines required to win. The game
// is deliberately harder than single-line bingo: a participant must
// complete at least five of the twelve patterns.
const WinningLines = 5

// lines holds the twelve fixed patterns: five rows, five columns and the
// two diagonals, as row-major cell indices.
var lines = buildLines()

func buildLines() [][BoardSize]int {
	out := make([][BoardSize]int, 0, 2*BoardSize+2)

	for row := 0; row < BoardSize; row++ {
		var l [BoardSize]int
		for col := 0; col < BoardSize; col++ {
			l[col] = row*BoardSize + col
		}
		out = append(out, l)
	}

	for col := 0; col < BoardSize; col++ {
		var l [BoardSize]int
		for row := 0; row < BoardSize; row++ {
			l[row] = row*BoardSize + col
		}
		out = append(out, l)
	}

	var main, anti [BoardSize]int
	for i := 0; i < BoardSize; i++ {
		main[i] = i*BoardSize + i
		anti[i] = i*BoardSize + (BoardSize - 1 - i)
	}
	out = append(out, main, anti)

	return out
}

// CompletedLines counts how many of the fixed patterns are fully covered
// by the marked index set.
func CompletedLines(marked map[int]bool) int {
	completed := 0
	for _, line := range lines {
		full := true
		for _, idx := range line {
			if !marked[idx] {
				full = false
				break
			}
		}
		if full {
			completed++
		}
	}
	return completed
}

// IsWinning reports whether the marked index set completes enough lines
// to win.
func IsWinning(marked map[int]bool) bool {
	return CompletedLines(marked) >= WinningLines
}
