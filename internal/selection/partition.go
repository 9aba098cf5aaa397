package selection

// Columns returns how many columns of the given height are needed to show n
// items. A non-positive height is treated as 1; an empty list still takes
// one column so the frame is drawn.
func Columns(n, height int) int {
	if height < 1 {
		height = 1
	}
	if n <= 0 {
		return 1
	}
	return (n + height - 1) / height
}

// Chunk splits items into consecutive slices of at most height elements.
func Chunk[T any](items []T, height int) [][]T {
	if height < 1 {
		height = 1
	}
	chunks := make([][]T, 0, Columns(len(items), height))
	for start := 0; start < len(items); start += height {
		end := min(start+height, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Locate maps a global cursor onto a column of the given height.
//
// It returns the index within that column and true when the cursor falls
// inside the column, or false when the cursor is unset or belongs to another
// column. The list itself is never touched.
func Locate(cursor int, selected bool, height, column int) (int, bool) {
	if !selected || height < 1 || column < 0 {
		return 0, false
	}
	lo := height * column
	hi := lo + height
	if cursor < lo || cursor >= hi {
		return 0, false
	}
	return cursor - lo, true
}
