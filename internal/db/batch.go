package db

import (
	"fmt"
	"strings"
)

// ValuesPlaceholders renders "($1,$2),($3,$4)" for rows of width columns.
func ValuesPlaceholders(rows, width int) string {
	var sb strings.Builder
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for j := 0; j < width; j++ {
			if j > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", i*width+j+1)
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// Batches splits n rows into [start,end) ranges of at most size rows.
func Batches(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
