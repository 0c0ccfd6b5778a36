// Package display renders file listings and transfer progress on the
// terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/mathieures/ymd/pkg/drive"
)

const (
	columnSeparator = " "
	dateLayout      = "2006-01-02 15:04"
)

// PrintFiles writes the names of the listed files, one per line. With
// long set, each line carries the chunk count and the date of the last
// chunk under an aligned header. Nothing is printed for an empty set.
func PrintFiles(w io.Writer, files *drive.FileSet, long bool) {
	if files.Len() == 0 {
		return
	}
	if !long {
		fmt.Fprintln(w, strings.Join(files.Names(), "\n"))
		return
	}

	header := [3]string{"chunks", "date", "file"}
	widths := [3]int{len(header[0]), len(header[1]), len(header[2])}

	lines := make([][3]string, 0, files.Len())
	for _, name := range files.Names() {
		chunks := files.Chunks(name)

		date := strings.Repeat(" ", len(dateLayout))
		if len(chunks) > 0 {
			date = chunks[len(chunks)-1].Date.Format(dateLayout)
		}

		line := [3]string{fmt.Sprintf("%d", len(chunks)), date, name}
		for i, field := range line {
			if len(field) > widths[i] {
				widths[i] = len(field)
			}
		}
		lines = append(lines, line)
	}

	fmt.Fprintf(w, "%-*s%s%-*s%s%s\n", widths[0], header[0], columnSeparator, widths[1], header[1], columnSeparator, header[2])
	for _, line := range lines {
		fmt.Fprintf(w, "%*s%s%-*s%s%s\n", widths[0], line[0], columnSeparator, widths[1], line[1], columnSeparator, line[2])
	}
}

// Progress returns a callback rewriting a single terminal line with the
// running count and percentage, ending the line once the target is
// reached.
func Progress(w io.Writer) drive.ProgressFunc {
	return func(label string, current, total int) {
		if total == 0 {
			return
		}
		percentage := float64(current) / float64(total) * 100
		fmt.Fprintf(w, "\r%s %d/%d (%.1f%%)", label, current, total, percentage)
		if current >= total {
			fmt.Fprintln(w)
		}
	}
}
