package format

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MaxDiffRows caps how many rows SideBySide prints.
const MaxDiffRows = 40

type rowKind int

const (
	rowEqual rowKind = iota
	rowDelete
	rowInsert
	rowReplace
)

type diffRow struct {
	kind        rowKind
	left, right *string
}

// lineDiff diffs two texts line by line. Rows pair up deletions with the
// insertions that follow them.
func lineDiff(oldText, newText string) []diffRow {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var rows []diffRow
	var oldBuf, newBuf []string
	flush := func() {
		n := max(len(oldBuf), len(newBuf))
		for i := 0; i < n; i++ {
			row := diffRow{kind: rowReplace}
			if i < len(oldBuf) {
				row.left = &oldBuf[i]
			}
			if i < len(newBuf) {
				row.right = &newBuf[i]
			}
			switch {
			case row.left == nil:
				row.kind = rowInsert
			case row.right == nil:
				row.kind = rowDelete
			}
			rows = append(rows, row)
		}
		oldBuf, newBuf = nil, nil
	}

	for _, d := range diffs {
		chunk := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			for i := range chunk {
				rows = append(rows, diffRow{kind: rowEqual, left: &chunk[i], right: &chunk[i]})
			}
		case diffmatchpatch.DiffDelete:
			oldBuf = append(oldBuf, chunk...)
		case diffmatchpatch.DiffInsert:
			newBuf = append(newBuf, chunk...)
		}
	}
	flush()
	return rows
}

// splitLines splits a diff chunk, which ends with a newline unless it is
// the last line of its text.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(expandTabs(text), "\n"), "\n")
}

// SideBySide renders a line diff of two texts in two bordered columns.
// With changesOnly set, runs of unchanged lines collapse to one row.
func SideBySide(oldLabel, newLabel, oldText, newText string, width int, changesOnly bool) string {
	colW := (width - 7) / 2
	if colW < 20 {
		colW = 20
	}

	rows := lineDiff(oldText, newText)
	if changesOnly {
		rows = collapseEqual(rows)
	}
	total := len(rows)
	truncated := total > MaxDiffRows
	if truncated {
		rows = rows[:MaxDiffRows]
	}

	var out []string
	lblL := "─ " + oldLabel + " "
	lblR := "─ " + newLabel + " "
	out = append(out, fmt.Sprintf("┌%s%s┬%s%s┐",
		lblL, strings.Repeat("─", max(0, colW+2-runeLen(lblL))),
		lblR, strings.Repeat("─", max(0, colW+2-runeLen(lblR)))))

	blank := strings.Repeat(" ", colW)
	for _, r := range rows {
		left, right := blank, blank
		if r.left != nil {
			left = padOrTrunc(*r.left, colW)
		}
		if r.right != nil {
			right = padOrTrunc(*r.right, colW)
		}
		switch r.kind {
		case rowEqual:
			left, right = Faint.Paint(left), Faint.Paint(right)
		case rowDelete:
			left = Removed.Paint(left)
		case rowInsert:
			right = Added.Paint(right)
		case rowReplace:
			left, right = Removed.Paint(left), Added.Paint(right)
		}
		out = append(out, fmt.Sprintf("│ %s │ %s │", left, right))
	}

	out = append(out, fmt.Sprintf("└%s┴%s┘",
		strings.Repeat("─", colW+2), strings.Repeat("─", colW+2)))
	if truncated {
		out = append(out, "  "+Faint.Paint(fmt.Sprintf("… %d more lines not shown", total-MaxDiffRows)))
	}
	return strings.Join(out, "\n")
}

// collapseEqual replaces every run of unchanged rows with a single "..."
// row.
func collapseEqual(rows []diffRow) []diffRow {
	ellipsis := "…"
	var out []diffRow
	for i, r := range rows {
		if r.kind != rowEqual {
			out = append(out, r)
			continue
		}
		if i > 0 && rows[i-1].kind == rowEqual {
			continue
		}
		out = append(out, diffRow{kind: rowEqual, left: &ellipsis, right: &ellipsis})
	}
	return out
}

// Changed reports how many rows of the line diff differ.
func Changed(oldText, newText string) int {
	n := 0
	for _, r := range lineDiff(oldText, newText) {
		if r.kind != rowEqual {
			n++
		}
	}
	return n
}

func expandTabs(text string) string {
	return strings.ReplaceAll(text, "\t", "    ")
}

func padOrTrunc(s string, w int) string {
	r := []rune(s)
	if len(r) > w {
		return string(r[:w])
	}
	return s + strings.Repeat(" ", w-len(r))
}

func runeLen(s string) int {
	return len([]rune(s))
}
