// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuimeteor/internal/model"
)

// RenderLeaderboard prints ranked players as an aligned table.
func RenderLeaderboard(w io.Writer, players []model.Player, maxWidth int) error {
	if len(players) == 0 {
		_, err := fmt.Fprintln(w, "No players found.")
		return err
	}
	headers := []string{"#", "ID", "Name", "Best"}
	rows := make([][]string, 0, len(players))
	for i, p := range players {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			p.ID,
			p.Name,
			fmt.Sprintf("%d", p.BestScore),
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{0: true, 3: true}), maxWidth)
}

// RenderGroups prints group aggregates as an aligned table.
func RenderGroups(w io.Writer, groups []model.GroupSummary, maxWidth int) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "No groups found.")
		return err
	}
	headers := []string{"Group", "Players", "Top", "Avg"}
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			g.Group,
			fmt.Sprintf("%d", g.MemberCount),
			fmt.Sprintf("%d", g.TopScore),
			fmt.Sprintf("%.1f", g.AverageScore),
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true}), maxWidth)
}

func writeLines(w io.Writer, lines []string, maxWidth int) error {
	for _, line := range lines {
		if maxWidth > 0 {
			line = runewidth.Truncate(line, maxWidth, "...")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = displayWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(padCell(cell, widths[i], rightAlignCols[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := displayWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

// displayWidth counts terminal cells; CJK names take two cells per rune.
func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
