// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table renders rows under headers.
//
// In machine mode the output is tab-separated with a header line, ready
// for cut or awk. Otherwise it is a rounded lipgloss table with a styled
// header row.
//
// Example:
//
//	fmt.Print(ux.Table(
//	    []string{"size", "merge", "selection"},
//	    [][]string{{"100", "41µs", "120µs"}},
//	))
func Table(headers []string, rows [][]string) string {
	if GetPersonality().Level == PersonalityMachine {
		var b strings.Builder
		b.WriteString(strings.Join(headers, "\t"))
		b.WriteByte('\n')
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
		return b.String()
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Styles.TableBorder).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return Styles.TableHeader
			}
			return Styles.TableCell
		})
	return t.String() + "\n"
}

// PrintTable writes Table(headers, rows) to the ux output.
func PrintTable(headers []string, rows [][]string) {
	printf("%s", Table(headers, rows))
}
