// PTRA: Patient Trajectory Analysis Library
// Copyright (c) 2022 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/ptra/blob/master/LICENSE.txt>.

package app

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"allograph/incidence"

	"github.com/xuri/excelize/v2"
)

// Registries are exported by the transplant centers either as delimited text files or as Excel workbooks. The first
// line (or first sheet row) holds the column names, every following line is one allograft.

// separators are the candidate field separators of delimited registry exports, in order of preference.
var separators = []rune{',', ';', '\t', '|'}

// sniffLines is the number of lines inspected to detect the separator of a delimited file.
const sniffLines = 10

const utf8BOM = "\uFEFF"

// LoadRegistry reads a registry file into a table. Files ending in .xlsx are read as Excel workbooks, everything else
// as delimited text with an automatically detected separator.
func LoadRegistry(path string) (*incidence.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return parseRegistryXLSX(path)
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cannot open registry: %w", err)
		}
		defer file.Close()
		t, err := ParseRegistryCSV(file)
		if err != nil {
			return nil, fmt.Errorf("cannot parse registry %s: %w", path, err)
		}
		return t, nil
	}
}

// fieldCounts returns the number of fields of each sample line for a separator, or nil when the sample cannot be
// parsed with it.
func fieldCounts(sample []byte, sep rune) []int {
	reader := csv.NewReader(bytes.NewReader(sample))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	counts := []int{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil
		}
		counts = append(counts, len(record))
	}
	return counts
}

// DetectSeparator chooses the field separator of a delimited registry from a sample of its first lines. A candidate
// qualifies when it splits the header into several columns; qualifying candidates are ranked on the number of lines
// that have as many fields as the header, then on the number of header columns. A comma is assumed when no candidate
// qualifies.
func DetectSeparator(sample []byte) rune {
	best, bestConsistent, bestColumns := ',', -1, 1
	for _, sep := range separators {
		counts := fieldCounts(sample, sep)
		if len(counts) == 0 || counts[0] < 2 {
			continue
		}
		consistent := 0
		for _, n := range counts[1:] {
			if n == counts[0] {
				consistent++
			}
		}
		if consistent > bestConsistent || (consistent == bestConsistent && counts[0] > bestColumns) {
			best, bestConsistent, bestColumns = sep, consistent, counts[0]
		}
	}
	return best
}

// sampleSize bounds the number of bytes inspected to detect the separator of a delimited file.
const sampleSize = 64 * 1024

// readSample returns the first sniffLines complete lines of a reader without consuming them.
func readSample(reader *bufio.Reader) []byte {
	sample, _ := reader.Peek(sampleSize)
	lines := 0
	for i, b := range sample {
		if b == '\n' {
			lines++
			if lines == sniffLines {
				return sample[:i+1]
			}
		}
	}
	// drop a last incomplete line
	if i := bytes.LastIndexByte(sample, '\n'); i >= 0 && len(sample) == sampleSize {
		sample = sample[:i+1]
	}
	return sample
}

// cleanHeader trims the column names and removes a byte order mark.
func cleanHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		columns[i] = strings.TrimSpace(name)
	}
	return columns
}

// padRow extends a row with empty cells up to the number of columns.
func padRow(row []string, nofColumns int) []string {
	for len(row) < nofColumns {
		row = append(row, "")
	}
	return row
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseRegistryCSV reads a delimited registry export. The separator is detected from the first lines. Short rows are
// padded with empty cells and blank lines are skipped.
func ParseRegistryCSV(r io.Reader) (*incidence.Table, error) {
	buffered := bufio.NewReaderSize(r, sampleSize)
	sep := DetectSeparator(readSample(buffered))
	reader := csv.NewReader(buffered)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty registry")
	}
	if err != nil {
		return nil, err
	}
	columns := cleanHeader(header)
	rows := [][]string{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isEmptyRow(record) {
			continue
		}
		rows = append(rows, padRow(record, len(columns)))
	}
	return incidence.NewTable(columns, rows), nil
}

// parseRegistryXLSX reads the first sheet of an Excel workbook.
func parseRegistryXLSX(path string) (*incidence.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open registry workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("registry workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("cannot read sheet %s of %s: %w", sheets[0], path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty registry")
	}
	if err := convertDateCells(f, sheets[0], rows); err != nil {
		return nil, fmt.Errorf("cannot read dates of sheet %s of %s: %w", sheets[0], path, err)
	}
	columns := cleanHeader(rows[0])
	data := [][]string{}
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		data = append(data, padRow(row, len(columns)))
	}
	return incidence.NewTable(columns, data), nil
}

// builtinDateFormats are the built-in number formats of spreadsheet cells that display a date, with or without a
// time. Formats showing only a time of day are left out.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// isDateFormatCode reports whether a custom number format displays a date, i.e. has a day or year placeholder
// outside quoted text, escaped characters and bracketed sections such as colors or locales.
func isDateFormatCode(code string) bool {
	quoted, bracketed := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case quoted:
			quoted = c != '"'
		case bracketed:
			bracketed = c != ']'
		case c == '"':
			quoted = true
		case c == '[':
			bracketed = true
		case c == '\\' || c == '_' || c == '*':
			i++ // the next character is literal or padding
		case c == 'd' || c == 'D' || c == 'y' || c == 'Y':
			return true
		}
	}
	return false
}

// isDateStyle reports whether a cell style formats numbers as dates.
func isDateStyle(f *excelize.File, styleID int) (bool, error) {
	style, err := f.GetStyle(styleID)
	if err != nil {
		return false, err
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt), nil
	}
	return builtinDateFormats[style.NumFmt], nil
}

// formatCellDate prints a date cell the way ParseDate reads it back: the date alone at midnight, the date and time
// otherwise.
func formatCellDate(t time.Time) string {
	t = t.Round(time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// convertDateCells replaces the serial numbers of date formatted cells, as read with raw cell values, by ISO dates.
// Spreadsheets store dates as numbers, and their display text depends on the format, which may drop the day.
func convertDateCells(f *excelize.File, sheet string, rows [][]string) error {
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	dateStyles := map[int]bool{}
	for i := 1; i < len(rows); i++ {
		for j, value := range rows[i] {
			serial, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			styleID, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				return err
			}
			isDate, ok := dateStyles[styleID]
			if !ok {
				if isDate, err = isDateStyle(f, styleID); err != nil {
					return err
				}
				dateStyles[styleID] = isDate
			}
			if !isDate {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, date1904)
			if err != nil {
				continue
			}
			rows[i][j] = formatCellDate(t)
		}
	}
	return nil
}

// SaveRegistry writes a table to a registry file that LoadRegistry can read back, as an Excel workbook when the name
// ends in .xlsx and as comma separated values otherwise.
func SaveRegistry(path string, t *incidence.Table) error {
	if strings.ToLower(filepath.Ext(path)) == ".xlsx" {
		return saveRegistryXLSX(path, t)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create registry: %w", err)
	}
	if err := WriteRegistryCSV(file, t); err != nil {
		file.Close()
		return fmt.Errorf("cannot write registry: %w", err)
	}
	return file.Close()
}

// saveRegistryXLSX writes a table to the first sheet of a new workbook.
func saveRegistryXLSX(path string, t *incidence.Table) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := append([][]string{t.Columns}, t.Rows...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("cannot write registry row %d: %w", i, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("cannot save registry workbook: %w", err)
	}
	return nil
}

// WriteRegistryCSV prints a table as a comma separated registry export that LoadRegistry can read back.
func WriteRegistryCSV(w io.Writer, t *incidence.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}
