package upload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"powerbi-insight/powerbi"

	"github.com/tealeg/xlsx/v3"
)

var ErrUnsupportedFormat = errors.New("upload: unsupported file format, use CSV or Excel")

// DecodeFile choisit le décodeur selon l'extension du fichier uploadé
func DecodeFile(filename string, r io.Reader) ([]powerbi.Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return DecodeCSV(r)
	case ".xlsx", ".xls":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return DecodeXLSX(data)
	}
	return nil, ErrUnsupportedFormat
}

// DecodeCSV : première ligne = entêtes, le reste = données. Les valeurs
// qui se lisent comme des nombres deviennent des float64 pour que
// l'inférence de schéma voie de vraies colonnes numériques.
func DecodeCSV(r io.Reader) ([]powerbi.Row, error) {
	cr := csv.NewReader(r)
	headers, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	var rows []powerbi.Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+2, err)
		}
		row := powerbi.Row{}
		for i, h := range headers {
			if h == "" || i >= len(rec) {
				continue
			}
			row[h] = coerceValue(rec[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DecodeXLSX lit la première feuille du classeur
func DecodeXLSX(data []byte) ([]powerbi.Row, error) {
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	if len(wb.Sheets) == 0 {
		return nil, nil
	}
	sheet := wb.Sheets[0]

	var headers []string
	first := true
	var rows []powerbi.Row
	err = sheet.ForEachRow(func(r *xlsx.Row) error {
		if first {
			first = false
			return r.ForEachCell(func(c *xlsx.Cell) error {
				headers = append(headers, c.String())
				return nil
			})
		}
		row := powerbi.Row{}
		i := 0
		cellErr := r.ForEachCell(func(c *xlsx.Cell) error {
			defer func() { i++ }()
			if i >= len(headers) || headers[i] == "" {
				return nil
			}
			if c.Type() == xlsx.CellTypeNumeric {
				if f, err := c.Float(); err == nil {
					row[headers[i]] = f
					return nil
				}
			}
			row[headers[i]] = c.String()
			return nil
		})
		if cellErr != nil {
			return cellErr
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return rows, nil
}

func coerceValue(s string) interface{} {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return s
}
