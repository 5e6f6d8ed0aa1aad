// Package export writes current standings to an xlsx workbook, one sheet
// per series, honoring each series' sheet-exclusion list.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/liquidfun/stackr/internal/domain"
	"github.com/liquidfun/stackr/internal/render"
)

// SeriesStandings pairs a series title with its ranked standings and the
// set of participants excluded from exports.
type SeriesStandings struct {
	Title     string
	Standings []domain.Standing
	Exclude   map[string]struct{}
}

// invalid strips the characters excelize rejects in sheet names.
var invalid = strings.NewReplacer(":", "", "\\", "", "/", "", "?", "", "*", "", "[", "", "]", "")

func sheetName(title string) string {
	name := invalid.Replace(title)
	if len(name) > 31 {
		name = name[:31]
	}
	if name == "" {
		name = "Series"
	}
	return name
}

// Workbook writes one sheet per series to path.
func Workbook(path string, series []SeriesStandings) error {
	if len(series) == 0 {
		return fmt.Errorf("no series to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range series {
		name := sheetName(s.Title)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, s); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, s SeriesStandings) error {
	header := []any{"#", "Username", "Times Played", "Average", "Sum"}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header for %q: %w", name, err)
	}

	row := 2
	for _, standing := range s.Standings {
		if _, skip := s.Exclude[standing.Participant]; skip {
			continue
		}
		avg, err := standing.Record.Average()
		if err != nil {
			continue
		}
		cells := []any{
			render.Ordinal(standing.Rank),
			standing.Participant,
			standing.Record.ParticipationCount(),
			avg,
			standing.Score,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d for %q: %w", row, name, err)
		}
		row++
	}
	return nil
}
