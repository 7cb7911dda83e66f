package records

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{
	"Nome", "Sobrenome", "RG", "CPF", "SUS", "Telefone",
	"Endereço 1", "Endereço 2", "Endereço 3", "Endereço 4",
	"Renda mensal", "Profissão", "Etnia", "Setor",
}

// Export renders the visible profiles as an XLSX workbook.
func (s *Service) Export(ctx context.Context, sectors []string, search string) ([]byte, error) {
	profiles, err := s.List(ctx, sectors, search)
	if err != nil {
		return nil, err
	}
	b, err := renderWorkbook(s.collection, profiles)
	if err != nil {
		return nil, apperr.Internal("Error exporting records.", err)
	}
	return b, nil
}

func renderWorkbook(sheetName string, profiles []Profile) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, p := range profiles {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		var income interface{}
		if p.MonthlyIncome != nil {
			income = p.MonthlyIncome.InexactFloat64()
		}
		row := []interface{}{
			p.Name, p.Surname, p.Identity, p.TaxID, p.HealthCard, p.Phone,
			p.Address1, p.Address2, p.Address3, p.Address4,
			income, p.Profession, p.Ethnicity, strings.Join(p.Sector, ", "),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
