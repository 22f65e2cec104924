package leave

import (
	"bytes"
	"context"
	"fmt"

	leaveerrors "go-conge/internal/leave/errors"
	"go-conge/internal/rbac"
	"go-conge/internal/shared/contextutil"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const exportSheet = "Demandes"

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportFile struct {
	Filename string
	Content  []byte
}

var exportHeaders = []string{
	"Employé", "Email", "Date de demande", "Date de début", "Date de fin",
	"Nombre de jours", "Année", "Type", "État", "Commentaire",
}

// Export renders every request, or one year's requests, as an xlsx workbook.
// The actor needs leave:export.
func (s *service) Export(ctx context.Context, actorID string, year *int) (ExportFile, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	actor, _, err := s.actor(ctx, actorID)
	if err != nil {
		return ExportFile{}, err
	}
	ok, err := s.allowed(ctx, actor, rbac.ResourceLeave, rbac.ActionExport)
	if err != nil {
		return ExportFile{}, err
	}
	if !ok {
		return ExportFile{}, leaveerrors.ErrForbidden
	}

	leaves, err := s.repo.FindAll(ctx, year)
	if err != nil {
		log.Error("export leaves query failed", zap.Error(err))
		return ExportFile{}, mapRepositoryError(err)
	}

	content, err := renderWorkbook(leaves)
	if err != nil {
		log.Error("export leaves render failed", zap.Error(err))
		return ExportFile{}, leaveerrors.ErrExportFailed
	}

	suffix := "all"
	if year != nil {
		suffix = fmt.Sprintf("%d", *year)
	}
	log.Info("export leaves success", zap.Int("rows", len(leaves)), zap.String("scope", suffix))

	return ExportFile{
		Filename: fmt.Sprintf("conges_%s.xlsx", suffix),
		Content:  content,
	}, nil
}

func renderWorkbook(leaves []LeaveRequest) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(exportSheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "A", "B", 24); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "C", "J", 16); err != nil {
		return nil, err
	}

	for r, l := range leaves {
		var name, email string
		if l.User != nil {
			name, email = l.User.Name, l.User.Email
		}
		row := []any{
			name,
			email,
			l.RequestDate.Format(dateLayout),
			l.StartDate.Format(dateLayout),
			l.EndDate.Format(dateLayout),
			l.DayCount,
			l.Year,
			l.LeaveType,
			l.Status,
			l.Comment,
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
