package export

import (
	"fmt"
	"io"
	"time"

	"priyom/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetName   = "Записи"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{"ID", "Дата", "Время", "Клиент", "Контакт", "Статус", "Создана"}

// statusFill красит строку по статусу записи
var statusFill = map[models.ReservationStatus]string{
	models.StatusPending:   "#FFEB9C",
	models.StatusConfirmed: "#C6EFCE",
	models.StatusCancelled: "#FFC7CE",
}

// FileName builds the download name of an export.
func FileName(ownerID int64, from, to time.Time) string {
	return fmt.Sprintf("reservations_%d_%s_to_%s.xlsx", ownerID, from.Format(models.DateLayout), to.Format(models.DateLayout))
}

// Reservations builds a workbook with one row per reservation in the given
// order. Times are rendered in loc. The caller closes the file.
func Reservations(owner *models.Owner, reservations []*models.Reservation, from, to time.Time, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	// Заголовок периода
	title := fmt.Sprintf("%s: %s - %s", owner.Name, from.In(loc).Format("02.01.2006"), to.In(loc).Format("02.01.2006"))
	_ = f.SetCellValue(sheetName, "A1", title)
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	if style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err == nil {
		_ = f.SetCellStyle(sheetName, "A1", "A1", style)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	_ = f.SetCellStyle(sheetName, "A2", lastCol+"2", headerStyle)

	styles := make(map[models.ReservationStatus]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("row style: %w", err)
		}
		styles[status] = id
	}

	for i, r := range reservations {
		row := i + 3
		at := r.ScheduledAt.In(loc)
		values := []interface{}{
			r.ID,
			at.Format("02.01.2006"),
			at.Format("15:04"),
			r.RequesterName,
			r.RequesterContact,
			string(r.Status),
			r.CreatedAt.In(loc).Format("02.01.2006 15:04"),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		if style, ok := styles[r.Status]; ok {
			end, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(sheetName, start, end, style)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "C", 12)
	_ = f.SetColWidth(sheetName, "D", "E", 25)
	_ = f.SetColWidth(sheetName, "F", "G", 18)
	return f, nil
}

// WriteReservations streams the workbook to w.
func WriteReservations(w io.Writer, owner *models.Owner, reservations []*models.Reservation, from, to time.Time, loc *time.Location) error {
	f, err := Reservations(owner, reservations, from, to, loc)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
