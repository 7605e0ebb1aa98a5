// Package export renders stored meeting data as downloadable documents.
package export

import (
	"fmt"
	"io"

	"github.com/paavan-1234/minutes-backend/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	TasksSheet       = "Tasks"
	XLSXContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultSheetName = "Sheet1"
)

var taskHeader = []any{"Title", "Description", "Owner", "Due date", "Priority", "Status", "Sync status"}

// WriteTasks writes the meeting's action items as a single-sheet workbook.
func WriteTasks(w io.Writer, tasks []models.Task) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheetName, TasksSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(TasksSheet, "A1", &taskHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(TasksSheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, t := range tasks {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{t.Title, t.Description, t.Owner, t.DueDate, t.Priority, t.Status, t.NotionSyncStatus}
		if err := f.SetSheetRow(TasksSheet, cell, &row); err != nil {
			return fmt.Errorf("write task %d: %w", i, err)
		}
	}

	if err := f.SetColWidth(TasksSheet, "A", "B", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(TasksSheet, "C", "G", 14); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

// TasksFileName is the download name for a meeting's task export.
func TasksFileName(m *models.Meeting) string {
	return fmt.Sprintf("meeting-%s-tasks.xlsx", m.ID)
}
