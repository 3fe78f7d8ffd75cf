package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Schedule"

// XLSXExporter renders a day-by-slot spreadsheet plus a section list sheet.
type XLSXExporter struct{}

// NewXLSXExporter constructs a spreadsheet exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// ContentType implements Renderer.
func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension implements Renderer.
func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render writes the workbook.
func (e *XLSXExporter) Render(doc Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	_ = f.SetCellValue(xlsxSheet, "A1", fmt.Sprintf("%s (%s credit hours)", doc.Title, doc.CreditLabel()))
	_ = f.MergeCell(xlsxSheet, "A1", cellName(len(weekdays)+1, 1))
	_ = f.SetCellStyle(xlsxSheet, "A1", "A1", headerStyle)

	_ = f.SetCellValue(xlsxSheet, "A2", "Time")
	for i, day := range weekdays {
		_ = f.SetCellValue(xlsxSheet, cellName(i+2, 2), day)
	}
	_ = f.SetCellStyle(xlsxSheet, "A2", cellName(len(weekdays)+1, 2), headerStyle)
	_ = f.SetColWidth(xlsxSheet, "A", "A", 10)
	_ = f.SetColWidth(xlsxSheet, "B", cellColumn(len(weekdays)+1), 20)

	meetings := doc.Meetings()
	styles := map[string]int{}
	if len(meetings) > 0 {
		first, last := meetings[0].Start/pdfSlotTicks, 0
		for _, m := range meetings {
			if s := m.Start / pdfSlotTicks; s < first {
				first = s
			}
			if s := (m.End + pdfSlotTicks - 1) / pdfSlotTicks; s > last {
				last = s
			}
		}
		row := 3
		for slot := first; slot < last; slot++ {
			_ = f.SetCellValue(xlsxSheet, cellName(1, row), clock(slot*pdfSlotTicks))
			for day := range weekdays {
				entry, ok := meetingAt(meetings, day, slot)
				if !ok {
					continue
				}
				cell := cellName(day+2, row)
				_ = f.SetCellValue(xlsxSheet, cell, entry.Label())
				style, err := fillStyle(f, styles, entry.Color)
				if err != nil {
					return nil, err
				}
				_ = f.SetCellStyle(xlsxSheet, cell, cell, style)
			}
			row++
		}
	}

	if err := writeSectionSheet(f, doc); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSectionSheet(f *excelize.File, doc Document) error {
	const sheet = "Sections"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sections sheet: %w", err)
	}
	headers := []string{"Course", "Name", "Section", "Type", "Instructor", "Location", "Day", "Start", "End"}
	for i, h := range headers {
		_ = f.SetCellValue(sheet, cellName(i+1, 1), h)
	}
	row := 2
	for _, entry := range append(doc.Meetings(), doc.Unscheduled()...) {
		values := []interface{}{entry.CourseID, entry.CourseName, entry.SectionNumber, entry.Type, entry.Instructor, entry.Location}
		if entry.Unscheduled {
			values = append(values, "", "", "")
		} else {
			values = append(values, entry.DayName(), clock(entry.Start), clock(entry.End))
		}
		for i, v := range values {
			_ = f.SetCellValue(sheet, cellName(i+1, row), v)
		}
		row++
	}
	return nil
}

func fillStyle(f *excelize.File, cache map[string]int, color string) (int, error) {
	if style, ok := cache[color]; ok {
		return style, nil
	}
	r, g, b := parseHexColor(color)
	style, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{fmt.Sprintf("#%02X%02X%02X", r, g, b)}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
	})
	if err != nil {
		return 0, fmt.Errorf("create fill style: %w", err)
	}
	cache[color] = style
	return style, nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func cellColumn(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}
