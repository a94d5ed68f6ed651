// Package export 提供提交审计记录的 Excel 导出功能
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"wisefido-intake/internal/models"
)

const sheetName = "Submissions"

// column 一列的表头、宽度和取值
type column struct {
	header string
	width  float64
	value  func(r *models.SubmissionRecord, p *models.SubmissionPayload) interface{}
}

func text(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func number(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

var columns = []column{
	{"Submitted At", 20, func(r *models.SubmissionRecord, _ *models.SubmissionPayload) interface{} {
		if r.SubmittedAt.IsZero() {
			return nil
		}
		return r.SubmittedAt.Format("2006-01-02 15:04:05")
	}},
	{"Interview ID", 38, func(r *models.SubmissionRecord, _ *models.SubmissionPayload) interface{} { return text(r.InterviewID) }},
	{"Device", 15, func(r *models.SubmissionRecord, _ *models.SubmissionPayload) interface{} { return text(r.DeviceID) }},
	{"Status", 12, func(r *models.SubmissionRecord, _ *models.SubmissionPayload) interface{} { return text(r.Status) }},
	{"Patient ID", 12, func(r *models.SubmissionRecord, _ *models.SubmissionPayload) interface{} { return text(r.PatientID) }},
	{"Name", 20, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return text(p.Name) }},
	{"Age", 8, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return text(p.Age) }},
	{"Gender", 10, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return text(p.Gender) }},
	{"Chief Complaint", 40, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return text(p.ChiefComplaint) }},
	{"Pain Description", 40, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return text(p.PainDescription) }},
	{"Additional Symptoms", 40, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return text(p.AdditionalSymptoms) }},
	{"Medical History", 40, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return text(p.MedicalHistory) }},
	{"Heart Rate (bpm)", 16, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return number(p.HeartRate) }},
	{"SpO2 (%)", 10, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return number(p.SpO2) }},
	{"Body Temp (°F)", 14, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return number(p.BodyTempF) }},
	{"Env Temp (°F)", 14, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return number(p.EnvTempF) }},
	{"Humidity (%)", 12, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return number(p.HumidityPercent) }},
	{"Weight (kg)", 12, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} { return number(p.WeightKg) }},
	{"Photo", 30, func(_ *models.SubmissionRecord, p *models.SubmissionPayload) interface{} {
		if p.Photo == nil {
			return nil
		}
		return text(*p.Photo)
	}},
	{"Error", 40, func(r *models.SubmissionRecord, _ *models.SubmissionPayload) interface{} { return text(r.Error) }},
}

// Headers 导出表头
func Headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.header
	}
	return out
}

// GenerateSubmissionsExport 生成提交记录导出 Excel 文件
// rows 为空时只生成表头
func GenerateSubmissionsExport(rows []*models.SubmissionRecord) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 需要文件保持打开，不能 defer Close

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, c := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, c.header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, c.width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, rec := range rows {
		if rec == nil {
			continue
		}
		payload := rec.Payload
		if payload == nil {
			payload = &models.SubmissionPayload{}
		}
		row := rowIdx + 2 // 第 1 行是表头
		for colIdx, c := range columns {
			value := c.value(rec, payload)
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}
