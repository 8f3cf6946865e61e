package purchaserequest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"PR No", "Status", "Current Stage", "Requestor", "Department",
	"Purpose", "Total Amount", "Currency", "Created At",
}

// WriteExcel writes a purchase request listing as an xlsx workbook.
func WriteExcel(w io.Writer, prs []PurchaseRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Purchase Requests"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return err
	}

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, pr := range prs {
		values := []interface{}{
			pr.PRNo,
			string(pr.DocStatus),
			pr.CurrentStage,
			pr.RequestorName,
			pr.DepartmentID,
			pr.Purpose,
			pr.TotalAmount,
			pr.Currency,
			pr.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	if len(prs) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(exportHeaders), len(prs)+1)
		f.AutoFilter(sheet, fmt.Sprintf("A1:%s", last), nil)
	}

	return f.Write(w)
}
