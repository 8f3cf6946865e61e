package purchaserequest

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// WritePrintForm renders a purchase request as a printable PDF form.
func WritePrintForm(w io.Writer, pr *PurchaseRequest) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Purchase Request", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.Ln(4)

	field := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}

	field("PR Number:", pr.PRNo)
	field("Status:", string(pr.DocStatus))
	field("Current Stage:", pr.CurrentStage)
	field("Requestor:", pr.RequestorName)
	field("Department:", pr.DepartmentID)
	field("Purpose:", pr.Purpose)
	field("Created:", pr.CreatedAt.Format("2006-01-02"))
	if pr.NeededBy != nil {
		field("Needed By:", pr.NeededBy.Format("2006-01-02"))
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)

	colWidths := []float64{12, 30, 60, 20, 20, 28, 28}
	headers := []string{"No", "Item Code", "Description", "Qty", "UOM", "Unit Price", "Amount"}
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, item := range pr.Items {
		cells := []string{
			fmt.Sprintf("%d", item.LineNo),
			item.ItemCode,
			item.Description,
			fmt.Sprintf("%.2f", item.Quantity),
			item.UOM,
			fmt.Sprintf("%.2f", item.UnitPrice),
			fmt.Sprintf("%.2f", item.Quantity*item.UnitPrice),
		}
		aligns := []string{"C", "L", "L", "R", "C", "R", "R"}
		for i, cell := range cells {
			pdf.CellFormat(colWidths[i], 7, cell, "1", 0, aligns[i], false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(142, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(56, 8, fmt.Sprintf("%s %.2f", pr.Currency, pr.TotalAmount), "1", 1, "R", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Last action: %s by %s", pr.LastAction, pr.LastActionByName), "", 1, "L", false, 0, "")

	return pdf.Output(w)
}
