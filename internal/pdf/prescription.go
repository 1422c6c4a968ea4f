// Package pdf renders prescriptions as printable documents.
package pdf

import (
	"bytes"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// PrescriptionDoc carries everything the rendered prescription shows.
type PrescriptionDoc struct {
	ClinicName        string
	PatientName       string
	DoctorName        string
	Content           string
	IssuedAt          string
	VerificationToken string
	VerificationURL   string
}

// BuildPrescriptionPDF renders the prescription with a verification QR at
// the bottom so the pharmacy can check authenticity online.
func BuildPrescriptionPDF(doc PrescriptionDoc) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, doc.ClinicName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Receituario", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Paciente: "+doc.PatientName, "", 1, "L", false, 0, "")
	if doc.DoctorName != "" {
		pdf.CellFormat(0, 6, "Profissional: "+doc.DoctorName, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Data: "+doc.IssuedAt, "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, doc.Content, "", "", false)
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, "Token de verificacao: "+doc.VerificationToken, "", 1, "L", false, 0, "")
	if doc.VerificationURL != "" {
		qrPNG, err := qrcode.Encode(doc.VerificationURL, qrcode.Medium, 128)
		if err == nil {
			tmpFile, err := os.CreateTemp("", "qr-*.png")
			if err == nil {
				tmpFile.Write(qrPNG)
				path := tmpFile.Name()
				tmpFile.Close()
				defer os.Remove(path)
				pdf.RegisterImage(path, "PNG")
				pdf.Image(path, 15, pdf.GetY(), 25, 25, false, "", 0, "")
				pdf.SetY(pdf.GetY() + 27)
			}
		}
		pdf.CellFormat(0, 5, "Verifique em: "+doc.VerificationURL, "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
