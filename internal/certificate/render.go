package certificate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// Payload builds the QR verification object for cert.
func Payload(cert *Certificate, verifyURL string) VerificationPayload {
	return VerificationPayload{
		CertificateID: cert.CertificateID,
		HolderName:    cert.HolderName,
		NIN:           cert.NIN,
		VerifyURL:     verifyURL,
	}
}

// QRCode renders the payload as a PNG.
func QRCode(payload VerificationPayload) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// RenderPDF draws the certificate with its QR code.
func RenderPDF(cert *Certificate, qrPNG []byte) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Certificate of Indigene "+cert.CertificateID, true)
	pdf.AddPage()

	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont("Arial", "B", 14)
	pdf.SetY(22)
	pdf.CellFormat(0, 8, strings.ToUpper(cert.LocalGovernmentName)+" LOCAL GOVERNMENT", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, cert.State+" State", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 24)
	pdf.CellFormat(0, 12, "CERTIFICATE OF INDIGENE", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 7, "This is to certify that", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, cert.HolderName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	origin := "is an indigene of " + cert.LocalGovernmentName + " Local Government Area"
	if cert.Village != "" {
		origin = "of " + cert.Village + " village " + origin
	}
	pdf.CellFormat(0, 7, origin+", "+cert.State+" State.", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	rows := [][2]string{
		{"Certificate ID", cert.CertificateID},
		{"NIN", cert.NIN},
		{"Date of issue", cert.IssuedAt.Format("02 January 2006")},
	}
	if cert.DateOfBirth != "" {
		rows = append(rows, [2]string{"Date of birth", cert.DateOfBirth})
	}
	if cert.Digitized {
		rows = append(rows, [2]string{"Digitized from", cert.OldCertificateNumber})
	}
	for _, r := range rows {
		pdf.SetX(40)
		pdf.CellFormat(45, 6, r[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(100, 6, r[1], "", 1, "L", false, 0, "")
	}

	if len(qrPNG) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
		pdf.ImageOptions("qr", 222, 130, 50, 50, false, opts, 0, "")
		pdf.SetFont("Arial", "I", 8)
		pdf.SetXY(215, 181)
		pdf.CellFormat(64, 5, "Scan to verify", "", 0, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
