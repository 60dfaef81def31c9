package render

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfPageCount validates data as a PDF and returns its page count.
func pdfPageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty PDF")
	}
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("validating PDF: %w", err)
	}
	return n, nil
}
