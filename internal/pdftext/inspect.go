package pdftext

import (
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrInvalidPDF is returned by Inspect for uploads that are not readable PDFs.
var ErrInvalidPDF = errors.New("invalid pdf")

// Info is the structural summary of a PDF returned by Inspect.
type Info struct {
	Pages int
}

// Inspect parses the document structure with pdfcpu in relaxed mode. Uploads
// that are not PDFs at all fail here, before text extraction.
func Inspect(rs io.ReadSeeker) (Info, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return Info{}, fmt.Errorf("%w: failed to read PDF context: %v", ErrInvalidPDF, err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, fmt.Errorf("%w: failed to ensure page count: %v", ErrInvalidPDF, err)
	}

	if ctx.PageCount == 0 {
		return Info{}, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}

	return Info{Pages: ctx.PageCount}, nil
}
