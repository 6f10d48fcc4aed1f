package inputs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"skillmatch/internal/errors"
	"skillmatch/internal/types"
	"skillmatch/internal/utils"

	"github.com/ledongthuc/pdf"
)

// OpenPDF reads a PDF from disk and returns a file handle for it.
// maxSize <= 0 disables the size check.
func OpenPDF(path string, maxSize int64) (*types.FileRef, error) {
	if err := utils.ValidateInputFile(path); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, fmt.Sprintf("Cannot open %s", path), err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, fmt.Sprintf("Cannot read file: %s", path), err)
	}
	return PDFFromBytes(filepath.Base(path), data, maxSize)
}

// PDFFromBytes validates uploaded content the way a ".pdf" picker filter
// would and records the page count.
func PDFFromBytes(name string, data []byte, maxSize int64) (*types.FileRef, error) {
	if !utils.IsPDFFile(name) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("%s is not a PDF file", name), nil)
	}
	if len(data) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s is empty", name), nil)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s is %s, larger than the %s limit", name,
				utils.FormatFileSize(int64(len(data))), utils.FormatFileSize(maxSize)), nil)
	}
	if !utils.HasPDFHeader(data) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("%s does not look like a PDF document", name), nil)
	}

	pages, err := CountPages(data)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("%s could not be parsed as PDF", name), err)
	}

	ref := types.NewBytesFileRef(name, data)
	ref.Pages = pages
	return ref, nil
}

// CountPages returns the number of pages in a PDF document
func CountPages(data []byte) (pages int, err error) {
	// the parser panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}
