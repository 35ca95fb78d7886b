// Package upload decodes bill-image attachments from multipart forms.
package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"taxportal/api/internal/store"
)

// MaxBillBytes caps a single bill attachment.
const MaxBillBytes = 5 << 20

var (
	ErrTooLarge = errors.New("bill file exceeds the 5 MB limit")
	ErrBadType  = errors.New("bill file must be a JPEG, PNG, GIF, or PDF")
)

var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"application/pdf": true,
}

// BillFromForm extracts the named file field as a bill attachment. A form
// with no file in the field yields (nil, nil); attachments are optional on
// every payment form.
func BillFromForm(r *http.Request, field string) (*store.Bill, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bill field: %w", err)
	}
	defer file.Close()

	if header.Size > MaxBillBytes {
		return nil, ErrTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, MaxBillBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read bill data: %w", err)
	}
	if len(data) > MaxBillBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, nil
	}

	// Sniff the real content type rather than trusting the client header.
	filetype := http.DetectContentType(data)
	if !allowedTypes[filetype] {
		return nil, ErrBadType
	}

	return &store.Bill{
		Filename: header.Filename,
		Filetype: filetype,
		Data:     data,
	}, nil
}
