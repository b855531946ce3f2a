package wrapper

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrEncrypted is returned for documents that need a user password to open
var ErrEncrypted = errors.New("document is encrypted")

// validateFile reads the document with pdfcpu in relaxed mode and returns its
// page count. Documents that only restrict permissions with an owner password
// open with the empty user password; those needing a user password are rejected.
func validateFile(path string) (pages int, err error) {
	defer recoverInto(&err, BackendPDFCPU, "validate")

	file, err := os.Open(path)
	if err != nil {
		return 0, &WrapperError{
			Backend: BackendPDFCPU,
			Op:      "validate",
			Err:     fmt.Errorf("failed to open file: %w", err),
		}
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if errors.Is(err, pdfcpu.ErrWrongPassword) {
		return 0, &WrapperError{Backend: BackendPDFCPU, Op: "validate", Err: ErrEncrypted}
	}
	if err != nil {
		return 0, &WrapperError{
			Backend: BackendPDFCPU,
			Op:      "validate",
			Err:     fmt.Errorf("failed to read PDF context: %w", err),
		}
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return 0, &WrapperError{
			Backend: BackendPDFCPU,
			Op:      "validate",
			Err:     fmt.Errorf("failed to ensure page count: %w", err),
		}
	}

	return ctx.PageCount, nil
}
