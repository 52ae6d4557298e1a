package report

import (
	"encoding/json"
	"fmt"
	"io"

	"cleanarch/internal/cleanarch"
)

func renderJSON(w io.Writer, rep *cleanarch.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
