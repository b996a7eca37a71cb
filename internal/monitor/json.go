package monitor

import (
	"encoding/json"
	"io"

	"github.com/ppiankov/cissync/internal/syncer"
)

// SyncOutput is the JSON envelope for `cissync sync --output json`.
// Wraps the result with exit-code metadata for pipeline parsing.
type SyncOutput struct {
	Result   syncer.Result `json:"result"`
	ExitCode int           `json:"exitCode"`
}

// WriteJSON serializes a SyncOutput envelope to w.
func WriteJSON(w io.Writer, res syncer.Result, exitCode int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(SyncOutput{
		Result:   res,
		ExitCode: exitCode,
	})
}
