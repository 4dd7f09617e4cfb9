// Package export writes the resampled frames under their final 360_NNN names.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"turntable/internal/fileutil"
	"turntable/internal/frames"
	"turntable/internal/logging"
	"turntable/internal/resample"
)

// Exporter copies selected stabilized frames into the output directory.
type Exporter struct {
	logger *slog.Logger
}

// New returns an Exporter.
func New(logger *slog.Logger) *Exporter {
	return &Exporter{logger: logging.NewComponentLogger(logger, "exporter")}
}

// Export writes slot k from seq frame indices[k] as 360_%03d with the source
// extension. Missing or undecodable sources leave their slot empty. The
// returned names are in slot order and may be fewer than len(indices).
func (e *Exporter) Export(ctx context.Context, seq frames.Sequence, indices resample.IndexMap, outDir string) ([]string, error) {
	logger := logging.WithContext(ctx, e.logger)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	produced := make([]string, 0, len(indices))
	for k, idx := range indices {
		if err := ctx.Err(); err != nil {
			return produced, err
		}
		if idx < 0 || idx >= seq.Len() {
			logging.WarnWithContext(logger, "export slot references missing frame", "export_slot_skipped",
				logging.Int("slot", k),
				logging.Int("index", idx),
				logging.String(logging.FieldImpact, "output slot left empty"),
			)
			continue
		}
		src := seq.Path(idx)
		if _, err := frames.Decode(src); err != nil {
			logging.WarnWithContext(logger, "export source unreadable", "export_slot_skipped",
				logging.Int("slot", k),
				logging.String("frame", seq.Names[idx]),
				logging.Error(err),
				logging.String(logging.FieldImpact, "output slot left empty"),
			)
			continue
		}
		name := frames.ExportName(k, frames.Ext(seq.Names[idx]))
		if err := fileutil.CopyFile(src, filepath.Join(outDir, name)); err != nil {
			return produced, fmt.Errorf("export %s: %w", name, err)
		}
		produced = append(produced, name)
	}

	logger.Info("frames exported",
		logging.Int("requested", len(indices)),
		logging.Int("produced", len(produced)),
		logging.Int("distinct_sources", indices.Distinct()),
	)
	return produced, nil
}
