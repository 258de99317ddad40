package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/frame"
)

// LabelsSuffix is appended to the base name of the separated label file
const LabelsSuffix = "_labels"

// ExportFiles writes exp.Data to <dir>/<base><ext> and, when labels were
// separated, exp.Labels to <dir>/<base>_labels<ext>. It returns the paths
// written.
func ExportFiles(dir, base string, exp *frame.Export, w Writer) ([]string, error) {
	if exp == nil || exp.Data == nil {
		return nil, apperrors.NewInvalidInputError("nothing to export")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.NewStorageError("failed to create directory", err).WithContext("dir", dir)
	}

	paths := []string{filepath.Join(dir, base+w.Extension())}
	if err := writeFile(paths[0], exp.Data, w); err != nil {
		return nil, err
	}
	if exp.Labels != nil {
		labels := filepath.Join(dir, base+LabelsSuffix+w.Extension())
		if err := writeFile(labels, exp.Labels, w); err != nil {
			return nil, err
		}
		paths = append(paths, labels)
	}

	slog.Info("Export written",
		slog.String("format", w.Format()),
		slog.Any("files", paths),
		slog.Int("rows", exp.Data.Len()))
	return paths, nil
}

// writeFile writes t to a temporary file and renames it into place so a
// failed export never leaves a truncated file behind.
func writeFile(path string, t *frame.Table, w Writer) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.NewStorageError("failed to create file", err).WithContext("path", path)
	}
	defer os.Remove(tmp.Name())

	if err := w.Write(tmp, t); err != nil {
		tmp.Close()
		return apperrors.NewStorageError(fmt.Sprintf("failed to write %s", w.Format()), err).WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to close file", err).WithContext("path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewStorageError("failed to move file into place", err).WithContext("path", path)
	}
	return nil
}
