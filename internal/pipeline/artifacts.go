package pipeline

import (
	"context"
	"io"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-pipeline/internal/dataset"
	"github.com/sells-group/retail-pipeline/internal/export"
	"github.com/sells-group/retail-pipeline/internal/normalize"
)

// WriteCleaned writes the cleaned extract to cleanPath and the dropped rows
// into reportDir. It returns the files written.
func WriteCleaned(run *Run, cleanPath, reportDir string) ([]string, error) {
	if err := dataset.WriteFile(cleanPath, func(w io.Writer) error {
		return dataset.WriteCleanCSV(w, run.Cleaned)
	}); err != nil {
		return nil, err
	}

	droppedPath := filepath.Join(reportDir, export.DroppedRowsCSV)
	if err := dataset.WriteFile(droppedPath, func(w io.Writer) error {
		return dataset.WriteDroppedCSV(w, run.Dropped)
	}); err != nil {
		return nil, err
	}
	return []string{cleanPath, droppedPath}, nil
}

// WriteReport writes the run's report artifacts into dir.
func WriteReport(run *Run, dir string) ([]string, error) {
	if err := export.WriteReport(dir, run.Summary()); err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, export.ReportCSV),
		filepath.Join(dir, export.QualityCSV),
		filepath.Join(dir, export.ReportYAML),
		filepath.Join(dir, export.ReportText),
	}, nil
}

// NormalizedOptions selects the optional normalized artifacts.
type NormalizedOptions struct {
	Dir         string
	Denormalize bool
	Workbook    bool
}

// WriteNormalized writes one CSV per table into opts.Dir, the unresolved
// references when there are any, and the optional JSONL and XLSX outputs.
func WriteNormalized(ctx context.Context, run *Run, opts NormalizedOptions) ([]string, error) {
	if run.Tables == nil {
		return nil, eris.New("pipeline: no normalized tables to write")
	}

	files, err := export.WriteTablesCSV(ctx, opts.Dir, run.Tables)
	if err != nil {
		return nil, err
	}

	if len(run.Tables.Unresolved) > 0 {
		path := filepath.Join(opts.Dir, export.UnresolvedCSV)
		if err := dataset.WriteFile(path, func(w io.Writer) error {
			return dataset.WriteUnresolvedCSV(w, run.Tables.Unresolved)
		}); err != nil {
			return nil, err
		}
		files = append(files, path)
	}

	if opts.Denormalize {
		docs, err := normalize.Denormalize(run.Tables)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(opts.Dir, export.DenormalizedOut)
		if err := export.WriteDenormalizedJSONL(path, docs); err != nil {
			return nil, err
		}
		files = append(files, path)
	}

	if opts.Workbook {
		path := filepath.Join(opts.Dir, export.WorkbookOut)
		if err := export.WriteWorkbook(path, run.Tables); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}
