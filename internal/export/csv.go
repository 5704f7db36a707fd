package export

import (
	"context"
	"encoding/csv"
	"io"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/retail-pipeline/internal/dataset"
	"github.com/sells-group/retail-pipeline/internal/normalize"
)

// maxConcurrentWrites bounds how many table files are written at once.
const maxConcurrentWrites = 4

// WriteTablesCSV writes <table>.csv for every normalized table into dir.
// It returns the written paths in table order.
func WriteTablesCSV(ctx context.Context, dir string, t *normalize.Tables) ([]string, error) {
	sheets := Sheets(t)
	paths := make([]string, len(sheets))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentWrites)

	for i, s := range sheets {
		paths[i] = filepath.Join(dir, s.Name+".csv")
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return eris.Wrap(err, "export: context cancelled")
			}
			return dataset.WriteFile(paths[i], func(w io.Writer) error {
				return writeSheetCSV(w, s)
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().With(zap.String("component", "export")).Info("wrote normalized tables",
		zap.String("dir", dir),
		zap.Int("tables", len(paths)),
	)
	return paths, nil
}

func writeSheetCSV(w io.Writer, s Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Header); err != nil {
		return eris.Wrapf(err, "export: write %s header", s.Name)
	}
	if err := cw.WriteAll(s.Rows); err != nil {
		return eris.Wrapf(err, "export: write %s rows", s.Name)
	}
	return nil
}
