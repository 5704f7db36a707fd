package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/retail-pipeline/internal/normalize"
)

// WriteWorkbook saves every normalized table as a worksheet of one XLSX file.
func WriteWorkbook(path string, t *normalize.Tables) error {
	f := xlsx.NewFile()
	for _, s := range Sheets(t) {
		sheet, err := f.AddSheet(s.Name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", s.Name)
		}
		addRow(sheet, s.Header)
		for _, r := range s.Rows {
			addRow(sheet, r)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}
