package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-pipeline/internal/dataset"
	"github.com/sells-group/retail-pipeline/internal/model"
)

// WriteDenormalizedJSONL writes one JSON document per line to path.
func WriteDenormalizedJSONL(path string, docs []model.Document) error {
	return dataset.WriteFile(path, func(w io.Writer) error {
		return EncodeJSONL(w, docs)
	})
}

// EncodeJSONL writes docs to w as newline-delimited JSON.
func EncodeJSONL(w io.Writer, docs []model.Document) error {
	enc := json.NewEncoder(w)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return eris.Wrapf(err, "export: encode document %s", d.TransactionID)
		}
	}
	return nil
}
