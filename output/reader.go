package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
)

// ReadDetail parses a detail report back into rows. Line and Path are not
// stored in the report and stay zero.
func ReadDetail(path string) ([]Detail, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read detail header: %w", err)
	}
	if !slices.Equal(header, detailHeader) {
		return nil, fmt.Errorf("unexpected detail header %v", header)
	}
	var rows []Detail
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read detail row: %w", err)
		}
		rows = append(rows, Detail{FileID: rec[0], Scanner: rec[1], Payload: rec[2]})
	}
}
