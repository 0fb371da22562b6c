// Local file source: a directory of delimited exports in a non-UTF8 encoding.
// Each file is one unit.
package file

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"finsync/source"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type Source struct {
	source.NoAuth

	Dir string
	// source text encoding; bank exports come as cp1251
	Encoding encoding.Encoding
	// field delimiter; defaults to ';'
	Comma rune
}

func (s *Source) encoding() encoding.Encoding {
	if s.Encoding != nil {
		return s.Encoding
	}

	return charmap.Windows1251
}

func (s *Source) comma() rune {
	if s.Comma != 0 {
		return s.Comma
	}

	return ';'
}

// ListUnits enumerates the *.csv files of the directory.
func (s *Source) ListUnits(ctx context.Context, _ *source.Session) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)

	if err != nil {
		return nil, err
	}

	var units []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}

		units = append(units, e.Name())
	}

	return units, nil
}

// FetchUnit transcodes one file to UTF-8 and parses its header-named,
// delimited rows. Any transcoding or row-shape failure is a DecodeError.
func (s *Source) FetchUnit(ctx context.Context, _ *source.Session, unit string) ([]source.RawRecord, error) {
	f, err := os.Open(filepath.Join(s.Dir, unit))

	if err != nil {
		return nil, err
	}

	defer f.Close()

	r := csv.NewReader(transform.NewReader(f, s.encoding().NewDecoder()))
	r.Comma = s.comma()

	header, err := r.Read()

	if err != nil {
		return nil, &source.DecodeError{Name: unit, Err: err}
	}

	var records []source.RawRecord

	for {
		row, err := r.Read()

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, &source.DecodeError{Name: unit, Err: err}
		}

		rec := source.RawRecord{}
		for i, h := range header {
			rec[h] = row[i]
		}

		records = append(records, rec)
	}

	return records, nil
}
