package local

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shpitdev/dependents-outreach/pkg/pipeline/schema"
)

// Contact is one exported CSV row.
type Contact struct {
	Name  string
	Email string
}

// WriteContactsCSV writes the contacts export with the stable schema.ContactsCSV header.
func WriteContactsCSV(w io.Writer, contacts []Contact) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.ContactsCSV.Header()); err != nil {
		return err
	}
	for _, c := range contacts {
		if err := cw.Write([]string{c.Name, c.Email}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadContactsCSV reads a contacts export back. Header matching is case-insensitive
// and extra columns are ignored.
func ReadContactsCSV(r io.Reader) ([]Contact, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, name := range schema.ContactsCSV.Header() {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var out []Contact
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		get := func(col string) string {
			i := index[col]
			if i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		out = append(out, Contact{Name: get("name"), Email: get("email")})
	}
}
