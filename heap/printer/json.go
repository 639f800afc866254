package printer

import (
	"encoding/json"
	"fmt"
)

// printJSON writes v as one indented JSON document.
func (p *Printer) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.writer, "%s\n", data)
	return err
}
