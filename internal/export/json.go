package export

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/Joseda-hg/lazytrip/internal/model"
)

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: write json: %v", model.ErrIOFailure, err)
	}
	return nil
}
