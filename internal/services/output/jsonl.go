package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/annuaire/internal/common"
)

// AppendJSONLine appends record to path as one compact JSON line. The line is
// emitted in a single write, after terminating any torn line a previous crash
// left at the end of the file.
func AppendJSONLine(path string, record interface{}) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(record); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	file, err := common.OpenAppend(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}
