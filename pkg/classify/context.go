package classify

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// LoadPromptContext renders context files for the GenAI prompt. CSV files
// become a JSON array of row objects keyed by header; other files are
// included verbatim. Missing files are skipped.
func LoadPromptContext(paths ...string) (string, error) {
	var sections []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", errors.Wrapf(err, "failed to read context file %s", p)
		}

		body := strings.TrimSpace(string(data))
		if strings.EqualFold(filepath.Ext(p), ".csv") {
			body, err = csvToJSON(data)
			if err != nil {
				return "", errors.Wrapf(err, "failed to parse %s", p)
			}
		}
		sections = append(sections, fmt.Sprintf("%s content: %s", filepath.Base(p), body))
	}
	return strings.Join(sections, "\n\n"), nil
}

func csvToJSON(data []byte) (string, error) {
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return "", err
	}

	rows := make([]map[string]string, 0)
	if len(records) > 1 {
		header := records[0]
		for _, rec := range records[1:] {
			row := make(map[string]string, len(header))
			for i, col := range header {
				if i < len(rec) {
					row[col] = rec[i]
				}
			}
			rows = append(rows, row)
		}
	}

	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
