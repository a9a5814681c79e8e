package boq

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
)

// jsonLine tolerates quantities arriving as numbers or as strings; bills
// pasted through chat clients often stringify everything.
type jsonLine struct {
	Name   string          `json:"name"`
	Unit   string          `json:"unit"`
	Volume json.RawMessage `json:"volume"`
}

// ParseJSON reads a bill from a JSON array of {name, unit, volume} objects.
// Lines without a name are dropped with a warning; unparseable quantities
// become 0 with a warning.
func ParseJSON(data []byte, source string) (*model.BoQDocument, error) {
	var raw []jsonLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: bill must be a JSON array of {name, unit, volume}: %v", common.ErrValidation, err)
	}

	doc := &model.BoQDocument{Source: source}
	for i, line := range raw {
		name := strings.TrimSpace(line.Name)
		if name == "" {
			doc.Warnings = append(doc.Warnings, model.ParseWarning{
				Row:    i + 1,
				Field:  "name",
				Reason: "missing name",
			})
			continue
		}

		qty, err := parseJSONQuantity(line.Volume)
		if err != nil {
			doc.Warnings = append(doc.Warnings, model.ParseWarning{
				Row:    i + 1,
				Field:  "volume",
				Value:  string(line.Volume),
				Reason: err.Error(),
			})
			qty = 0
		}
		doc.Lines = append(doc.Lines, model.BoQLine{
			Name:   name,
			Unit:   strings.TrimSpace(line.Unit),
			Volume: qty,
		})
	}
	return doc, nil
}

// LoadJSONFile reads a bill from a .json file on disk.
func LoadJSONFile(path string) (*model.BoQDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bill file: %w", err)
	}
	return ParseJSON(data, path)
}

func parseJSONQuantity(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, nil
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return ParseQuantity(text)
	}
	return 0, fmt.Errorf("not a number: %s", string(raw))
}
