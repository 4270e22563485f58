package extract

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-checker/internal/entity"
)

const payloadSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "source_pdf": {"type": ["string", "null"]},
    "full_path": {"type": ["string", "null"]},
    "billing_period_start": {"type": ["string", "null"]},
    "billing_period_end": {"type": ["string", "null"]},
    "error": {"type": ["string", "null"]},
    "tables": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["index", "page", "data"],
        "properties": {
          "index": {"type": "integer"},
          "page": {"type": "integer"},
          "accuracy": {"type": ["number", "null"]},
          "whitespace": {"type": ["number", "null"]},
          "flavor": {"type": ["string", "null"]},
          "data": {
            "type": "array",
            "items": {"type": "array", "items": {"type": ["string", "null"]}}
          }
        }
      }
    }
  }
}`

var payloadSchema = jsonschema.MustCompileString("payload.json", payloadSchemaJSON)

// payload is the JSON object the tool writes to stdout. Unknown fields are ignored.
type payload struct {
	SourcePDF          *string        `json:"source_pdf"`
	FullPath           *string        `json:"full_path"`
	BillingPeriodStart *string        `json:"billing_period_start"`
	BillingPeriodEnd   *string        `json:"billing_period_end"`
	Tables             []payloadTable `json:"tables"`
	Error              *string        `json:"error"`
}

type payloadTable struct {
	Index      int         `json:"index"`
	Page       int         `json:"page"`
	Accuracy   *float64    `json:"accuracy"`
	Whitespace *float64    `json:"whitespace"`
	Flavor     *string     `json:"flavor"`
	Data       [][]*string `json:"data"`
}

// decodePayload validates stdout against the payload schema and decodes it.
func decodePayload(b []byte) (payload, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return payload{}, fmt.Errorf("invalid json: %w", err)
	}
	if err := payloadSchema.Validate(v); err != nil {
		return payload{}, fmt.Errorf("json does not match schema: %w", err)
	}
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

func (p payload) tables() []entity.Table {
	if len(p.Tables) == 0 {
		return nil
	}
	out := make([]entity.Table, 0, len(p.Tables))
	for _, t := range p.Tables {
		tbl := entity.Table{
			Index:      t.Index,
			Page:       t.Page,
			Accuracy:   deref(t.Accuracy),
			Whitespace: deref(t.Whitespace),
			Flavor:     deref(t.Flavor),
			Data:       make([][]string, 0, len(t.Data)),
		}
		for _, row := range t.Data {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = deref(c)
			}
			tbl.Data = append(tbl.Data, cells)
		}
		out = append(out, tbl)
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
