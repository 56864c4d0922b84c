// Package quality implements the data-quality gate every raw record passes
// before it is normalized and scored.
//
// Checks, in reporting order:
//
//	shape      field types match the raw-record schema     invalid_field:<name>
//	required   job_id, title, job_url present               missing_field:<name>
//	limits     title at most 255 characters                 invalid_field:title
//	url        job_url is an absolute http(s) URL           invalid_url
//	dates      posted_date/created_at/updated_at parse      unparseable_date:<field>
//
// A record with any reason is rejected; rejections are values, never errors,
// so one bad record cannot abort a batch.
package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/qri-io/jsonschema"

	"jobmate/ghostjob-service/internal/dateparse"
	"jobmate/ghostjob-service/internal/model"
)

// Reason prefixes reported for rejected records.
const (
	ReasonMissingField     = "missing_field"
	ReasonInvalidURL       = "invalid_url"
	ReasonUnparseableDate  = "unparseable_date"
	ReasonInvalidField     = "invalid_field"
	ReasonMalformedRecord  = "malformed_record"
	ReasonInvariantFailure = "invariant_violation"
)

// DateFields are the source-supplied date fields the gate checks.
// extracted_at is pipeline-owned and ignored here.
var DateFields = []string{"posted_date", "created_at", "updated_at"}

const rawRecordSchema = `{
  "type": "object",
  "properties": {
    "job_id":         {"type": ["string", "number", "null"]},
    "source":         {"type": ["string", "null"]},
    "source_company": {"type": ["string", "null"]},
    "title":          {"type": ["string", "null"]},
    "company":        {"type": ["string", "null"]},
    "location":       {"type": ["string", "null"]},
    "description":    {"type": ["string", "null"]},
    "job_url":        {"type": ["string", "null"]},
    "posted_date":    {"type": ["string", "null"]},
    "created_at":     {"type": ["string", "null"]},
    "updated_at":     {"type": ["string", "null"]},
    "salary_min":     {"type": ["number", "string", "null"]},
    "salary_max":     {"type": ["number", "string", "null"]},
    "active":         {"type": ["boolean", "string", "null"]}
  }
}`

// requiredFields is the validator view of the fields every record needs.
type requiredFields struct {
	JobID  string `json:"job_id" validate:"required"`
	Title  string `json:"title" validate:"required,max=255"`
	JobURL string `json:"job_url" validate:"required,http_url"`
}

// Gate validates raw records. It is safe for concurrent use.
type Gate struct {
	schema   *jsonschema.Schema
	validate *validator.Validate
}

// Accepted is a record that passed the gate, with its batch position.
type Accepted struct {
	Index int
	Raw   model.RawRecord
}

// NewGate compiles the raw-record schema and the field validator.
func NewGate() (*Gate, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(rawRecordSchema), rs); err != nil {
		return nil, fmt.Errorf("compile raw record schema: %w", err)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})

	return &Gate{schema: rs, validate: v}, nil
}

// Check returns the rejection reasons for raw; an empty slice means the
// record may proceed. now resolves relative dates.
func (g *Gate) Check(raw model.RawRecord, now time.Time) []string {
	var reasons []string

	shape, err := g.checkShape(raw)
	if err != nil {
		return []string{ReasonMalformedRecord}
	}
	reasons = append(reasons, shape...)

	reasons = append(reasons, g.checkRequired(raw)...)

	for _, field := range DateFields {
		if !raw.Present(field) {
			continue
		}
		if _, err := dateparse.Parse(raw[field], now); err != nil {
			reasons = append(reasons, ReasonUnparseableDate+":"+field)
		}
	}

	return reasons
}

// Split runs Check over a batch. Every input index lands in exactly one of
// the two results.
func (g *Gate) Split(raws []model.RawRecord, now time.Time) ([]Accepted, []model.Rejection) {
	accepted := make([]Accepted, 0, len(raws))
	var rejected []model.Rejection

	for i, raw := range raws {
		if reasons := g.Check(raw, now); len(reasons) > 0 {
			rejected = append(rejected, model.Rejection{
				Index:   i,
				JobID:   raw.String("job_id"),
				Reasons: reasons,
			})
			continue
		}
		accepted = append(accepted, Accepted{Index: i, Raw: raw})
	}

	return accepted, rejected
}

func (g *Gate) checkShape(raw model.RawRecord) ([]string, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal raw record: %w", err)
	}

	keyErrs, err := g.schema.ValidateBytes(context.Background(), b)
	if err != nil {
		return nil, fmt.Errorf("validate raw record: %w", err)
	}

	seen := make(map[string]bool, len(keyErrs))
	var reasons []string
	for _, ke := range keyErrs {
		field := strings.TrimLeft(ke.PropertyPath, "#/")
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		reasons = append(reasons, ReasonInvalidField+":"+field)
	}
	return reasons, nil
}

func (g *Gate) checkRequired(raw model.RawRecord) []string {
	fields := requiredFields{
		JobID:  raw.String("job_id"),
		Title:  raw.String("title"),
		JobURL: raw.String("job_url"),
	}

	err := g.validate.Struct(fields)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{ReasonMalformedRecord}
	}

	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			reasons = append(reasons, ReasonMissingField+":"+fe.Field())
		case "http_url":
			reasons = append(reasons, ReasonInvalidURL)
		default:
			reasons = append(reasons, ReasonInvalidField+":"+fe.Field())
		}
	}
	return reasons
}
