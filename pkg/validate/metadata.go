package validate

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

var memoryTypes = map[string]bool{
	"self": true, "belief": true, "pattern": true, "episodic": true, "semantic": true,
}

var importances = map[string]bool{"low": true, "medium": true, "high": true}
var sources = map[string]bool{"user": true, "file": true, "system": true}
var kinds = map[string]bool{"raw": true, "summary": true, "derived": true}
var stabilities = map[string]bool{"tentative": true, "stable": true, "canonical": true}

var relationshipTypes = map[string]bool{
	"summarizes": true, "example_of": true, "is_generalization_of": true,
	"supports": true, "contradicts": true, "causes": true, "similar_to": true,
	"historical_version_of": true, "derived_from": true,
}

// DynamicsInput is the subset of dynamics checked by numeric-range struct
// tags ahead of the bespoke enum/shape checks below.
type DynamicsInput struct {
	InitialPriority *float64 `validate:"omitempty,gte=0,lte=1"`
	CurrentPriority *float64 `validate:"omitempty,gte=0,lte=1"`
	AccessCount     *int64   `validate:"omitempty,gte=0"`
	MaxAccessCount  *int64   `validate:"omitempty,gte=0"`
	SleepCycles     *int64   `validate:"omitempty,gte=0"`
	CreatedAt       string
	LastAccessedAt  string
	Stability       string
}

// EmotionInput mirrors spec §3's emotion object.
type EmotionInput struct {
	Label     *string
	Intensity *float64
}

// RelationshipInput mirrors one element of the metadata.relationships list.
type RelationshipInput struct {
	TargetID string
	Type     string
	Weight   *float64
}

// Metadata is the parsed, strongly-typed view of the fields spec §4.3
// validates. Callers build this from the raw LLM/caller JSON; any field
// left at its zero value is treated as absent (the caller distinguishes
// "absent" from "present but empty" for tags/relationships itself, per
// invariant 5, before calling Validate).
type Metadata struct {
	MemoryType    string
	Importance    string
	Source        string
	Kind          string
	Dynamics      DynamicsInput
	Relationships []RelationshipInput
	Emotion       *EmotionInput
	Tags          []string
	RelatedIDs    []string
	DerivedFromIDs []string
}

// Validate validates a candidate metadata object, returning an *Error
// listing every violation found (nil if the candidate is acceptable).
// Empty-string / nil-pointer fields mean "not provided" and are skipped.
func Validate(m Metadata) error {
	var errs []FieldError

	if m.MemoryType != "" && !memoryTypes[m.MemoryType] {
		errs = append(errs, FieldError{"memoryType", "must be one of self, belief, pattern, episodic, semantic"})
	}
	if m.Importance != "" && !importances[m.Importance] {
		errs = append(errs, FieldError{"importance", "must be one of low, medium, high"})
	}
	if m.Source != "" && !sources[m.Source] {
		errs = append(errs, FieldError{"source", "must be one of user, file, system"})
	}
	if m.Kind != "" && !kinds[m.Kind] {
		errs = append(errs, FieldError{"kind", "must be one of raw, summary, derived"})
	}
	if m.Dynamics.Stability != "" && !stabilities[m.Dynamics.Stability] {
		errs = append(errs, FieldError{"dynamics.stability", "must be one of tentative, stable, canonical"})
	}

	if err := structValidator.Struct(m.Dynamics); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				errs = append(errs, FieldError{"dynamics." + fe.Field(), "out of range or non-numeric: " + fe.Tag()})
			}
		}
	}

	for _, ts := range []struct{ name, value string }{
		{"dynamics.createdAt", m.Dynamics.CreatedAt},
		{"dynamics.lastAccessedAt", m.Dynamics.LastAccessedAt},
	} {
		if ts.value == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, ts.value); err != nil {
			errs = append(errs, FieldError{ts.name, "not a parseable ISO-8601 timestamp"})
		}
	}

	for i, rel := range m.Relationships {
		if rel.TargetID == "" {
			errs = append(errs, FieldError{fieldIndex("relationships", i, "targetId"), "required"})
		}
		if !relationshipTypes[rel.Type] {
			errs = append(errs, FieldError{fieldIndex("relationships", i, "type"), "unknown relationship type"})
		}
		if rel.Weight != nil && (*rel.Weight < 0 || *rel.Weight > 1) {
			errs = append(errs, FieldError{fieldIndex("relationships", i, "weight"), "must be within [0,1]"})
		}
	}

	if m.Emotion != nil {
		if m.Emotion.Intensity != nil && (*m.Emotion.Intensity < 0 || *m.Emotion.Intensity > 1) {
			errs = append(errs, FieldError{"emotion.intensity", "must be within [0,1]"})
		}
	}

	return newErrors(errs)
}

func fieldIndex(base string, i int, field string) string {
	return base + "[" + strconv.Itoa(i) + "]." + field
}
