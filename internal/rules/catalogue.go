// Package rules holds the versioned compliance rule catalogue and the
// evaluation engine that scores merged records against it.
package rules

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/labelwatch/compliance-cli/internal/errkind"
	"github.com/labelwatch/compliance-cli/internal/model"
)

// Requirement marks a catalogue field as score-bearing or advisory.
type Requirement string

const (
	Required Requirement = "required"
	Optional Requirement = "optional"
)

// Rule binds one field to its requirement level and validator.
type Rule struct {
	Field       model.FieldName `yaml:"field"`
	Requirement Requirement     `yaml:"requirement"`
	ValidatorID string          `yaml:"validator"`

	validator ValidatorFunc
}

// Catalogue is an immutable, versioned rule set. The version travels on every
// ComplianceResult so historical scores stay comparable after rule changes.
type Catalogue struct {
	Version string
	Rules   []Rule

	byField  map[model.FieldName]*Rule
	required []model.FieldName
	optional []model.FieldName
}

// catalogueFile is the YAML shape of a human-editable catalogue.
type catalogueFile struct {
	Version string `yaml:"version"`
	Fields  []Rule `yaml:"fields"`
}

// DefaultVersion identifies the built-in Legal Metrology (Packaged
// Commodities) rule set.
const DefaultVersion = "LM-2011.1"

// Default returns the built-in catalogue: the four mandatory declarations
// under the Packaged Commodities rules plus the usual optional ones.
func Default() *Catalogue {
	c, err := build(DefaultVersion, []Rule{
		{Field: model.FieldMRP, Requirement: Required, ValidatorID: "currency"},
		{Field: model.FieldNetQuantity, Requirement: Required, ValidatorID: "quantity"},
		{Field: model.FieldManufacturerName, Requirement: Required, ValidatorID: "nonempty"},
		{Field: model.FieldCountryOfOrigin, Requirement: Required, ValidatorID: "nonempty"},
		{Field: model.FieldConsumerCare, Requirement: Optional, ValidatorID: "contact"},
		{Field: model.FieldManufactureDate, Requirement: Optional, ValidatorID: "date"},
		{Field: model.FieldBestBefore, Requirement: Optional, ValidatorID: "date_or_duration"},
		{Field: model.FieldBatchNumber, Requirement: Optional, ValidatorID: "nonempty"},
		{Field: model.FieldFSSAILicense, Requirement: Optional, ValidatorID: "license"},
		{Field: model.FieldBarcode, Requirement: Optional, ValidatorID: "barcode"},
	})
	if err != nil {
		// The built-in catalogue is covered by tests; a build failure here
		// is a programming error.
		panic(err)
	}
	return c
}

// Load reads a catalogue from a YAML file. A missing file, empty field list,
// or absent version is a fatal ConfigError — there is no silent fallback to
// an empty rule set.
func Load(path string) (*Catalogue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.NewConfig(eris.Wrapf(err, "read catalogue %s", path))
	}
	var f catalogueFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errkind.NewConfig(eris.Wrapf(err, "parse catalogue %s", path))
	}
	return build(f.Version, f.Fields)
}

func build(version string, rules []Rule) (*Catalogue, error) {
	if version == "" {
		return nil, errkind.NewConfig(eris.New("catalogue has no version"))
	}
	if len(rules) == 0 {
		return nil, errkind.NewConfig(eris.New("catalogue has no fields"))
	}

	c := &Catalogue{
		Version: version,
		Rules:   rules,
		byField: make(map[model.FieldName]*Rule, len(rules)),
	}
	for i := range c.Rules {
		r := &c.Rules[i]
		if !model.KnownField(r.Field) {
			return nil, errkind.NewConfig(eris.Errorf("unknown field %q", r.Field))
		}
		if _, dup := c.byField[r.Field]; dup {
			return nil, errkind.NewConfig(eris.Errorf("duplicate field %q", r.Field))
		}
		switch r.Requirement {
		case Required:
			c.required = append(c.required, r.Field)
		case Optional:
			c.optional = append(c.optional, r.Field)
		default:
			return nil, errkind.NewConfig(eris.Errorf("field %q: requirement must be required or optional, got %q", r.Field, r.Requirement))
		}
		v, ok := validators[r.ValidatorID]
		if !ok {
			return nil, errkind.NewConfig(eris.Errorf("field %q: unknown validator %q", r.Field, r.ValidatorID))
		}
		r.validator = v
		c.byField[r.Field] = r
	}
	if len(c.required) == 0 {
		return nil, errkind.NewConfig(eris.New("catalogue has no required fields"))
	}
	return c, nil
}

// RequiredFields returns the required field names in catalogue order.
func (c *Catalogue) RequiredFields() []model.FieldName {
	return c.required
}

// OptionalFields returns the optional field names in catalogue order.
func (c *Catalogue) OptionalFields() []model.FieldName {
	return c.optional
}

// Covers reports whether the catalogue has a rule for field.
func (c *Catalogue) Covers(field model.FieldName) bool {
	_, ok := c.byField[field]
	return ok
}
