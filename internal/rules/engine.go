package rules

import (
	"go.uber.org/zap"

	"github.com/labelwatch/compliance-cli/internal/errkind"
	"github.com/labelwatch/compliance-cli/internal/model"
	"github.com/rotisserie/eris"
)

// Evaluate scores a merged record against the catalogue. It is a pure
// function of its inputs: the same record and catalogue version always
// produce an identical result. The record is never mutated.
func Evaluate(record *model.MergedRecord, cat *Catalogue) (*model.ComplianceResult, error) {
	if cat == nil {
		return nil, errkind.NewConfig(eris.New("no catalogue"))
	}
	if record == nil {
		return nil, errkind.NewInput(eris.New("no merged record"))
	}

	result := &model.ComplianceResult{
		ProductID:        record.ProductID,
		CatalogueVersion: cat.Version,
		RequiredTotal:    len(cat.required),
		MissingRequired:  []model.FieldName{},
		MissingOptional:  []model.FieldName{},
		PerFieldStatus:   make(map[model.FieldName]model.FieldStatus, len(cat.Rules)),
	}

	for i := range cat.Rules {
		rule := &cat.Rules[i]
		status := fieldStatus(record, rule)
		result.PerFieldStatus[rule.Field] = status

		switch rule.Requirement {
		case Required:
			if status == model.StatusPresent {
				result.RequiredPresent++
			} else {
				result.MissingRequired = append(result.MissingRequired, rule.Field)
			}
		case Optional:
			if status != model.StatusPresent {
				result.MissingOptional = append(result.MissingOptional, rule.Field)
			}
		}
	}

	zap.L().Debug("rules: evaluated record",
		zap.String("product", record.ProductID),
		zap.String("catalogue", cat.Version),
		zap.String("score", result.ScoreString()),
	)
	return result, nil
}

// fieldStatus classifies one catalogue field. Invalid counts as non-present
// for scoring but is reported distinctly.
func fieldStatus(record *model.MergedRecord, rule *Rule) model.FieldStatus {
	f, ok := record.Field(rule.Field)
	if !ok {
		return model.StatusMissing
	}
	if err := rule.validator(f.Value); err != nil {
		zap.L().Debug("rules: field failed validation",
			zap.String("field", string(rule.Field)),
			zap.String("value", f.Value),
			zap.Error(err),
		)
		return model.StatusInvalid
	}
	return model.StatusPresent
}
