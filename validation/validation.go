package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator"
	"github.com/meghashyamc/lodapi/logger"
	"github.com/meghashyamc/lodapi/services/explore"
)

type Validator struct {
	validator                *validator.Validate
	logger                   logger.Logger
	tagValidationDetailsOnce sync.Once
	tagValidationDetailsMap  map[string]tagValidationDetails
}

type tagValidationDetails struct {
	validatorFunc validator.Func
	err           error
}

func New(logger logger.Logger) (*Validator, error) {
	validator := &Validator{validator: validator.New(), logger: logger}
	validator.validator.RegisterTagNameFunc(useFieldNames)
	if err := validator.registerCustomValidatorsForTags(); err != nil {
		return nil, err
	}

	return validator, nil
}

func (v *Validator) Validate(i any) error {

	if err := v.validator.Struct(i); err != nil {
		v.logger.Warn("validation failed", "err", err.Error())
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {

			tagValidationDetails, ok := v.getTagValidationDetails()[validationErrs[0].Tag()]
			if ok {
				return tagValidationDetails.err
			}

			switch validationErrs[0].Tag() {
			case "required":
				return fmt.Errorf("missing required field '%s'", validationErrs[0].Field())

			case "min", "max":
				return fmt.Errorf("value or length of field '%s' is not in the expected range", validationErrs[0].Field())

			}
		}
		return err
	}
	return nil
}

func (v *Validator) getTagValidationDetails() map[string]tagValidationDetails {
	v.tagValidationDetailsOnce.Do(func() {
		v.tagValidationDetailsMap = map[string]tagValidationDetails{
			"valid_query":    {validatorFunc: v.isValidQuery, err: errors.New("invalid query")},
			"valid_topic_id": {validatorFunc: v.isValidTopicID, err: errors.New("invalid topic id")},
			"valid_match":    {validatorFunc: v.isValidMatch, err: fmt.Errorf("match must be one of '%s' or '%s'", explore.MatchPhrase, explore.MatchTopic)},
		}
	})
	return v.tagValidationDetailsMap
}

func (v *Validator) registerCustomValidatorsForTags() error {

	tagValidationDetailsMap := v.getTagValidationDetails()

	for tag, tagValidationDetails := range tagValidationDetailsMap {
		if err := v.validator.RegisterValidation(tag, tagValidationDetails.validatorFunc); err != nil {
			v.logger.Error("failed to register customer validator function", "err", err.Error())
			return err
		}
	}
	return nil
}

// useFieldNames reports fields by their query parameter, path or JSON name.
func useFieldNames(fld reflect.StructField) string {
	for _, tag := range []string{"form", "uri", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if len(name) > 0 {
			return name
		}
	}
	return fld.Name
}

func (v *Validator) isValidQuery(fl validator.FieldLevel) bool {
	query := fl.Field().String()
	if len(query) == 0 {
		return false
	}
	if strings.TrimSpace(query) == "" {
		v.logger.Warn("query is empty", "query", query)
		return false
	}

	return true
}

func (v *Validator) isValidTopicID(fl validator.FieldLevel) bool {
	topicID := fl.Field().String()
	if strings.TrimSpace(topicID) == "" {
		v.logger.Warn("topic id is empty", "topic_id", topicID)
		return false
	}

	if strings.Contains(topicID, "\x00") {
		v.logger.Warn("topic id has null byte", "topic_id", topicID)
		return false
	}

	if strings.IndexFunc(topicID, unicode.IsSpace) >= 0 {
		v.logger.Warn("topic id contains whitespace", "topic_id", topicID)
		return false
	}

	return true
}

// isValidMatch allows an empty value; callers default it to explore.MatchPhrase.
func (v *Validator) isValidMatch(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", explore.MatchPhrase, explore.MatchTopic:
		return true
	default:
		return false
	}
}
