package types

import "fmt"

// Classification is the coverage label assigned to a requirement
type Classification string

const (
	ClassificationOOTBMatch    Classification = "OOTB Match"
	ClassificationPartialMatch Classification = "Partial Match"
	ClassificationCustomDev    Classification = "Custom Dev Required"
	ClassificationOpenQuestion Classification = "Open Question"
)

// AllClassifications returns the labels from strongest to weakest coverage
func AllClassifications() []Classification {
	return []Classification{
		ClassificationOOTBMatch,
		ClassificationPartialMatch,
		ClassificationCustomDev,
		ClassificationOpenQuestion,
	}
}

// IsValid checks if the classification is one of the known labels
func (c Classification) IsValid() bool {
	switch c {
	case ClassificationOOTBMatch,
		ClassificationPartialMatch,
		ClassificationCustomDev,
		ClassificationOpenQuestion:
		return true
	default:
		return false
	}
}

// String returns the string representation of the classification
func (c Classification) String() string {
	return string(c)
}

// ParseClassification parses a label exactly as written in the taxonomy
func ParseClassification(s string) (Classification, error) {
	c := Classification(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid classification: %s", s)
	}
	return c, nil
}
