package cline

import (
	"encoding/json"
	"fmt"
	"math"
)

// Result is one screened feature: its correlation against the gradient
// reference axis plus the supporting evidence counts.
//
// Correlation, PValue and AdjustedP may be NaN (too few observed groups,
// zero variance, or no adjustment requested). NaN encodes as JSON null.
type Result[K comparable] struct {
	// Feature is the screened feature label.
	Feature K

	// Environment names the sample subset the feature was screened in.
	// Empty for a global (single-subset) screen.
	Environment string

	// Correlation is the Pearson coefficient of the per-group means
	// against the reference axis.
	Correlation float64

	// PValue is the two-tailed Fisher-z p-value of Correlation.
	PValue float64

	// AdjustedP is the Benjamini-Hochberg adjusted p-value, computed
	// across all surviving features of the run. NaN when the screen ran
	// without adjustment.
	AdjustedP float64

	// GroupsObserved is the number of groups with at least one non-zero
	// observation of the feature.
	GroupsObserved int

	// Prevalence is the total number of samples with a non-zero
	// observation of the feature within the screened subset.
	Prevalence int
}

type resultJSON[K comparable] struct {
	Feature        K        `json:"feature"`
	Environment    string   `json:"environment,omitempty"`
	Correlation    *float64 `json:"correlation"`
	PValue         *float64 `json:"p_value"`
	AdjustedP      *float64 `json:"adjusted_p"`
	GroupsObserved int      `json:"groups_observed"`
	Prevalence     int      `json:"prevalence"`
}

// MarshalJSON implements json.Marshaler. NaN fields become null, which
// standard JSON encoding cannot represent as a number.
func (r Result[K]) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON[K]{
		Feature:        r.Feature,
		Environment:    r.Environment,
		Correlation:    floatPtr(r.Correlation),
		PValue:         floatPtr(r.PValue),
		AdjustedP:      floatPtr(r.AdjustedP),
		GroupsObserved: r.GroupsObserved,
		Prevalence:     r.Prevalence,
	})
}

// UnmarshalJSON implements json.Unmarshaler, mapping null back to NaN.
func (r *Result[K]) UnmarshalJSON(data []byte) error {
	var aux resultJSON[K]
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Feature = aux.Feature
	r.Environment = aux.Environment
	r.Correlation = ptrFloat(aux.Correlation)
	r.PValue = ptrFloat(aux.PValue)
	r.AdjustedP = ptrFloat(aux.AdjustedP)
	r.GroupsObserved = aux.GroupsObserved
	r.Prevalence = aux.Prevalence
	return nil
}

func floatPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func ptrFloat(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// ExclusionReason states why a feature was routed to the excluded table
// instead of the main result table.
type ExclusionReason uint8

const (
	// ExcludeAllZero marks a feature with no non-zero observation in the
	// screened subset.
	ExcludeAllZero ExclusionReason = iota + 1

	// ExcludeLowPrevalence marks a feature observed in fewer samples than
	// the configured minimum.
	ExcludeLowPrevalence

	// ExcludeFewGroups marks a feature observed in fewer groups than the
	// configured minimum.
	ExcludeFewGroups
)

func (r ExclusionReason) String() string {
	switch r {
	case ExcludeAllZero:
		return "all_zero"
	case ExcludeLowPrevalence:
		return "low_prevalence"
	case ExcludeFewGroups:
		return "few_groups"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(r))
	}
}

// MarshalText implements encoding.TextMarshaler so reasons persist as
// their stable names.
func (r ExclusionReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ExclusionReason) UnmarshalText(text []byte) error {
	switch string(text) {
	case "all_zero":
		*r = ExcludeAllZero
	case "low_prevalence":
		*r = ExcludeLowPrevalence
	case "few_groups":
		*r = ExcludeFewGroups
	default:
		return fmt.Errorf("cline: unknown exclusion reason %q", text)
	}
	return nil
}

// Exclusion is one feature filtered out of the main result table, with
// the evidence that triggered the filter.
type Exclusion[K comparable] struct {
	Feature        K               `json:"feature"`
	Environment    string          `json:"environment,omitempty"`
	Reason         ExclusionReason `json:"reason"`
	GroupsObserved int             `json:"groups_observed"`
	Prevalence     int             `json:"prevalence"`
}

// Report is the joined output of a screen: the surviving features and
// the excluded ones, each in input feature order (per environment).
type Report[K comparable] struct {
	Results  []Result[K]    `json:"results"`
	Excluded []Exclusion[K] `json:"excluded"`
}
