package scoring

import (
	"errors"
	"fmt"
)

// Default term weights. They are renormalized at scoring time when the
// semantic term is unavailable.
const (
	DefaultLexicalWeight  = 0.5
	DefaultLocationWeight = 0.2
	DefaultSemanticWeight = 0.3

	titleShare       = 0.6
	descriptionShare = 0.4
)

// Weights configures how the scoring terms are combined.
type Weights struct {
	Lexical  float64 `mapstructure:"lexical"`
	Location float64 `mapstructure:"location"`
	Semantic float64 `mapstructure:"semantic"`
}

// DefaultWeights returns the documented default term weights.
func DefaultWeights() *Weights {
	return &Weights{
		Lexical:  DefaultLexicalWeight,
		Location: DefaultLocationWeight,
		Semantic: DefaultSemanticWeight,
	}
}

// CriteriaSet is the user-supplied filter and scoring configuration.
type CriteriaSet struct {
	Keywords  []string `mapstructure:"keywords"`
	Locations []string `mapstructure:"locations"`
	// MinScore is the threshold below which a posting is marked REJECTED.
	MinScore float64 `mapstructure:"min-score"`
	// Profile is free-text context about the applicant, used by the
	// semantic term and as letter context.
	Profile string   `mapstructure:"profile"`
	Weights *Weights `mapstructure:"weights"`
}

// Validate checks the criteria before a run starts. An invalid criteria
// set is the only error that aborts a run up front.
func (c *CriteriaSet) Validate() error {
	if c == nil {
		return errors.New("criteria are required")
	}

	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min-score must be in [0,1], got %v", c.MinScore)
	}

	if len(c.Keywords) == 0 && len(c.Locations) == 0 {
		return errors.New("criteria must define at least one keyword or location")
	}

	w := c.Weights
	if w == nil {
		return nil
	}
	if w.Lexical < 0 || w.Location < 0 || w.Semantic < 0 {
		return errors.New("weights must not be negative")
	}
	if w.Lexical+w.Location+w.Semantic == 0 {
		return errors.New("at least one weight must be positive")
	}

	return nil
}

// weights returns the effective weights, falling back to the defaults.
func (c *CriteriaSet) weights() *Weights {
	if c.Weights == nil {
		return DefaultWeights()
	}
	return c.Weights
}
