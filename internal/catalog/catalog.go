package catalog

import (
	"context"
	"encoding/json"
	"strconv"

	"judgeworker/internal/judgment"
	appErr "judgeworker/pkg/errors"
)

// Document names the catalog expects from its source.
const (
	docTestCases = "test_cases.json"
	docLimits    = "limits.json"
	docBonuses   = "bonuses.json"
)

type limitsDoc struct {
	TimeLimits   map[string]float64 `json:"timeLimits"`
	MemoryLimits map[string]int     `json:"memoryLimits"`
}

type bonusesDoc struct {
	TimeBonus   map[string]float64 `json:"timeBonus"`
	MemoryBonus map[string]int     `json:"memoryBonus"`
}

// Catalog holds the static per-challenge test suites and limits, loaded once
// at worker startup. All lookups are read-only afterwards.
type Catalog struct {
	testCases    map[string][]TestCase
	timeLimits   map[string]float64
	memoryLimits map[string]int
	timeBonus    map[string]float64
	memoryBonus  map[string]int
}

// Load reads all catalog documents from the source.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	c := &Catalog{}

	raw, err := src.ReadDocument(ctx, docTestCases)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &c.testCases); err != nil {
		return nil, appErr.Wrapf(err, appErr.ConfigInvalid, "malformed test cases document")
	}

	raw, err = src.ReadDocument(ctx, docLimits)
	if err != nil {
		return nil, err
	}
	var limits limitsDoc
	if err := json.Unmarshal(raw, &limits); err != nil {
		return nil, appErr.Wrapf(err, appErr.ConfigInvalid, "malformed limits document")
	}
	c.timeLimits = limits.TimeLimits
	c.memoryLimits = limits.MemoryLimits

	raw, err = src.ReadDocument(ctx, docBonuses)
	if err != nil {
		return nil, err
	}
	var bonuses bonusesDoc
	if err := json.Unmarshal(raw, &bonuses); err != nil {
		return nil, appErr.Wrapf(err, appErr.ConfigInvalid, "malformed bonuses document")
	}
	c.timeBonus = bonuses.TimeBonus
	c.memoryBonus = bonuses.MemoryBonus

	return c, nil
}

// GetTestCases returns the ordered test suite for a challenge.
func (c *Catalog) GetTestCases(challengeID int64) ([]TestCase, error) {
	cases, ok := c.testCases[challengeKey(challengeID)]
	if !ok {
		return nil, appErr.Newf(appErr.ConfigMissing, "no test cases for challenge %d", challengeID)
	}
	return cases, nil
}

// GetTimeLimit returns the per-case time limit in seconds, base plus the
// language bonus.
func (c *Catalog) GetTimeLimit(challengeID int64, lang judgment.CodeLanguage) (float64, error) {
	base, ok := c.timeLimits[challengeKey(challengeID)]
	if !ok {
		return 0, appErr.Newf(appErr.ConfigMissing, "no time limit for challenge %d", challengeID)
	}
	bonus, ok := c.timeBonus[string(lang)]
	if !ok {
		return 0, appErr.Newf(appErr.ConfigMissing, "no time bonus for language %s", lang)
	}
	return base + bonus, nil
}

// GetMemoryLimit returns the memory limit in MB, base plus the language
// bonus.
func (c *Catalog) GetMemoryLimit(challengeID int64, lang judgment.CodeLanguage) (int, error) {
	base, ok := c.memoryLimits[challengeKey(challengeID)]
	if !ok {
		return 0, appErr.Newf(appErr.ConfigMissing, "no memory limit for challenge %d", challengeID)
	}
	bonus, ok := c.memoryBonus[string(lang)]
	if !ok {
		return 0, appErr.Newf(appErr.ConfigMissing, "no memory bonus for language %s", lang)
	}
	return base + bonus, nil
}

func challengeKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
