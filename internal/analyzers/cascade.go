package analyzers

import "github.com/registrylens/registry-risk/internal/models"

// Rule is one ordered rating condition. Rules are evaluated top to bottom
// and the first match decides the dimension's rating, so more severe
// conditions must come first.
type Rule struct {
	When    bool
	Rating  models.Rating
	Logic   string
	Summary string
}

// Evaluate applies the first matching rule to the result, falling back to a
// clean rating with the given logic and summary.
func Evaluate(result *models.DimensionResult, rules []Rule, cleanLogic, cleanSummary string) {
	for _, rule := range rules {
		if rule.When {
			result.Rating = rule.Rating
			result.RatingLogic = rule.Logic
			result.Summary = rule.Summary
			return
		}
	}
	result.Rating = models.RatingClean
	result.RatingLogic = cleanLogic
	result.Summary = cleanSummary
}
