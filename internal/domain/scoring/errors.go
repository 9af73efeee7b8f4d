package scoring

import "errors"

// ErrScoringInconsistency marks a factor table lookup with no entry and no
// defined default. Fatal for the record: it stays unscored, never guessed.
var ErrScoringInconsistency = errors.New("scoring inconsistency")
