package recommend

import "errors"

// Failure kinds of the recommendation pipeline. None of them ever reach the
// caller of Recommend: the orchestrator maps each to its fallback tier and
// the taxonomy exists so logs and tests can tell the tiers apart.
var (
	// ErrDataUnavailable: no ratings exist at all.
	ErrDataUnavailable = errors.New("recommend: no rating data available")

	// ErrDataQualityTooLow: below the minimum users/dishes/ratings floor.
	ErrDataQualityTooLow = errors.New("recommend: rating data below quality floor")

	// ErrUnknownUser: the target has no row even in the fallback dataset.
	ErrUnknownUser = errors.New("recommend: user has no usable ratings")

	// ErrNoCandidates: the model fitted but nothing cleared the score
	// threshold.
	ErrNoCandidates = errors.New("recommend: no qualifying candidates")
)
