package retention

import (
	"math"
	"time"

	"ai-tutorchat-be/internal/entity"

	"github.com/sky-flux/flux"
)

// Review is the outcome of scheduling one topic review. Stability and
// Difficulty carry the FSRS memory model when the primary algorithm ran;
// on the fallback path Stability mirrors the updated ease and Difficulty is 0.
type Review struct {
	NextReviewAt time.Time
	Params       entity.RetentionParams
	IntervalDays int
	Stability    float64
	Difficulty   float64
}

// Urgency classifies how soon a topic's next review is due. Read-side only.
type Urgency string

const (
	UrgencyOverdue      Urgency = "OVERDUE"
	UrgencyDueToday     Urgency = "DUE_TODAY"
	UrgencyDueSoon      Urgency = "DUE_SOON"
	UrgencyScheduled    Urgency = "SCHEDULED"
	UrgencyNotScheduled Urgency = "NOT_SCHEDULED"
)

const (
	maxFallbackInterval = 30
	minEase             = 1.3
	maxEase             = 5.0
)

// Scheduler computes review schedules. It is a pure value computation with no
// I/O; persistence of the result belongs to the caller.
//
// The primary path delegates to the flux FSRS implementation. Any failure
// there (construction error, panic, degenerate output) falls through to a
// deterministic fallback formula, so NextReview always returns a usable plan.
type Scheduler struct {
	flux *flux.Scheduler
}

// NewScheduler builds a scheduler with default FSRS parameters. Fuzzing is
// disabled so identical inputs always produce identical schedules.
func NewScheduler() *Scheduler {
	s, err := flux.NewScheduler(flux.SchedulerConfig{DisableFuzzing: true})
	if err != nil {
		// Fallback-only mode. NextReview still works.
		return &Scheduler{}
	}
	return &Scheduler{flux: s}
}

// NextReview maps the 0-5 rating onto the four-level FSRS scale
// (<=1 Again, 2 Hard, 3-4 Good, 5 Easy) and computes the next schedule.
func (s *Scheduler) NextReview(params entity.RetentionParams, rating int, lastReview *time.Time, now time.Time) Review {
	p := params.Normalized()
	if rev, ok := s.primaryReview(p, rating, lastReview, now); ok {
		return rev
	}
	return fallbackReview(p, rating, now)
}

func (s *Scheduler) primaryReview(p entity.RetentionParams, rating int, lastReview *time.Time, now time.Time) (rev Review, ok bool) {
	if s.flux == nil {
		return Review{}, false
	}
	defer func() {
		if recover() != nil {
			rev, ok = Review{}, false
		}
	}()

	// Ease doubles as the stability proxy; difficulty starts mid-range.
	stability := p.Ease
	difficulty := 5.0
	card := flux.Card{
		CardID:     1,
		State:      flux.Review,
		Stability:  &stability,
		Difficulty: &difficulty,
		Due:        now,
		LastReview: lastReview,
	}

	updated, _ := s.flux.ReviewCard(card, mapRating(rating), now)
	if updated.Stability == nil || updated.Difficulty == nil {
		return Review{}, false
	}
	days := int(math.Round(updated.Due.Sub(now).Hours() / 24.0))
	newStability := *updated.Stability
	if days < 1 || math.IsNaN(newStability) || newStability <= 0 {
		// Sub-day relearning steps (Again path) and degenerate stabilities
		// are handled by the fallback formula instead.
		return Review{}, false
	}

	return Review{
		NextReviewAt: updated.Due,
		Params: entity.RetentionParams{
			Ease:       newStability,
			Interval:   days,
			Repetition: p.Repetition + 1,
		},
		IntervalDays: days,
		Stability:    newStability,
		Difficulty:   *updated.Difficulty,
	}, true
}

func fallbackReview(p entity.RetentionParams, rating int, now time.Time) Review {
	interval := p.Interval
	ease := p.Ease

	switch {
	case rating >= 4:
		interval = interval * 2
		if interval > maxFallbackInterval {
			interval = maxFallbackInterval
		}
		ease = ease * 1.1
		if ease > maxEase {
			ease = maxEase
		}
	case rating == 3:
		interval = interval + 1
		if interval < 1 {
			interval = 1
		}
	default:
		interval = 1
		ease = ease * 0.9
		if ease < minEase {
			ease = minEase
		}
	}

	return Review{
		NextReviewAt: now.AddDate(0, 0, interval),
		Params: entity.RetentionParams{
			Ease:       ease,
			Interval:   interval,
			Repetition: p.Repetition + 1,
		},
		IntervalDays: interval,
		Stability:    ease,
		Difficulty:   0,
	}
}

func mapRating(rating int) flux.Rating {
	switch {
	case rating <= 1:
		return flux.Again
	case rating == 2:
		return flux.Hard
	case rating <= 4:
		return flux.Good
	default:
		return flux.Easy
	}
}

// RetentionProbability estimates the chance the learner still remembers the
// topic after the given number of days: 0.9^(days/ease). It is 1.0 at zero
// days and non-increasing in days.
func RetentionProbability(params entity.RetentionParams, daysSinceReview float64) float64 {
	p := params.Normalized()
	if daysSinceReview <= 0 {
		return 1.0
	}
	return math.Pow(0.9, daysSinceReview/p.Ease)
}

// ShouldReviewNow reports whether estimated retention has dropped below 0.9.
// A topic that was never reviewed is always due.
func ShouldReviewNow(params entity.RetentionParams, lastReview *time.Time, now time.Time) bool {
	if lastReview == nil {
		return true
	}
	days := now.Sub(*lastReview).Hours() / 24.0
	return RetentionProbability(params, days) < 0.9
}

// ReviewUrgency buckets the time until the next scheduled review.
func ReviewUrgency(nextReviewAt *time.Time, now time.Time) Urgency {
	if nextReviewAt == nil {
		return UrgencyNotScheduled
	}
	days := nextReviewAt.Sub(now).Hours() / 24.0
	switch {
	case days <= 0:
		return UrgencyOverdue
	case days <= 1:
		return UrgencyDueToday
	case days <= 3:
		return UrgencyDueSoon
	default:
		return UrgencyScheduled
	}
}
