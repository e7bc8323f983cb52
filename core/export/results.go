package export

import (
	"sort"

	"github.com/montanaflynn/stats"

	"hypertuner/core/models"
	"hypertuner/core/space"
)

// Row is one line of the flat result table: one trial with its full
// assignment, ready for downstream comparison and reporting
type Row struct {
	TrialID    int                `json:"trial_id"`
	Parameters space.Assignment   `json:"parameters"`
	Objective  *float64           `json:"objective,omitempty"`
	Status     models.TrialStatus `json:"status"`
}

// Summary aggregates the objectives of completed trials
type Summary struct {
	Trials    int      `json:"trials"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Mean      *float64 `json:"mean,omitempty"`
	StdDev    *float64 `json:"std_dev,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

// Table builds the result table sorted by objective, best first per the
// job's direction. Trials without an objective sort after completed
// ones, in admission order.
func Table(trials []models.Trial, direction models.ObjectiveDirection) []Row {
	rows := make([]Row, 0, len(trials))
	for _, t := range trials {
		rows = append(rows, Row{
			TrialID:    t.ID,
			Parameters: t.Assignment,
			Objective:  t.Objective,
			Status:     t.Status,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Objective, rows[j].Objective
		switch {
		case a != nil && b != nil:
			return direction.Better(*a, *b)
		case a != nil:
			return true
		case b != nil:
			return false
		default:
			return rows[i].TrialID < rows[j].TrialID
		}
	})

	return rows
}

// Summarize computes summary statistics over completed objectives
func Summarize(trials []models.Trial) Summary {
	s := Summary{Trials: len(trials)}

	var objectives []float64
	for _, t := range trials {
		switch t.Status {
		case models.TrialStatusCompleted:
			s.Completed++
			if t.Objective != nil {
				objectives = append(objectives, *t.Objective)
			}
		case models.TrialStatusFailed:
			s.Failed++
		}
	}

	if len(objectives) == 0 {
		return s
	}

	if mean, err := stats.Mean(objectives); err == nil {
		s.Mean = &mean
	}
	if sd, err := stats.StandardDeviation(objectives); err == nil {
		s.StdDev = &sd
	}
	if min, err := stats.Min(objectives); err == nil {
		s.Min = &min
	}
	if max, err := stats.Max(objectives); err == nil {
		s.Max = &max
	}

	return s
}
