package usecase

import (
	"strings"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

// FilterBySearch keeps prospects whose company or contact name contains term,
// ignoring case. An empty term keeps everything.
func FilterBySearch(prospects []entity.Prospect, term string) []entity.Prospect {
	needle := strings.ToLower(term)
	out := make([]entity.Prospect, 0, len(prospects))
	for _, p := range prospects {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.CompanyName), needle) ||
			strings.Contains(strings.ToLower(p.ContactName), needle) {
			out = append(out, p)
		}
	}
	return out
}

// GroupByStage buckets prospects by current stage. Stages without members
// have no key.
func GroupByStage(prospects []entity.Prospect) map[int][]entity.Prospect {
	groups := make(map[int][]entity.Prospect)
	for _, p := range prospects {
		groups[p.CurrentStage] = append(groups[p.CurrentStage], p)
	}
	return groups
}

func TotalValue(prospects []entity.Prospect) float64 {
	total := 0.0
	for _, p := range prospects {
		total += p.Value()
	}
	return total
}

func ActiveCount(prospects []entity.Prospect) int {
	n := 0
	for _, p := range prospects {
		if !p.IsLost {
			n++
		}
	}
	return n
}

func LostCount(prospects []entity.Prospect) int {
	return len(prospects) - ActiveCount(prospects)
}

// AverageStage is zero for an empty collection.
func AverageStage(prospects []entity.Prospect) float64 {
	if len(prospects) == 0 {
		return 0
	}
	sum := 0
	for _, p := range prospects {
		sum += p.CurrentStage
	}
	return float64(sum) / float64(len(prospects))
}

type DashboardMetrics struct {
	ActiveCount  int     `json:"active_count"`
	LostCount    int     `json:"lost_count"`
	TotalCount   int     `json:"total_count"`
	TotalValue   float64 `json:"total_value"`
	AverageStage float64 `json:"average_stage"`
}

type StageColumn struct {
	Stage     int               `json:"stage"`
	Name      string            `json:"name"`
	Count     int               `json:"count"`
	Prospects []entity.Prospect `json:"prospects"`
}

type Dashboard struct {
	Search    string            `json:"search"`
	Metrics   DashboardMetrics  `json:"metrics"`
	Prospects []entity.Prospect `json:"prospects"`
	Columns   []StageColumn     `json:"columns"`
}

// BuildDashboard computes the metric tiles over the full collection and the
// list and kanban columns over the search-filtered one.
func BuildDashboard(prospects []entity.Prospect, term string) Dashboard {
	filtered := FilterBySearch(prospects, term)
	groups := GroupByStage(filtered)

	columns := make([]StageColumn, 0, entity.LastStage)
	for stage := entity.FirstStage; stage <= entity.LastStage; stage++ {
		members := groups[stage]
		if members == nil {
			members = []entity.Prospect{}
		}
		columns = append(columns, StageColumn{
			Stage:     stage,
			Name:      entity.StageNames[stage],
			Count:     len(members),
			Prospects: members,
		})
	}

	return Dashboard{
		Search: term,
		Metrics: DashboardMetrics{
			ActiveCount:  ActiveCount(prospects),
			LostCount:    LostCount(prospects),
			TotalCount:   len(prospects),
			TotalValue:   TotalValue(prospects),
			AverageStage: AverageStage(prospects),
		},
		Prospects: filtered,
		Columns:   columns,
	}
}
