package application

import "sort"

// dashboardRank orders statuses for the student dashboard: lower wins.
var dashboardRank = map[Status]int{
	StatusApproved: 0,
	StatusPending:  1,
	StatusDenied:   2,
}

// PickDashboardApplication chooses the application shown on a student's dashboard:
// Approved wins over Pending Review, which wins over Denied; ties within a status go to the
// most recent ApplicationDate (then the greatest ID, so the choice is deterministic).
// Applications with a non-canonical status are never picked and are returned as `invalid`.
func PickDashboardApplication(apps []Application) (picked Application, ok bool, invalid []Application) {
	candidates := make([]Application, 0, len(apps))
	for _, app := range apps {
		if _, known := dashboardRank[app.Status]; !known {
			invalid = append(invalid, app)
			continue
		}
		candidates = append(candidates, app)
	}
	if len(candidates) == 0 {
		return Application{}, false, invalid
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := dashboardRank[a.Status], dashboardRank[b.Status]; ra != rb {
			return ra < rb
		}
		if !a.ApplicationDate.Equal(b.ApplicationDate) {
			return a.ApplicationDate.After(b.ApplicationDate)
		}
		return a.ID > b.ID
	})
	return candidates[0], true, invalid
}
