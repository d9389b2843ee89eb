package control

import "github.com/san-kum/dicesim/internal/models"

// ManualController replays an explicit control schedule. Periods past the end
// of the schedule repeat its last entry.
type ManualController struct {
	Schedule []models.Control
}

func NewManual(schedule []models.Control) *ManualController {
	s := make([]models.Control, len(schedule))
	copy(s, schedule)
	return &ManualController{Schedule: s}
}

func (c *ManualController) Compute(state models.State, period int) models.Control {
	if len(c.Schedule) == 0 {
		return models.Control{}
	}
	if period >= len(c.Schedule) {
		return c.Schedule[len(c.Schedule)-1]
	}
	return c.Schedule[period]
}
