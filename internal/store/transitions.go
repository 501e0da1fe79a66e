package store

import "github.com/InnersoftTecnologia/chama-ja/internal/models"

var transitionMap = map[string][]string{
	"call_next": {models.StatusWaiting},
	"recall":    {models.StatusCalled, models.StatusInService},
	"start":     {models.StatusCalled},
	"complete":  {models.StatusInService},
	"no_show":   {models.StatusCalled},
	"cancel":    {models.StatusWaiting, models.StatusCalled, models.StatusInService},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// AllowedSources returns the statuses an action may move from.
func AllowedSources(action string) []string {
	return transitionMap[action]
}
