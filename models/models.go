package models

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{&User{}, &StudyBlock{}, &Task{}, &PlanRequest{}}
}

func newID(current string) (string, error) {
	if current != "" {
		return current, nil
	}
	return gonanoid.New()
}
