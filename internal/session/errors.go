package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoExercises                 = errors.New("a workout needs at least one exercise")
	ErrSessionClosed               = errors.New("workout session is no longer active")
	ErrPartialConfirmationRequired = errors.New("some exercises are not completed, confirmation required")
)

// IncompleteError is returned by Prepare when finishing would produce a partial workout
// and the caller has not confirmed it.
type IncompleteError struct {
	Exercises []string // names of the exercises that are not completed
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPartialConfirmationRequired.Error(), strings.Join(e.Exercises, ", "))
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrPartialConfirmationRequired
}
