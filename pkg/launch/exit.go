package launch

import "fmt"

// ExitError carries the trainer's exit code up to main so the launcher can
// exit with exactly the same status
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("trainer exited with code %d", e.Code)
}
