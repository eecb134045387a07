package enums

import "fmt"

// AssignmentActionType labels an entry in the assignment audit trail.
type AssignmentActionType string

const (
	AssignmentActionAutoAssign AssignmentActionType = "auto_assign"
	AssignmentActionPickup     AssignmentActionType = "pickup"
	AssignmentActionTransfer   AssignmentActionType = "transfer"
	AssignmentActionRelease    AssignmentActionType = "release"
)

var validAssignmentActionTypes = []AssignmentActionType{
	AssignmentActionAutoAssign,
	AssignmentActionPickup,
	AssignmentActionTransfer,
	AssignmentActionRelease,
}

// String implements fmt.Stringer.
func (a AssignmentActionType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AssignmentActionType.
func (a AssignmentActionType) IsValid() bool {
	for _, candidate := range validAssignmentActionTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAssignmentActionType converts raw input into an AssignmentActionType.
func ParseAssignmentActionType(value string) (AssignmentActionType, error) {
	for _, candidate := range validAssignmentActionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment action type %q", value)
}
