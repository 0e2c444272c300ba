package rbac

const (
	PermAttemptStart   = "attempt:start"
	PermAttemptSubmit  = "attempt:submit"
	PermAttemptViewOwn = "attempt:view-own"
	PermAttemptViewAll = "attempt:view-all"
	PermCalendarUse    = "calendar:use"
)

// RolePermissions is the platform-level policy. Classroom membership is
// checked separately by the exam service.
var RolePermissions = map[string][]string{
	"student": {
		PermAttemptStart,
		PermAttemptSubmit,
		PermAttemptViewOwn,
		PermCalendarUse,
	},
	"teacher": {
		"attempt:*",
		PermCalendarUse,
	},
	"admin": {
		"*",
	},
}
