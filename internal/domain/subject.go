package domain

// SubjectType differentiates who performed an action.
type SubjectType string

const (
	SubjectTypeStudent SubjectType = "STUDENT"
	SubjectTypeStaff   SubjectType = "STAFF"
	SubjectTypeSystem  SubjectType = "SYSTEM"
)
