package models

type EducationLevel string

const (
	EducationLevelHighSchool EducationLevel = "high_school"
	EducationLevelCollege    EducationLevel = "college"
	EducationLevelUniversity EducationLevel = "university"
)

var EducationLevels = []EducationLevel{
	EducationLevelHighSchool,
	EducationLevelCollege,
	EducationLevelUniversity,
}

func (l EducationLevel) Valid() bool {
	switch l {
	case EducationLevelHighSchool, EducationLevelCollege, EducationLevelUniversity:
		return true
	}
	return false
}

func (l EducationLevel) Display() string {
	switch l {
	case EducationLevelHighSchool:
		return "High School"
	case EducationLevelCollege:
		return "College"
	case EducationLevelUniversity:
		return "University"
	}
	return string(l)
}

type AllocationStatus string

const (
	AllocationStatusPending   AllocationStatus = "pending"
	AllocationStatusApproved  AllocationStatus = "approved"
	AllocationStatusDisbursed AllocationStatus = "disbursed"
	AllocationStatusRejected  AllocationStatus = "rejected"
)

var AllocationStatuses = []AllocationStatus{
	AllocationStatusPending,
	AllocationStatusApproved,
	AllocationStatusDisbursed,
	AllocationStatusRejected,
}

func (s AllocationStatus) Valid() bool {
	switch s {
	case AllocationStatusPending, AllocationStatusApproved, AllocationStatusDisbursed, AllocationStatusRejected:
		return true
	}
	return false
}

// Processed reports whether s is past the pending stage, which is when
// date_processed gets stamped.
func (s AllocationStatus) Processed() bool {
	switch s {
	case AllocationStatusApproved, AllocationStatusDisbursed, AllocationStatusRejected:
		return true
	}
	return false
}

// Terminal statuses admit no further transitions.
func (s AllocationStatus) Terminal() bool {
	return s == AllocationStatusRejected || s == AllocationStatusDisbursed
}

func (s AllocationStatus) Display() string {
	switch s {
	case AllocationStatusPending:
		return "Pending"
	case AllocationStatusApproved:
		return "Approved"
	case AllocationStatusDisbursed:
		return "Disbursed"
	case AllocationStatusRejected:
		return "Rejected"
	}
	return string(s)
}

type SmsStatus string

const (
	SmsStatusNotSent SmsStatus = "not_sent"
	SmsStatusSent    SmsStatus = "sent"
	SmsStatusFailed  SmsStatus = "failed"
	SmsStatusPartial SmsStatus = "partial"
)

var SmsStatuses = []SmsStatus{
	SmsStatusNotSent,
	SmsStatusSent,
	SmsStatusFailed,
	SmsStatusPartial,
}

func (s SmsStatus) Valid() bool {
	switch s {
	case SmsStatusNotSent, SmsStatusSent, SmsStatusFailed, SmsStatusPartial:
		return true
	}
	return false
}

func (s SmsStatus) Display() string {
	switch s {
	case SmsStatusNotSent:
		return "Not Sent"
	case SmsStatusSent:
		return "Sent"
	case SmsStatusFailed:
		return "Failed"
	case SmsStatusPartial:
		return "Partial"
	}
	return string(s)
}

type StudyYear string

const (
	StudyYearForm1  StudyYear = "Form 1"
	StudyYearForm2  StudyYear = "Form 2"
	StudyYearForm3  StudyYear = "Form 3"
	StudyYearForm4  StudyYear = "Form 4"
	StudyYearFirst  StudyYear = "1st Year"
	StudyYearSecond StudyYear = "2nd Year"
	StudyYearThird  StudyYear = "3rd Year"
	StudyYearFourth StudyYear = "4th Year"
)

var highSchoolYears = []StudyYear{StudyYearForm1, StudyYearForm2, StudyYearForm3, StudyYearForm4}
var tertiaryYears = []StudyYear{StudyYearFirst, StudyYearSecond, StudyYearThird, StudyYearFourth}

// YearsForLevel returns the study years valid for an education level.
func YearsForLevel(level EducationLevel) []StudyYear {
	if level == EducationLevelHighSchool {
		return highSchoolYears
	}
	return tertiaryYears
}

func (y StudyYear) ValidForLevel(level EducationLevel) bool {
	for _, v := range YearsForLevel(level) {
		if y == v {
			return true
		}
	}
	return false
}

type Ward string

const (
	WardChebunyo    Ward = "Chebunyo"
	WardCheborge    Ward = "Cheborge"
	WardKapkugerwet Ward = "Kapkugerwet"
	WardKimugu      Ward = "Kimugu"
	WardKipreres    Ward = "Kipreres"
	WardTendeno     Ward = "Tendeno"
)

var Wards = []Ward{
	WardChebunyo,
	WardCheborge,
	WardKapkugerwet,
	WardKimugu,
	WardKipreres,
	WardTendeno,
}

func (w Ward) Valid() bool {
	for _, v := range Wards {
		if w == v {
			return true
		}
	}
	return false
}

type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleCommittee UserRole = "committee"
	UserRoleStaff     UserRole = "staff"
	UserRolePublic    UserRole = "public"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleCommittee, UserRoleStaff, UserRolePublic:
		return true
	}
	return false
}

// CanManageStudents reports whether the role may act on allocation
// records (create, transition, notify). Public users cannot.
func (r UserRole) CanManageStudents() bool {
	switch r {
	case UserRoleAdmin, UserRoleCommittee, UserRoleStaff:
		return true
	}
	return false
}
