package models

import "testing"

func TestAllocationStatusLifecycle(t *testing.T) {
	if AllocationStatusPending.Processed() {
		t.Error("pending reported as processed")
	}
	for _, s := range []AllocationStatus{AllocationStatusApproved, AllocationStatusDisbursed, AllocationStatusRejected} {
		if !s.Processed() {
			t.Errorf("%s not reported as processed", s)
		}
	}

	if AllocationStatusPending.Terminal() || AllocationStatusApproved.Terminal() {
		t.Error("pending/approved reported as terminal")
	}
	if !AllocationStatusDisbursed.Terminal() || !AllocationStatusRejected.Terminal() {
		t.Error("disbursed/rejected not reported as terminal")
	}

	if AllocationStatus("archived").Valid() {
		t.Error("unknown status reported valid")
	}
}

func TestYearsForLevel(t *testing.T) {
	for _, y := range YearsForLevel(EducationLevelHighSchool) {
		if !y.ValidForLevel(EducationLevelHighSchool) {
			t.Errorf("%s invalid for high school", y)
		}
		if y.ValidForLevel(EducationLevelUniversity) {
			t.Errorf("%s valid for university", y)
		}
	}
	if got := len(YearsForLevel(EducationLevelCollege)); got != 4 {
		t.Errorf("college years = %d, want 4", got)
	}
}

func TestUserRolePermissions(t *testing.T) {
	for _, r := range []UserRole{UserRoleAdmin, UserRoleCommittee, UserRoleStaff} {
		if !r.CanManageStudents() {
			t.Errorf("%s cannot manage students", r)
		}
	}
	if UserRolePublic.CanManageStudents() {
		t.Error("public role can manage students")
	}
}
