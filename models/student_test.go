package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func validInput() *NewStudent {
	return &NewStudent{
		Name:           "Kiprono Mutai",
		RegistrationNo: "UNI-2026-042",
		Phone:          "0712345678",
		GuardianPhone:  "0722000111",
		EducationLevel: EducationLevelUniversity,
		Institution:    "University of Kabianga",
		Course:         "BSc Agriculture",
		Year:           StudyYearSecond,
		Ward:           WardKimugu,
		Amount:         decimal.NewFromInt(25000),
	}
}

func TestValidateFieldsAccepted(t *testing.T) {
	input := validInput()
	if ve := input.validateFields(); ve != nil {
		t.Fatalf("unexpected validation errors: %v", ve)
	}
	if input.Phone != "254712345678" {
		t.Errorf("Phone = %q, want normalized", input.Phone)
	}
	if input.GuardianPhone != "254722000111" {
		t.Errorf("GuardianPhone = %q, want normalized", input.GuardianPhone)
	}
}

func TestValidateFieldsHighSchoolClearsCourse(t *testing.T) {
	input := validInput()
	input.EducationLevel = EducationLevelHighSchool
	input.Year = StudyYearForm2
	input.Course = "should not survive"

	if ve := input.validateFields(); ve != nil {
		t.Fatalf("unexpected validation errors: %v", ve)
	}
	if input.Course != "" {
		t.Errorf("Course = %q, want empty for high school", input.Course)
	}
}

func TestValidateFieldsCourseRequiredForTertiary(t *testing.T) {
	input := validInput()
	input.Course = ""
	ve := input.validateFields()
	if ve == nil {
		t.Fatal("missing course accepted for university student")
	}
	if _, ok := ve["course"]; !ok {
		t.Errorf("errors = %v, want course entry", ve)
	}
}

func TestValidateFieldsYearMustMatchLevel(t *testing.T) {
	cases := []struct {
		level EducationLevel
		year  StudyYear
		ok    bool
	}{
		{EducationLevelHighSchool, StudyYearForm1, true},
		{EducationLevelHighSchool, StudyYearForm4, true},
		{EducationLevelHighSchool, StudyYearFirst, false},
		{EducationLevelUniversity, StudyYearThird, true},
		{EducationLevelUniversity, StudyYearForm2, false},
		{EducationLevelCollege, StudyYearFourth, true},
		{EducationLevelCollege, StudyYearForm1, false},
	}
	for _, tc := range cases {
		input := validInput()
		input.EducationLevel = tc.level
		input.Year = tc.year
		if tc.level == EducationLevelHighSchool {
			input.Course = ""
		}
		ve := input.validateFields()
		_, hasYearErr := ve["year"]
		if tc.ok && hasYearErr {
			t.Errorf("%s / %s rejected: %v", tc.level, tc.year, ve["year"])
		}
		if !tc.ok && !hasYearErr {
			t.Errorf("%s / %s accepted, want year error", tc.level, tc.year)
		}
	}
}

func TestValidateFieldsAmountMustBePositive(t *testing.T) {
	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-100)} {
		input := validInput()
		input.Amount = amount
		ve := input.validateFields()
		if ve == nil {
			t.Errorf("amount %s accepted, want rejection", amount)
			continue
		}
		if _, ok := ve["amount"]; !ok {
			t.Errorf("errors = %v, want amount entry", ve)
		}
	}
}

func TestValidateFieldsGuardianPhoneRequired(t *testing.T) {
	input := validInput()
	input.GuardianPhone = ""
	ve := input.validateFields()
	if ve == nil {
		t.Fatal("empty guardian phone accepted")
	}
	if _, ok := ve["guardian_phone"]; !ok {
		t.Errorf("errors = %v, want guardian_phone entry", ve)
	}
}

func TestValidateFieldsStudentPhoneOptional(t *testing.T) {
	input := validInput()
	input.Phone = ""
	if ve := input.validateFields(); ve != nil {
		t.Fatalf("empty student phone rejected: %v", ve)
	}
}

func TestValidateFieldsRejectsBadPhones(t *testing.T) {
	input := validInput()
	input.Phone = "12345"
	ve := input.validateFields()
	if ve == nil {
		t.Fatal("malformed student phone accepted")
	}
	if !strings.Contains(ve["phone"], "invalid phone number") {
		t.Errorf("phone error = %q", ve["phone"])
	}
}

func TestValidateFieldsPhonesMustDiffer(t *testing.T) {
	// The same destination in different spellings must still be caught;
	// the check runs on normalized values.
	input := validInput()
	input.Phone = "0712345678"
	input.GuardianPhone = "+254712345678"
	ve := input.validateFields()
	if ve == nil {
		t.Fatal("identical phones accepted")
	}
	if _, ok := ve["phone"]; !ok {
		t.Errorf("errors = %v, want phone entry", ve)
	}
	if _, ok := ve["guardian_phone"]; !ok {
		t.Errorf("errors = %v, want guardian_phone entry", ve)
	}
}

func TestValidateFieldsUnknownWardAndLevel(t *testing.T) {
	input := validInput()
	input.Ward = Ward("Atlantis")
	input.EducationLevel = EducationLevel("kindergarten")
	ve := input.validateFields()
	if ve == nil {
		t.Fatal("unknown ward and level accepted")
	}
	if _, ok := ve["ward"]; !ok {
		t.Errorf("errors = %v, want ward entry", ve)
	}
	if _, ok := ve["education_level"]; !ok {
		t.Errorf("errors = %v, want education_level entry", ve)
	}
}

func TestCanSendSMS(t *testing.T) {
	base := Student{
		Phone:         "254712345678",
		GuardianPhone: "254722000111",
		Status:        AllocationStatusApproved,
		SmsStatus:     SmsStatusNotSent,
	}

	if ok, reason := base.CanSendSMS(); !ok {
		t.Fatalf("eligible student blocked: %s", reason)
	}

	noPhones := base
	noPhones.Phone = ""
	noPhones.GuardianPhone = ""
	if ok, reason := noPhones.CanSendSMS(); ok || reason != "No phone number available" {
		t.Errorf("no phones: ok=%v reason=%q", ok, reason)
	}

	pending := base
	pending.Status = AllocationStatusPending
	if ok, reason := pending.CanSendSMS(); ok || reason != "Student must be approved to send SMS" {
		t.Errorf("pending: ok=%v reason=%q", ok, reason)
	}

	sent := base
	sent.SmsStatus = SmsStatusSent
	if ok, reason := sent.CanSendSMS(); ok || reason != "SMS already sent" {
		t.Errorf("already sent: ok=%v reason=%q", ok, reason)
	}

	// failed and partial outcomes may be retried
	for _, status := range []SmsStatus{SmsStatusFailed, SmsStatusPartial} {
		retry := base
		retry.SmsStatus = status
		if ok, _ := retry.CanSendSMS(); !ok {
			t.Errorf("sms_status %q blocked from retry", status)
		}
	}

	guardianOnly := base
	guardianOnly.Phone = ""
	if ok, _ := guardianOnly.CanSendSMS(); !ok {
		t.Error("guardian-only student blocked")
	}
}
