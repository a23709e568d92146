package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buretifund/bursary_backend/config"
	"github.com/buretifund/bursary_backend/sms"
	"github.com/buretifund/bursary_backend/utils"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Student is one bursary allocation record and its lifecycle state.
// status and sms_status evolve independently: notification attempts
// never change status, and status transitions never send SMS.
type Student struct {
	ID             int              `gorm:"primary_key" json:"id"`
	Name           string           `gorm:"size:200;not null" json:"name" binding:"required"`
	RegistrationNo string           `gorm:"size:50;uniqueIndex;not null" json:"registration_no" binding:"required"`
	Phone          string           `gorm:"size:20" json:"phone"`
	GuardianPhone  string           `gorm:"size:20;not null" json:"guardian_phone" binding:"required"`
	EducationLevel EducationLevel   `gorm:"size:20;not null;index" json:"education_level" binding:"required"`
	Institution    string           `gorm:"size:200;not null" json:"institution" binding:"required"`
	Course         string           `gorm:"size:200" json:"course"`
	Year           StudyYear        `gorm:"size:20;not null" json:"year" binding:"required"`
	Ward           Ward             `gorm:"size:50;not null;index" json:"ward" binding:"required"`
	Amount         decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status         AllocationStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	SmsStatus      SmsStatus        `gorm:"size:20;not null;default:'not_sent';index" json:"sms_status"`

	SmsSentAt   *time.Time `json:"sms_sent_at"`
	SmsSentById *int       `json:"sms_sent_by"`

	RejectionReason string `gorm:"type:text" json:"rejection_reason"`

	DateApplied   time.Time  `gorm:"not null;index" json:"date_applied"`
	DateProcessed *time.Time `json:"date_processed"`

	// Audit references are weak: nullable, set on write, never read by
	// business logic.
	CreatedById *int      `json:"created_by"`
	UpdatedById *int      `json:"updated_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewStudent is the create/update input.
type NewStudent struct {
	Name           string          `json:"name" binding:"required"`
	RegistrationNo string          `json:"registration_no" binding:"required"`
	Phone          string          `json:"phone"`
	GuardianPhone  string          `json:"guardian_phone" binding:"required"`
	EducationLevel EducationLevel  `json:"education_level" binding:"required"`
	Institution    string          `json:"institution" binding:"required"`
	Course         string          `json:"course"`
	Year           StudyYear       `json:"year" binding:"required"`
	Ward           Ward            `json:"ward" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
}

// validateFields checks every invariant that needs no database access
// and normalizes both phones in place. Returns nil when clean.
func (input *NewStudent) validateFields() utils.ValidationError {
	ve := utils.ValidationError{}

	if !input.EducationLevel.Valid() {
		ve["education_level"] = "education level must be one of: high_school, college, university"
	}
	if !input.Ward.Valid() {
		ve["ward"] = "unknown ward"
	}

	if input.EducationLevel == EducationLevelHighSchool {
		// High school students have no course; force it empty the way
		// the register has always done.
		input.Course = ""
	} else if input.EducationLevel.Valid() && input.Course == "" {
		ve["course"] = "course is required for college/university students"
	}

	if input.EducationLevel.Valid() && !input.Year.ValidForLevel(input.EducationLevel) {
		valid := YearsForLevel(input.EducationLevel)
		labels := make([]string, len(valid))
		for i, y := range valid {
			labels[i] = string(y)
		}
		ve["year"] = fmt.Sprintf("year must be one of: %s", strings.Join(labels, ", "))
	}

	if !input.Amount.IsPositive() {
		ve["amount"] = "amount must be greater than 0"
	}

	if input.GuardianPhone == "" {
		ve["guardian_phone"] = "guardian phone number is required"
	} else {
		normalized, err := sms.Normalize(input.GuardianPhone)
		if err != nil {
			ve["guardian_phone"] = "invalid guardian phone number; valid formats: 07XXXXXXXX, 7XXXXXXXX, 2547XXXXXXXX"
		} else {
			input.GuardianPhone = normalized
		}
	}

	if input.Phone != "" {
		normalized, err := sms.Normalize(input.Phone)
		if err != nil {
			ve["phone"] = "invalid phone number; valid formats: 07XXXXXXXX, 7XXXXXXXX, 2547XXXXXXXX"
		} else {
			input.Phone = normalized
		}
	}

	if input.Phone != "" && input.GuardianPhone != "" && input.Phone == input.GuardianPhone {
		ve["phone"] = "student phone and guardian phone cannot be the same"
		ve["guardian_phone"] = "student phone and guardian phone cannot be the same"
	}

	if len(ve) == 0 {
		return nil
	}
	return ve
}

// validate runs the field checks plus the registration number
// uniqueness probe. exceptId excludes the record itself on update.
func (input *NewStudent) validate(ctx context.Context, exceptId int) error {
	if ve := input.validateFields(); ve != nil {
		return ve
	}
	var count int64
	var err error
	if exceptId > 0 {
		count, err = utils.ResourceCountWhere[Student](ctx, "registration_no = ? AND NOT id = ?", input.RegistrationNo, exceptId)
	} else {
		count, err = utils.ResourceCountWhere[Student](ctx, "registration_no = ?", input.RegistrationNo)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.NewValidationError("registration_no",
			fmt.Sprintf("registration number %q already exists", input.RegistrationNo))
	}
	return nil
}

// isDuplicateRegistration recognizes the store-level unique index
// firing on a concurrent insert that slipped past validate.
func isDuplicateRegistration(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}

func CreateStudent(ctx context.Context, input *NewStudent) (*Student, error) {
	db := config.GetDB()

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	student := Student{
		Name:           input.Name,
		RegistrationNo: input.RegistrationNo,
		Phone:          input.Phone,
		GuardianPhone:  input.GuardianPhone,
		EducationLevel: input.EducationLevel,
		Institution:    input.Institution,
		Course:         input.Course,
		Year:           input.Year,
		Ward:           input.Ward,
		Amount:         input.Amount,
		Status:         AllocationStatusPending,
		SmsStatus:      SmsStatusNotSent,
		DateApplied:    time.Now(),
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		student.CreatedById = &userId
	}

	if err := db.WithContext(ctx).Create(&student).Error; err != nil {
		if isDuplicateRegistration(err) {
			return nil, utils.NewValidationError("registration_no",
				fmt.Sprintf("registration number %q already exists", input.RegistrationNo))
		}
		return nil, err
	}
	return &student, nil
}

func UpdateStudent(ctx context.Context, id int, input *NewStudent) (*Student, error) {
	db := config.GetDB()

	student, err := utils.FetchModel[Student](ctx, id)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Model(student).Updates(map[string]interface{}{
		"Name":           input.Name,
		"RegistrationNo": input.RegistrationNo,
		"Phone":          input.Phone,
		"GuardianPhone":  input.GuardianPhone,
		"EducationLevel": input.EducationLevel,
		"Institution":    input.Institution,
		"Course":         input.Course,
		"Year":           input.Year,
		"Ward":           input.Ward,
		"Amount":         input.Amount,
		"UpdatedById":    updatedByFromContext(ctx),
	}).Error
	if err != nil {
		if isDuplicateRegistration(err) {
			return nil, utils.NewValidationError("registration_no",
				fmt.Sprintf("registration number %q already exists", input.RegistrationNo))
		}
		return nil, err
	}
	return student, nil
}

func updatedByFromContext(ctx context.Context) *int {
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		return &userId
	}
	return nil
}

func GetStudent(ctx context.Context, id int) (*Student, error) {
	return utils.FetchModel[Student](ctx, id)
}

func DeleteStudent(ctx context.Context, id int) error {
	db := config.GetDB()
	student, err := utils.FetchModel[Student](ctx, id)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Delete(student).Error
}

// StudentFilter mirrors the register's list filters.
type StudentFilter struct {
	Name           string
	RegistrationNo string
	Institution    string
	Ward           Ward
	EducationLevel EducationLevel
	Status         AllocationStatus
	SmsStatus      SmsStatus
	Year           StudyYear
	MinAmount      *decimal.Decimal
	MaxAmount      *decimal.Decimal
	AppliedAfter   *time.Time
	AppliedBefore  *time.Time
	Search         string
	Limit          int
	Offset         int
}

func ListStudents(ctx context.Context, filter StudentFilter) ([]Student, error) {
	db := config.GetDB()
	query := db.WithContext(ctx).Model(&Student{})

	if filter.Name != "" {
		query = query.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.RegistrationNo != "" {
		query = query.Where("registration_no LIKE ?", "%"+filter.RegistrationNo+"%")
	}
	if filter.Institution != "" {
		query = query.Where("institution LIKE ?", "%"+filter.Institution+"%")
	}
	if filter.Ward != "" {
		query = query.Where("ward = ?", filter.Ward)
	}
	if filter.EducationLevel != "" {
		query = query.Where("education_level = ?", filter.EducationLevel)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SmsStatus != "" {
		query = query.Where("sms_status = ?", filter.SmsStatus)
	}
	if filter.Year != "" {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", filter.MaxAmount)
	}
	if filter.AppliedAfter != nil {
		query = query.Where("date_applied >= ?", filter.AppliedAfter)
	}
	if filter.AppliedBefore != nil {
		query = query.Where("date_applied <= ?", filter.AppliedBefore)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where(
			"name LIKE ? OR registration_no LIKE ? OR institution LIKE ? OR phone LIKE ? OR guardian_phone LIKE ?",
			like, like, like, like, like,
		)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var students []Student
	err := query.Order("date_applied DESC").Limit(limit).Offset(filter.Offset).Find(&students).Error
	return students, err
}

// CanSendSMS gates notification attempts. The orchestrator re-checks
// this at send time since state may have changed after the caller
// looked.
func (s *Student) CanSendSMS() (bool, string) {
	if s.Phone == "" && s.GuardianPhone == "" {
		return false, "No phone number available"
	}
	if s.Status != AllocationStatusApproved {
		return false, "Student must be approved to send SMS"
	}
	if s.SmsStatus == SmsStatusSent {
		return false, "SMS already sent"
	}
	return true, "OK"
}

// TransitionStatus moves an allocation through its lifecycle:
// pending -> approved, pending -> rejected (reason required),
// approved -> disbursed. Everything else is a conflict. The current
// state is re-read under a row lock so two actors racing on the same
// record cannot both win.
func TransitionStatus(ctx context.Context, id int, newStatus AllocationStatus, reason string) (*Student, error) {
	if !newStatus.Valid() || newStatus == AllocationStatusPending {
		return nil, utils.NewValidationError("status", "status must be approved, rejected or disbursed")
	}
	if newStatus == AllocationStatusRejected && strings.TrimSpace(reason) == "" {
		return nil, utils.NewValidationError("reason", "rejection reason is required")
	}

	db := config.GetDB()
	var student Student

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&student, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}

		switch newStatus {
		case AllocationStatusApproved:
			if student.Status == AllocationStatusApproved {
				return utils.NewConflictError("student is already approved")
			}
			if student.Status != AllocationStatusPending {
				return utils.NewConflictError("cannot approve a %s student", student.Status)
			}
		case AllocationStatusRejected:
			if student.Status != AllocationStatusPending {
				return utils.NewConflictError("cannot reject a %s student", student.Status)
			}
		case AllocationStatusDisbursed:
			if student.Status != AllocationStatusApproved {
				return utils.NewConflictError("only approved allocations can be disbursed")
			}
		}

		updates := map[string]interface{}{
			"Status":      newStatus,
			"UpdatedById": updatedByFromContext(ctx),
		}
		if newStatus == AllocationStatusRejected {
			updates["RejectionReason"] = reason
		}
		// date_processed is stamped exactly once, on the first exit
		// from pending.
		if student.DateProcessed == nil {
			now := time.Now()
			updates["DateProcessed"] = &now
		}

		if err := tx.Model(&student).Updates(updates).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger := config.GetLogger()
	logger.WithFields(logrus.Fields{
		"module":    "models",
		"funcName":  "TransitionStatus",
		"studentId": student.ID,
		"status":    newStatus,
	}).Info("allocation status changed")

	return &student, nil
}
