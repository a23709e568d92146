package models

import (
	"context"

	"github.com/buretifund/bursary_backend/config"
	"github.com/shopspring/decimal"
)

// PhoneStatistics counts phone presence across the register; feeds the
// dashboard and flags records the notifier can never reach.
type PhoneStatistics struct {
	HasStudentPhone  int64 `json:"has_student_phone"`
	HasGuardianPhone int64 `json:"has_guardian_phone"`
	HasBothPhones    int64 `json:"has_both_phones"`
	HasNoPhones      int64 `json:"has_no_phones"`
}

type StudentStatistics struct {
	Total       int64           `json:"total"`
	Pending     int64           `json:"pending"`
	Approved    int64           `json:"approved"`
	Disbursed   int64           `json:"disbursed"`
	Rejected    int64           `json:"rejected"`
	TotalAmount decimal.Decimal `json:"total_amount"`

	EducationStats map[string]int64 `json:"education_stats"`
	WardStats      map[string]int64 `json:"ward_stats"`
	SmsStats       map[string]int64 `json:"sms_stats"`
	PhoneStats     PhoneStatistics  `json:"phone_statistics"`
}

type groupCount struct {
	Key   string `gorm:"column:k"`
	Count int64  `gorm:"column:c"`
}

// GetStudentStatistics computes aggregate counts by status, education
// level, ward, sms status and phone presence. Pure read, no side
// effects.
func GetStudentStatistics(ctx context.Context) (*StudentStatistics, error) {
	db := config.GetDB()
	stats := &StudentStatistics{
		EducationStats: make(map[string]int64),
		WardStats:      make(map[string]int64),
		SmsStats:       make(map[string]int64),
	}

	if err := db.WithContext(ctx).Model(&Student{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var byStatus []groupCount
	if err := db.WithContext(ctx).Model(&Student{}).
		Select("status AS k, COUNT(*) AS c").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		switch AllocationStatus(row.Key) {
		case AllocationStatusPending:
			stats.Pending = row.Count
		case AllocationStatusApproved:
			stats.Approved = row.Count
		case AllocationStatusDisbursed:
			stats.Disbursed = row.Count
		case AllocationStatusRejected:
			stats.Rejected = row.Count
		}
	}

	var totalAmount decimal.NullDecimal
	if err := db.WithContext(ctx).Model(&Student{}).
		Select("COALESCE(SUM(amount), 0)").Scan(&totalAmount).Error; err != nil {
		return nil, err
	}
	if totalAmount.Valid {
		stats.TotalAmount = totalAmount.Decimal
	}

	var byLevel []groupCount
	if err := db.WithContext(ctx).Model(&Student{}).
		Select("education_level AS k, COUNT(*) AS c").Group("education_level").Scan(&byLevel).Error; err != nil {
		return nil, err
	}
	// Every known level appears in the result, zero or not; dashboards
	// rely on the full key set.
	for _, level := range EducationLevels {
		stats.EducationStats[level.Display()] = 0
	}
	for _, row := range byLevel {
		stats.EducationStats[EducationLevel(row.Key).Display()] = row.Count
	}

	var byWard []groupCount
	if err := db.WithContext(ctx).Model(&Student{}).
		Select("ward AS k, COUNT(*) AS c").Group("ward").Scan(&byWard).Error; err != nil {
		return nil, err
	}
	for _, ward := range Wards {
		stats.WardStats[string(ward)] = 0
	}
	for _, row := range byWard {
		stats.WardStats[row.Key] = row.Count
	}

	var bySms []groupCount
	if err := db.WithContext(ctx).Model(&Student{}).
		Select("sms_status AS k, COUNT(*) AS c").Group("sms_status").Scan(&bySms).Error; err != nil {
		return nil, err
	}
	for _, status := range SmsStatuses {
		stats.SmsStats[string(status)] = 0
	}
	for _, row := range bySms {
		stats.SmsStats[row.Key] = row.Count
	}

	phoneCounts := []struct {
		dest *int64
		cond string
	}{
		{&stats.PhoneStats.HasStudentPhone, "phone <> ''"},
		{&stats.PhoneStats.HasGuardianPhone, "guardian_phone <> ''"},
		{&stats.PhoneStats.HasBothPhones, "phone <> '' AND guardian_phone <> ''"},
		{&stats.PhoneStats.HasNoPhones, "phone = '' AND guardian_phone = ''"},
	}
	for _, pc := range phoneCounts {
		if err := db.WithContext(ctx).Model(&Student{}).Where(pc.cond).Count(pc.dest).Error; err != nil {
			return nil, err
		}
	}

	return stats, nil
}
