package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/buretifund/bursary_backend/config"
	"github.com/buretifund/bursary_backend/models"
	"github.com/buretifund/bursary_backend/sms"
	"github.com/buretifund/bursary_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const bulkSmsLockKey = "bursary:bulk_sms_lock"

// PhoneResult is the outcome of one gateway invocation for one
// recipient phone.
type PhoneResult struct {
	Phone  string `json:"phone"`
	Role   string `json:"type"`
	OK     bool   `json:"success"`
	Detail string `json:"detail,omitempty"`
}

// NotificationOutcome aggregates all recipient sends for one record.
type NotificationOutcome struct {
	StudentID    int              `json:"student_id"`
	Name         string           `json:"name"`
	TotalPhones  int              `json:"total_phones"`
	SuccessCount int              `json:"success_count"`
	FailureCount int              `json:"failure_count"`
	SmsStatus    models.SmsStatus `json:"sms_status"`
	Results      []PhoneResult    `json:"results"`
	Error        string           `json:"error,omitempty"`
}

// BulkOutcome is the aggregate report for a batch. A record counts as
// succeeded when at least one of its phones was reached.
type BulkOutcome struct {
	TotalRequested    int                    `json:"total_students"`
	SuccessCount      int                    `json:"success_count"`
	FailureCount      int                    `json:"failure_count"`
	SkippedIneligible int                    `json:"skipped_ineligible"`
	SkippedIds        []int                  `json:"skipped_ids,omitempty"`
	Results           []*NotificationOutcome `json:"results"`
}

// OutcomeSaver persists the SMS outcome fields of a record. The default
// implementation issues a single-row UPDATE so the aggregation result,
// timestamp and actor land atomically.
type OutcomeSaver interface {
	SaveOutcome(ctx context.Context, student *models.Student) error
}

// ApprovedLoader fetches the approved subset of a requested id set.
type ApprovedLoader func(ctx context.Context, ids []int) ([]models.Student, error)

type dbOutcomeSaver struct{}

func (dbOutcomeSaver) SaveOutcome(ctx context.Context, student *models.Student) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(student).Updates(map[string]interface{}{
		"SmsStatus":   student.SmsStatus,
		"SmsSentAt":   student.SmsSentAt,
		"SmsSentById": student.SmsSentById,
	}).Error
}

func loadApprovedFromDB(ctx context.Context, ids []int) ([]models.Student, error) {
	db := config.GetDB()
	var students []models.Student
	err := db.WithContext(ctx).
		Where("id IN ? AND status = ?", ids, models.AllocationStatusApproved).
		Find(&students).Error
	return students, err
}

// Notifier drives the gateway client per recipient and folds results
// back into the record. Provider and persistence are injected so tests
// run without network or database.
type Notifier struct {
	provider     sms.Provider
	saver        OutcomeSaver
	loadApproved ApprovedLoader
	logger       *logrus.Logger
}

func NewNotifier(provider sms.Provider, logger *logrus.Logger) *Notifier {
	return &Notifier{
		provider:     provider,
		saver:        dbOutcomeSaver{},
		loadApproved: loadApprovedFromDB,
		logger:       logger,
	}
}

// NewNotifierWithStore wires explicit persistence; used by tests.
func NewNotifierWithStore(provider sms.Provider, saver OutcomeSaver, loader ApprovedLoader, logger *logrus.Logger) *Notifier {
	return &Notifier{
		provider:     provider,
		saver:        saver,
		loadApproved: loader,
		logger:       logger,
	}
}

type recipient struct {
	phone   string // canonical when normErr is nil, raw otherwise
	role    string
	normErr error
}

// buildRecipients resolves the unique phone set: student phone first,
// then guardian, deduplicated on the normalized number. When both
// resolve to the same destination the entry carries the merged role tag
// ("student/guardian") and gets exactly one send.
func buildRecipients(s *models.Student) []recipient {
	type candidate struct {
		role string
		raw  string
	}
	candidates := []candidate{}
	if s.Phone != "" {
		candidates = append(candidates, candidate{"student", s.Phone})
	}
	if s.GuardianPhone != "" {
		candidates = append(candidates, candidate{"guardian", s.GuardianPhone})
	}

	var out []recipient
	index := map[string]int{}
	for _, c := range candidates {
		phone, err := sms.Normalize(c.raw)
		key := phone
		if err != nil {
			phone = c.raw
			key = c.raw
		}
		if i, ok := index[key]; ok {
			if !strings.Contains(out[i].role, c.role) {
				out[i].role = out[i].role + "/" + c.role
			}
			continue
		}
		index[key] = len(out)
		out = append(out, recipient{phone: phone, role: c.role, normErr: err})
	}
	return out
}

// renderMessage produces the award notification text. A caller-supplied
// override is used verbatim.
func renderMessage(s *models.Student, override string) string {
	if override != "" {
		return override
	}
	return fmt.Sprintf(
		"Dear %s, you have been awarded %s KES CDF bursary for your studies at %s. Congratulations! - Bureti CDF",
		s.Name, formatAmount(s.Amount), s.Institution,
	)
}

// formatAmount renders a currency value with thousands separators and
// two decimal places, e.g. 15000.5 -> "15,000.50".
func formatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}

// NotifyOne sends the award SMS for a single record. The eligibility
// gate is re-checked here, not just in the API layer, since state may
// have changed between the caller's read and the send. A record with no
// phones is a precondition failure on the record itself, not a stale
// state, so it surfaces as a validation error.
func (n *Notifier) NotifyOne(ctx context.Context, student *models.Student, messageOverride string) (*NotificationOutcome, error) {
	if ok, reason := student.CanSendSMS(); !ok {
		if student.Phone == "" && student.GuardianPhone == "" {
			return nil, utils.NewValidationError("phone", reason)
		}
		return nil, utils.NewConflictError("%s", reason)
	}

	outcome := n.attempt(ctx, student, renderMessage(student, messageOverride))
	if outcome.Error != "" && outcome.TotalPhones == 0 {
		return nil, errors.New(outcome.Error)
	}
	return outcome, nil
}

// attempt runs steps 1-4 of the notification contract for one record:
// build recipients, send to each, aggregate, persist. A failure on one
// phone never aborts the remaining sends.
func (n *Notifier) attempt(ctx context.Context, student *models.Student, message string) *NotificationOutcome {
	outcome := &NotificationOutcome{
		StudentID: student.ID,
		Name:      student.Name,
		SmsStatus: student.SmsStatus,
	}

	recipients := buildRecipients(student)
	if len(recipients) == 0 {
		outcome.Error = "No phone numbers available"
		return outcome
	}
	outcome.TotalPhones = len(recipients)

	for _, r := range recipients {
		if r.normErr != nil {
			// Normalization failure is a per-recipient failure entry,
			// never a batch abort; the gateway is not contacted.
			outcome.Results = append(outcome.Results, PhoneResult{
				Phone:  r.phone,
				Role:   r.role,
				OK:     false,
				Detail: r.normErr.Error(),
			})
			outcome.FailureCount++
			continue
		}

		result := n.provider.Send(ctx, r.phone, message, sms.Metadata{
			StudentID: student.ID,
			Role:      r.role,
		})
		outcome.Results = append(outcome.Results, PhoneResult{
			Phone:  r.phone,
			Role:   r.role,
			OK:     result.OK,
			Detail: result.Detail,
		})
		if result.OK {
			outcome.SuccessCount++
		} else {
			outcome.FailureCount++
		}
	}

	switch {
	case outcome.SuccessCount == 0:
		student.SmsStatus = models.SmsStatusFailed
	case outcome.FailureCount == 0:
		student.SmsStatus = models.SmsStatusSent
	default:
		student.SmsStatus = models.SmsStatusPartial
	}
	outcome.SmsStatus = student.SmsStatus

	now := time.Now()
	student.SmsSentAt = &now
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		student.SmsSentById = &userId
	}

	if err := n.saver.SaveOutcome(ctx, student); err != nil {
		// Persistence failure is isolated per record; the caller still
		// gets the send results.
		config.LogError(n.logger, "workflow", "attempt", "SaveOutcome",
			map[string]any{"studentId": student.ID}, err)
		outcome.Error = "failed to persist SMS outcome"
	}

	return outcome
}

// NotifyMany applies the single-record contract independently per
// record. Only approved records are eligible; ineligible ids are
// excluded and reported, not errored. One record's failures never block
// the rest of the batch.
func (n *Notifier) NotifyMany(ctx context.Context, ids []int, messageOverride string) (*BulkOutcome, error) {
	if len(ids) == 0 {
		return nil, utils.NewValidationError("student_ids", "no student IDs provided")
	}
	ids = utils.UniqueSlice(ids)

	// Best-effort serialization of concurrent bulk batches. Correctness
	// does not depend on the lock: outcome persistence is a single-row
	// atomic update per record.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, bulkSmsLockKey, 5*time.Minute, nil)
		switch {
		case err == nil:
			defer lock.Release(context.WithoutCancel(ctx))
		case errors.Is(err, redislock.ErrNotObtained):
			return nil, utils.NewConflictError("another bulk SMS operation is in progress")
		default:
			// Lock service trouble degrades to unserialized batches;
			// row-level atomic updates keep the outcome correct.
			config.LogWarn(n.logger, "workflow", "NotifyMany", "redislock.Obtain", err.Error())
		}
	}

	students, err := n.loadApproved(ctx, ids)
	if err != nil {
		return nil, err
	}

	eligible := make(map[int]bool, len(students))
	for i := range students {
		eligible[students[i].ID] = true
	}

	outcome := &BulkOutcome{TotalRequested: len(ids)}
	for _, id := range ids {
		if !eligible[id] {
			outcome.SkippedIneligible++
			outcome.SkippedIds = append(outcome.SkippedIds, id)
		}
	}

	for i := range students {
		student := &students[i]
		record := n.notifyRecordSafe(ctx, student, messageOverride)
		outcome.Results = append(outcome.Results, record)
		if record.SuccessCount > 0 {
			outcome.SuccessCount++
		} else {
			outcome.FailureCount++
		}
	}

	n.logger.WithFields(logrus.Fields{
		"module":    "workflow",
		"funcName":  "NotifyMany",
		"requested": outcome.TotalRequested,
		"succeeded": outcome.SuccessCount,
		"failed":    outcome.FailureCount,
		"skipped":   outcome.SkippedIneligible,
	}).Info("bulk SMS completed")

	return outcome, nil
}

// notifyRecordSafe contains any per-record blowup so a single bad
// record cannot abort the rest of the batch.
func (n *Notifier) notifyRecordSafe(ctx context.Context, student *models.Student, messageOverride string) (outcome *NotificationOutcome) {
	defer func() {
		if r := recover(); r != nil {
			config.LogError(n.logger, "workflow", "notifyRecordSafe", "recover",
				map[string]any{"studentId": student.ID}, fmt.Errorf("panic: %v", r))
			outcome = &NotificationOutcome{
				StudentID: student.ID,
				Name:      student.Name,
				SmsStatus: student.SmsStatus,
				Error:     fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	return n.attempt(ctx, student, renderMessage(student, messageOverride))
}

// Balance reads the account-level SMS credit from the provider.
func (n *Notifier) Balance(ctx context.Context) (sms.Balance, error) {
	return n.provider.Balance(ctx)
}
