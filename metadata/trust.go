package metadata

import (
	"errors"
	"time"
)

// ErrEntryRejected matches every *TrustError via errors.Is.
var ErrEntryRejected = errors.New("metadata entry rejected")

const (
	noApplicableStatusReason = "Invalid MDS statusReports"
	invalidStatusPrefix      = "Invalid MDS status: "
	updateAvailablePrefix    = "Software Update is available: "
)

// RejectionKind tells callers why an entry was rejected.
type RejectionKind int

const (
	// KindRecordedFailure is a failure stored at construction (integrity
	// mismatch or an upstream error). It never clears.
	KindRecordedFailure RejectionKind = iota + 1
	// KindInvalidStatus is an INVALID-tier report that is currently in effect.
	KindInvalidStatus
	// KindNoApplicableStatus means no report has taken effect yet.
	KindNoApplicableStatus
)

func (k RejectionKind) String() string {
	switch k {
	case KindRecordedFailure:
		return "recorded_failure"
	case KindInvalidStatus:
		return "invalid_status"
	case KindNoApplicableStatus:
		return "no_applicable_status"
	default:
		return "unknown"
	}
}

// TrustError is returned by CheckValid when an entry is not trusted. Reason is
// suitable for audit logs.
type TrustError struct {
	Kind   RejectionKind
	Status string
	Reason string
}

func (e *TrustError) Error() string {
	return e.Reason
}

func (e *TrustError) Is(target error) bool {
	return target == ErrEntryRejected
}

// Verdict describes an accepted entry. Status and Tier are empty for entries
// without a status history.
type Verdict struct {
	Status   string
	Tier     Tier
	Advisory string
}

// CheckValid decides whether the entry is trusted now. The verdict depends on
// the current time and must not be cached across ceremonies.
func (e *Entry) CheckValid() (Verdict, error) {
	return e.CheckValidAt(time.Now())
}

// CheckValidAt evaluates the entry as of now. The most recent report whose
// effective date is not after now decides the outcome; older reports are
// ignored.
func (e *Entry) CheckValidAt(now time.Time) (Verdict, error) {
	if e.failure != "" {
		return Verdict{}, &TrustError{Kind: KindRecordedFailure, Reason: e.failure}
	}
	if e.toc == nil {
		return Verdict{}, nil
	}

	reports := e.toc.StatusReports
	for i := len(reports) - 1; i >= 0; i-- {
		report := reports[i]
		if report.EffectiveDate.After(now) {
			continue
		}

		verdict := Verdict{Status: report.Status, Tier: ClassifyStatus(report.Status)}
		switch verdict.Tier {
		case TierInvalid:
			return verdict, &TrustError{
				Kind:   KindInvalidStatus,
				Status: report.Status,
				Reason: invalidStatusPrefix + report.Status,
			}
		case TierInfo:
			verdict.Advisory = updateAvailablePrefix + e.statement.Description()
			e.logger.Print("goTrust: " + verdict.Advisory)
		}
		return verdict, nil
	}

	return Verdict{}, &TrustError{Kind: KindNoApplicableStatus, Reason: noApplicableStatusReason}
}
