package metadata

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used by status reports.
const DateLayout = "2006-01-02"

// Tier classifies a status report.
type Tier int

const (
	// TierNeutral covers every status that neither blocks nor advises.
	TierNeutral Tier = iota
	// TierInfo statuses are accepted with an advisory.
	TierInfo
	// TierInvalid statuses reject the authenticator.
	TierInvalid
)

func (t Tier) String() string {
	switch t {
	case TierNeutral:
		return "neutral"
	case TierInfo:
		return "info"
	case TierInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Status values defined by the FIDO Metadata Service.
const (
	StatusNotFIDOCertified          = "NOT_FIDO_CERTIFIED"
	StatusFIDOCertified             = "FIDO_CERTIFIED"
	StatusUserVerificationBypass    = "USER_VERIFICATION_BYPASS"
	StatusAttestationKeyCompromise  = "ATTESTATION_KEY_COMPROMISE"
	StatusUserKeyRemoteCompromise   = "USER_KEY_REMOTE_COMPROMISE"
	StatusUserKeyPhysicalCompromise = "USER_KEY_PHYSICAL_COMPROMISE"
	StatusUpdateAvailable           = "UPDATE_AVAILABLE"
	StatusRevoked                   = "REVOKED"
	StatusSelfAssertionSubmitted    = "SELF_ASSERTION_SUBMITTED"
	StatusFIDOCertifiedL1           = "FIDO_CERTIFIED_L1"
	StatusFIDOCertifiedL2           = "FIDO_CERTIFIED_L2"
)

var statusTiers = map[string]Tier{
	StatusUserVerificationBypass:    TierInvalid,
	StatusAttestationKeyCompromise:  TierInvalid,
	StatusUserKeyRemoteCompromise:   TierInvalid,
	StatusUserKeyPhysicalCompromise: TierInvalid,
	StatusRevoked:                   TierInvalid,
	StatusUpdateAvailable:           TierInfo,
}

// ClassifyStatus maps a status tag to its tier. Unknown tags are neutral.
func ClassifyStatus(status string) Tier {
	return statusTiers[status]
}

// StatusReport is one dated entry of an authenticator's status history.
type StatusReport struct {
	EffectiveDate                    time.Time
	Status                           string
	URL                              string
	Certificate                      string
	CertificationDescriptor          string
	CertificateNumber                string
	CertificationPolicyVersion       string
	CertificationRequirementsVersion string
}

type statusReportJSON struct {
	Status                           string `json:"status"`
	EffectiveDate                    string `json:"effectiveDate,omitempty"`
	URL                              string `json:"url,omitempty"`
	Certificate                      string `json:"certificate,omitempty"`
	CertificationDescriptor          string `json:"certificationDescriptor,omitempty"`
	CertificateNumber                string `json:"certificateNumber,omitempty"`
	CertificationPolicyVersion       string `json:"certificationPolicyVersion,omitempty"`
	CertificationRequirementsVersion string `json:"certificationRequirementsVersion,omitempty"`
}

// ParseEffectiveDate parses an ISO calendar date as 00:00 UTC of that day.
func ParseEffectiveDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// StartOfDay normalizes t to 00:00 UTC of its calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r *StatusReport) UnmarshalJSON(data []byte) error {
	var raw statusReportJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	effective, err := ParseEffectiveDate(raw.EffectiveDate)
	if err != nil {
		return fmt.Errorf("status report effectiveDate %q: %w", raw.EffectiveDate, err)
	}

	*r = StatusReport{
		EffectiveDate:                    effective,
		Status:                           raw.Status,
		URL:                              raw.URL,
		Certificate:                      raw.Certificate,
		CertificationDescriptor:          raw.CertificationDescriptor,
		CertificateNumber:                raw.CertificateNumber,
		CertificationPolicyVersion:       raw.CertificationPolicyVersion,
		CertificationRequirementsVersion: raw.CertificationRequirementsVersion,
	}
	return nil
}

func (r StatusReport) MarshalJSON() ([]byte, error) {
	raw := statusReportJSON{
		Status:                           r.Status,
		URL:                              r.URL,
		Certificate:                      r.Certificate,
		CertificationDescriptor:          r.CertificationDescriptor,
		CertificateNumber:                r.CertificateNumber,
		CertificationPolicyVersion:       r.CertificationPolicyVersion,
		CertificationRequirementsVersion: r.CertificationRequirementsVersion,
	}
	if !r.EffectiveDate.IsZero() {
		raw.EffectiveDate = r.EffectiveDate.UTC().Format(DateLayout)
	}
	return json.Marshal(raw)
}
