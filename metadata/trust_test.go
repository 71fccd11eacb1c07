package metadata

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCheckValidStatementOnlyTrusted(t *testing.T) {
	e, err := NewStatementEntry(testStatement())
	if err != nil {
		t.Fatalf("NewStatementEntry error: %v", err)
	}
	verdict, err := e.CheckValid()
	if err != nil {
		t.Fatalf("expected statement-only entry to be trusted: %v", err)
	}
	if verdict.Status != "" || verdict.Advisory != "" {
		t.Fatalf("unexpected verdict %+v", verdict)
	}
}

func TestCheckValidScanStopsAtMostRecentApplicable(t *testing.T) {
	toc := tocEntry(
		report(-7, StatusRevoked),
		report(-1, StatusFIDOCertifiedL1),
		report(1, StatusAttestationKeyCompromise),
	)

	e, err := NewEntry(toc, testStatement(), "")
	if err != nil {
		t.Fatalf("NewEntry error: %v", err)
	}
	verdict, err := e.CheckValid()
	if err != nil {
		t.Fatalf("expected yesterday's neutral report to decide, got %v", err)
	}
	if verdict.Status != StatusFIDOCertifiedL1 || verdict.Tier != TierNeutral {
		t.Fatalf("unexpected verdict %+v", verdict)
	}
}

func TestCheckValidInvalidTierRejects(t *testing.T) {
	invalid := []string{
		StatusUserVerificationBypass,
		StatusAttestationKeyCompromise,
		StatusUserKeyRemoteCompromise,
		StatusUserKeyPhysicalCompromise,
		StatusRevoked,
	}
	for _, status := range invalid {
		e, err := NewEntry(tocEntry(report(-30, StatusFIDOCertified), report(-2, status)), testStatement(), "")
		if err != nil {
			t.Fatalf("NewEntry error: %v", err)
		}

		_, err = e.CheckValid()
		var te *TrustError
		if !errors.As(err, &te) {
			t.Fatalf("%s: expected TrustError, got %v", status, err)
		}
		if te.Kind != KindInvalidStatus || te.Status != status {
			t.Fatalf("%s: unexpected rejection %+v", status, te)
		}
		if te.Error() != "Invalid MDS status: "+status {
			t.Fatalf("%s: unexpected reason %q", status, te.Error())
		}
		if !errors.Is(err, ErrEntryRejected) {
			t.Fatalf("%s: expected errors.Is(ErrEntryRejected)", status)
		}
	}
}

func TestCheckValidInfoTierAdvises(t *testing.T) {
	logger, buf := captureLogger()
	e, err := NewEntry(tocEntry(report(-5, StatusFIDOCertified), report(0, StatusUpdateAvailable)), testStatement(), "", WithLogger(logger))
	if err != nil {
		t.Fatalf("NewEntry error: %v", err)
	}

	verdict, err := e.CheckValid()
	if err != nil {
		t.Fatalf("expected UPDATE_AVAILABLE to be accepted: %v", err)
	}
	if verdict.Tier != TierInfo {
		t.Fatalf("expected info tier, got %v", verdict.Tier)
	}
	if verdict.Advisory != "Software Update is available: Test Security Key" {
		t.Fatalf("unexpected advisory %q", verdict.Advisory)
	}
	if !strings.Contains(buf.String(), "Test Security Key") {
		t.Fatalf("expected advisory log line with description, got %q", buf.String())
	}
}

func TestCheckValidNeutralDoesNotLog(t *testing.T) {
	logger, buf := captureLogger()
	e, err := NewEntry(tocEntry(report(-5, "SOMETHING_NEW")), testStatement(), "", WithLogger(logger))
	if err != nil {
		t.Fatalf("NewEntry error: %v", err)
	}
	if _, err := e.CheckValid(); err != nil {
		t.Fatalf("expected unknown status to be neutral: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected log output %q", buf.String())
	}
}

func TestCheckValidNoApplicableStatus(t *testing.T) {
	cases := map[string]*TOCEntry{
		"empty":      tocEntry(),
		"all future": tocEntry(report(1, StatusFIDOCertified), report(3, StatusRevoked)),
	}
	for name, toc := range cases {
		e, err := NewEntry(toc, testStatement(), "")
		if err != nil {
			t.Fatalf("%s: NewEntry error: %v", name, err)
		}
		_, err = e.CheckValid()
		var te *TrustError
		if !errors.As(err, &te) || te.Kind != KindNoApplicableStatus {
			t.Fatalf("%s: expected no applicable status, got %v", name, err)
		}
		if te.Reason != "Invalid MDS statusReports" {
			t.Fatalf("%s: unexpected reason %q", name, te.Reason)
		}
	}
}

func TestCheckValidRecordedFailureOverridesHistory(t *testing.T) {
	histories := []*TOCEntry{
		tocEntry(),
		tocEntry(report(-1, StatusFIDOCertified)),
		tocEntry(report(-1, StatusUpdateAvailable)),
		tocEntry(report(-1, StatusRevoked)),
	}
	for _, toc := range histories {
		e, err := NewEntry(toc, testStatement(), "upstream verification failed")
		if err != nil {
			t.Fatalf("NewEntry error: %v", err)
		}
		for i := 0; i < 2; i++ {
			_, err = e.CheckValid()
			var te *TrustError
			if !errors.As(err, &te) || te.Kind != KindRecordedFailure || te.Reason != "upstream verification failed" {
				t.Fatalf("expected recorded failure, got %v", err)
			}
		}
	}
}

func TestCheckValidAtBoundary(t *testing.T) {
	effective := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	e, err := NewEntry(tocEntry(StatusReport{EffectiveDate: effective, Status: StatusRevoked}), testStatement(), "")
	if err != nil {
		t.Fatalf("NewEntry error: %v", err)
	}

	if _, err := e.CheckValidAt(effective.Add(-time.Nanosecond)); err == nil || err.Error() != "Invalid MDS statusReports" {
		t.Fatalf("expected no applicable status before effective date, got %v", err)
	}
	if _, err := e.CheckValidAt(effective); err == nil || err.Error() != "Invalid MDS status: REVOKED" {
		t.Fatalf("expected revoked at effective instant, got %v", err)
	}
}

func TestCheckValidVerdictFollowsClock(t *testing.T) {
	toc := tocEntry(
		StatusReport{EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Status: StatusFIDOCertified},
		StatusReport{EffectiveDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Status: StatusUserKeyRemoteCompromise},
	)
	e, err := NewEntry(toc, testStatement(), "")
	if err != nil {
		t.Fatalf("NewEntry error: %v", err)
	}

	if _, err := e.CheckValidAt(time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("expected trust before compromise date: %v", err)
	}
	if _, err := e.CheckValidAt(time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC)); err == nil {
		t.Fatal("expected rejection after compromise date")
	}
}

func TestCheckValidConcurrent(t *testing.T) {
	logger, _ := captureLogger()
	e, err := NewEntry(tocEntry(report(-1, StatusUpdateAvailable)), testStatement(), "", WithLogger(logger))
	if err != nil {
		t.Fatalf("NewEntry error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.CheckValid(); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent CheckValid: %v", err)
	}
}

func TestClassifyStatus(t *testing.T) {
	if ClassifyStatus(StatusUpdateAvailable) != TierInfo {
		t.Fatal("expected UPDATE_AVAILABLE to be info tier")
	}
	if ClassifyStatus(StatusRevoked) != TierInvalid {
		t.Fatal("expected REVOKED to be invalid tier")
	}
	if ClassifyStatus(StatusFIDOCertifiedL2) != TierNeutral || ClassifyStatus("") != TierNeutral {
		t.Fatal("expected other statuses to be neutral")
	}
	if TierInvalid.String() != "invalid" {
		t.Fatalf("unexpected tier name %q", TierInvalid.String())
	}
}
