package metadata

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTOCEntryJSONDecodesEffectiveDates(t *testing.T) {
	doc := `{
		"aaguid": "0132d110-bf4e-4208-a403-ab4f5f12efe5",
		"hash": "abc",
		"statusReports": [
			{"status": "FIDO_CERTIFIED", "effectiveDate": "2019-01-04", "certificationDescriptor": "Key"},
			{"status": "UPDATE_AVAILABLE", "effectiveDate": "2020-07-15"}
		],
		"timeOfLastStatusChange": "2020-07-15"
	}`

	var entry TOCEntry
	if err := json.Unmarshal([]byte(doc), &entry); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(entry.StatusReports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(entry.StatusReports))
	}
	want := time.Date(2019, 1, 4, 0, 0, 0, 0, time.UTC)
	if got := entry.StatusReports[0].EffectiveDate; !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("unexpected effective date %v", got)
	}
	if entry.StatusReports[0].CertificationDescriptor != "Key" {
		t.Fatalf("unexpected descriptor %q", entry.StatusReports[0].CertificationDescriptor)
	}
	if entry.Key() != "0132d110-bf4e-4208-a403-ab4f5f12efe5" {
		t.Fatalf("unexpected key %q", entry.Key())
	}
}

func TestStatusReportRejectsMalformedDate(t *testing.T) {
	var r StatusReport
	err := json.Unmarshal([]byte(`{"status":"REVOKED","effectiveDate":"15/07/2020"}`), &r)
	if err == nil || !strings.Contains(err.Error(), "effectiveDate") {
		t.Fatalf("expected effectiveDate error, got %v", err)
	}
}

func TestStatusReportMarshalUsesCalendarDate(t *testing.T) {
	data, err := json.Marshal(StatusReport{EffectiveDate: time.Date(2021, 2, 3, 0, 0, 0, 0, time.UTC), Status: StatusRevoked})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if !strings.Contains(string(data), `"effectiveDate":"2021-02-03"`) {
		t.Fatalf("unexpected encoding %s", data)
	}
}

func TestTOCEntryKeyFallbacks(t *testing.T) {
	if k := (&TOCEntry{AAID: "4e4e#4005"}).Key(); k != "4e4e#4005" {
		t.Fatalf("expected aaid key, got %q", k)
	}
	if k := (&TOCEntry{AttestationCertificateKeyIdentifiers: []string{"7c0903708b87115b0b422def3138c3c864e44573"}}).Key(); k != "7c0903708b87115b0b422def3138c3c864e44573" {
		t.Fatalf("expected key identifier, got %q", k)
	}
	if k := (&TOCEntry{}).Key(); k != "" {
		t.Fatalf("expected empty key, got %q", k)
	}
}

func TestStatementSchemaVariants(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{float64(3), 3},
		{3, 3},
		{json.Number("4"), 4},
		{"3", 2},
		{float64(2.5), 2},
		{nil, 2},
	}
	for _, tc := range cases {
		s := Statement{"schema": tc.in}
		if got := s.Schema(); got != tc.want {
			t.Fatalf("Schema(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
