package metadata

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log"
	"testing"
	"time"
)

func testStatement() Statement {
	return Statement{
		"description": "Test Security Key",
		"aaguid":      "0132d110-bf4e-4208-a403-ab4f5f12efe5",
		"schema":      float64(3),
		"upv":         []any{map[string]any{"major": float64(1), "minor": float64(1)}},
	}
}

func encodeBlob(t *testing.T, statement Statement) []byte {
	t.Helper()

	data, err := json.Marshal(statement)
	if err != nil {
		t.Fatalf("marshal statement: %v", err)
	}
	return []byte(base64.StdEncoding.EncodeToString(data))
}

func referenceHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func day(offset int) time.Time {
	return StartOfDay(time.Now().UTC()).AddDate(0, 0, offset)
}

func report(offset int, status string) StatusReport {
	return StatusReport{EffectiveDate: day(offset), Status: status}
}

func tocEntry(reports ...StatusReport) *TOCEntry {
	return &TOCEntry{
		AAGUID:        "0132d110-bf4e-4208-a403-ab4f5f12efe5",
		StatusReports: reports,
	}
}

func captureLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.New(&buf, "", 0), &buf
}
