package metadata

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidTOC is returned when a signed catalog cannot be verified or decoded.
var ErrInvalidTOC = errors.New("invalid metadata TOC")

// TOCEntry is one catalog record for an authenticator model.
type TOCEntry struct {
	AAID                                 string         `json:"aaid,omitempty"`
	AAGUID                               string         `json:"aaguid,omitempty"`
	AttestationCertificateKeyIdentifiers []string       `json:"attestationCertificateKeyIdentifiers,omitempty"`
	Hash                                 string         `json:"hash,omitempty"`
	URL                                  string         `json:"url,omitempty"`
	StatusReports                        []StatusReport `json:"statusReports"`
	TimeOfLastStatusChange               string         `json:"timeOfLastStatusChange,omitempty"`
}

// Key returns the identifier the catalog indexes this entry by: the AAGUID,
// then the AAID, then the first attestation certificate key identifier.
func (e *TOCEntry) Key() string {
	switch {
	case e.AAGUID != "":
		return e.AAGUID
	case e.AAID != "":
		return e.AAID
	case len(e.AttestationCertificateKeyIdentifiers) > 0:
		return e.AttestationCertificateKeyIdentifiers[0]
	default:
		return ""
	}
}

func (e *TOCEntry) clone() *TOCEntry {
	out := *e
	out.AttestationCertificateKeyIdentifiers = append([]string(nil), e.AttestationCertificateKeyIdentifiers...)
	out.StatusReports = make([]StatusReport, len(e.StatusReports))
	for i, r := range e.StatusReports {
		r.EffectiveDate = StartOfDay(r.EffectiveDate)
		out.StatusReports[i] = r
	}
	return &out
}

// TOC is the decoded payload of a metadata service catalog.
type TOC struct {
	LegalHeader string     `json:"legalHeader,omitempty"`
	No          int        `json:"no"`
	NextUpdate  string     `json:"nextUpdate"`
	Entries     []TOCEntry `json:"entries"`
}

type tocClaims struct {
	TOC
	jwt.RegisteredClaims
}

var tocSigningMethods = []string{
	jwt.SigningMethodES256.Alg(),
	jwt.SigningMethodRS256.Alg(),
	jwt.SigningMethodPS256.Alg(),
	jwt.SigningMethodEdDSA.Alg(),
}

// DecodeTOC verifies a signed catalog with keyFunc and returns its payload.
// Resolving the signing key (certificate chains, key stores) is the caller's job.
func DecodeTOC(token string, keyFunc jwt.Keyfunc) (*TOC, error) {
	if keyFunc == nil {
		return nil, fmt.Errorf("%w: nil key function", ErrInvalidTOC)
	}

	claims := &tocClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods(tocSigningMethods))
	parsed, err := parser.ParseWithClaims(token, claims, keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTOC, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidTOC
	}

	toc := claims.TOC
	return &toc, nil
}

// EncodeTOC signs toc. It exists for tooling and tests that need to produce
// catalogs; production catalogs are published by the metadata service.
func EncodeTOC(toc *TOC, method jwt.SigningMethod, key any) (string, error) {
	if toc == nil {
		return "", fmt.Errorf("%w: nil TOC", ErrInvalidTOC)
	}
	return jwt.NewWithClaims(method, tocClaims{TOC: *toc}).SignedString(key)
}
