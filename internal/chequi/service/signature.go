package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
)

const (
	// maxScanAge rejects offline scans captured more than a day ago.
	maxScanAge = 24 * time.Hour

	// maxClockSkew tolerates a device clock slightly ahead of the server.
	maxClockSkew = 60 * time.Second

	dayMillis = int64(24 * time.Hour / time.Millisecond)
)

// Signature verification failures. All of them mean the scan is an
// integrity failure, never an access denial.
var (
	ErrSignatureExpired   = errors.New("scan captured too long ago")
	ErrSignatureFuture    = errors.New("scan captured in the future")
	ErrSignatureMalformed = errors.New("signature is not valid hex")
	ErrSignatureMismatch  = errors.New("signature does not match")
)

// KeyDeriver produces the day-scoped symmetric key used to sign and verify
// offline scans. Pluggable so the key-derivation policy (and its storage)
// can change without touching verification logic.
type KeyDeriver interface {
	DeriveDayKey(callerID string, dayBucket int64) []byte
}

// DayKeyDeriver derives a 32-byte key with HKDF-SHA256 over the caller id
// and the day bucket. With an empty Secret the key is derivable by any
// client that knows the caller id and the date — that matches the upstream
// scheme and is a documented limitation, not an oversight. Deployments
// that want tamper resistance set a server-held Secret, which is mixed
// into the input key material.
type DayKeyDeriver struct {
	Secret []byte
}

func (d *DayKeyDeriver) DeriveDayKey(callerID string, dayBucket int64) []byte {
	ikm := make([]byte, 0, len(d.Secret)+len(callerID)+24)
	ikm = append(ikm, d.Secret...)
	ikm = append(ikm, fmt.Sprintf("%s:%d", callerID, dayBucket)...)

	h := hkdf.New(sha256.New, ikm, nil, []byte("chequi-offline-scan"))
	out := make([]byte, 32)
	if _, err := io.ReadFull(h, out); err != nil {
		// hkdf only errors past its output limit; 32 bytes never hits it.
		panic(err)
	}
	return out
}

// Verifier checks HMAC proofs attached to scans captured offline.
type Verifier struct {
	keys KeyDeriver
	now  func() time.Time
}

func NewVerifier(keys KeyDeriver) *Verifier {
	return &Verifier{keys: keys, now: func() time.Time { return time.Now().UTC() }}
}

// Verify returns nil only when the scan is fresh and the signature matches.
// Freshness is checked first and independently: a mathematically correct
// MAC on a stale capture is still rejected.
func (v *Verifier) Verify(ticketCode, controlTypeID string, capturedAtMillis int64, callerID, signature string) error {
	now := v.now()
	captured := time.UnixMilli(capturedAtMillis)

	if now.Sub(captured) > maxScanAge {
		return ErrSignatureExpired
	}
	if captured.Sub(now) > maxClockSkew {
		return ErrSignatureFuture
	}

	provided, err := hex.DecodeString(signature)
	if err != nil || len(provided) == 0 {
		return ErrSignatureMalformed
	}

	expected := computeMAC(v.keys, ticketCode, controlTypeID, capturedAtMillis, callerID)
	if !hmac.Equal(provided, expected) {
		return ErrSignatureMismatch
	}
	return nil
}

// Signer produces the proof attached to a scan when it is queued offline.
type Signer struct {
	keys KeyDeriver
}

func NewSigner(keys KeyDeriver) *Signer {
	return &Signer{keys: keys}
}

func (s *Signer) Sign(ticketCode, controlTypeID string, capturedAtMillis int64, callerID string) string {
	return hex.EncodeToString(computeMAC(s.keys, ticketCode, controlTypeID, capturedAtMillis, callerID))
}

func computeMAC(keys KeyDeriver, ticketCode, controlTypeID string, capturedAtMillis int64, callerID string) []byte {
	key := keys.DeriveDayKey(callerID, capturedAtMillis/dayMillis)
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s|%s|%d|%s", ticketCode, controlTypeID, capturedAtMillis, callerID)
	return mac.Sum(nil)
}
