package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "X-Hydrosnap-Signature"

// Sign returns the signature header value for payload:
// "t=<unix>,v1=<hex hmac-sha256 of "<unix>.<payload>">".
func Sign(payload []byte, secret string, now time.Time) string {
	ts := now.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, computeHMAC(ts, payload, secret))
}

// Verify checks header against payload. Signatures older than tolerance
// are rejected; a tolerance of zero disables the age check.
func Verify(payload []byte, header, secret string, tolerance time.Duration, now time.Time) bool {
	var ts, v1 string
	for _, seg := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(seg), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			v1 = v
		}
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || v1 == "" {
		return false
	}
	if tolerance > 0 && now.Sub(time.Unix(unix, 0)).Abs() > tolerance {
		return false
	}
	return hmac.Equal([]byte(v1), []byte(computeHMAC(unix, payload, secret)))
}

func computeHMAC(ts int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
