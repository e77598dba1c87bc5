package billing

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
)

// webhookTolerance bounds the age of a signed webhook timestamp.
const webhookTolerance = 5 * time.Minute

// VerifyPolarWebhookSignature checks a Standard Webhooks signature as sent
// by Polar in the webhook-id, webhook-timestamp and webhook-signature
// headers. The header may carry several space separated "v1,<base64>"
// entries; any match is accepted. The timestamp is checked against now.
func VerifyPolarWebhookSignature(payload []byte, msgID, timestamp, signatureHeader, webhookSecret string, now time.Time) bool {
	msgID = strings.TrimSpace(msgID)
	timestamp = strings.TrimSpace(timestamp)
	if msgID == "" || timestamp == "" || strings.TrimSpace(signatureHeader) == "" {
		return false
	}
	wh := polarWebhook(webhookSecret)
	if wh == nil {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	sent := time.Unix(ts, 0)
	if now.Sub(sent) > webhookTolerance || sent.Sub(now) > webhookTolerance {
		return false
	}

	headers := http.Header{}
	headers.Set(standardwebhooks.HeaderWebhookID, msgID)
	headers.Set(standardwebhooks.HeaderWebhookTimestamp, timestamp)
	headers.Set(standardwebhooks.HeaderWebhookSignature, strings.Join(strings.Fields(signatureHeader), " "))
	return wh.VerifyIgnoringTimestamp(payload, headers) == nil
}

// SignPolarWebhook produces a webhook-signature header value. Used by tests
// and the local webhook simulator.
func SignPolarWebhook(payload []byte, msgID, timestamp, webhookSecret string) string {
	wh := polarWebhook(webhookSecret)
	ts, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if wh == nil || err != nil {
		return ""
	}
	sig, err := wh.Sign(msgID, time.Unix(ts, 0), payload)
	if err != nil {
		return ""
	}
	return sig
}

// polarWebhook builds a verifier. "whsec_" prefixed secrets are base64
// decoded; other values are used as raw bytes. Empty secrets yield nil.
func polarWebhook(secret string) *standardwebhooks.Webhook {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	if strings.HasPrefix(secret, "whsec_") {
		if wh, err := standardwebhooks.NewWebhook(secret); err == nil {
			return wh
		}
	}
	wh, _ := standardwebhooks.NewWebhookRaw([]byte(secret))
	return wh
}
