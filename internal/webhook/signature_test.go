package webhook

import "testing"

func TestSignMatchesReferenceVector(t *testing.T) {
	payload := []byte(`{"event_type":"review.created","timestamp":"2026-01-02T15:04:05Z","data":{"bookId":"b1","rating":5}}`)
	const secret = "whsec_test"
	const want = "038ea65b8e23f14f306ba070b46618b0a26233cc9cc06f89da9276f4040e13ee"

	if got := Sign(secret, payload); got != want {
		t.Fatalf("signature mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestVerifySignatureDetectsTampering(t *testing.T) {
	payload := []byte(`{"event_type":"order.created","timestamp":"2026-01-02T15:04:05Z","data":{"orderId":"o1"}}`)
	const secret = "whsec_test"
	signature := Sign(secret, payload)

	if !VerifySignature(secret, payload, signature) {
		t.Fatal("expected untouched payload to verify")
	}

	for i := range payload {
		tampered := append([]byte(nil), payload...)
		tampered[i] ^= 0x01
		if VerifySignature(secret, tampered, signature) {
			t.Fatalf("expected verification to fail after flipping byte %d", i)
		}
	}

	if VerifySignature("other-secret", payload, signature) {
		t.Fatal("expected verification to fail under a different secret")
	}
}
