package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func signPayment(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "topsecret"
	sig := signPayment(secret, "order-1", "pay-1")

	if !verifySignature(secret, "order-1", "pay-1", sig) {
		t.Fatalf("valid signature must verify")
	}
	if verifySignature(secret, "order-1", "pay-2", sig) {
		t.Fatalf("signature over a different payment must fail")
	}
	if verifySignature("wrong", "order-1", "pay-1", sig) {
		t.Fatalf("signature keyed with another secret must fail")
	}
	if verifySignature(secret, "", "pay-1", sig) {
		t.Fatalf("empty order id must fail")
	}
	if verifySignature(secret, "order-1", "pay-1", "") {
		t.Fatalf("empty signature must fail")
	}
}

func TestClientVerify(t *testing.T) {
	c, err := NewClient("key-id", "topsecret", "https://gateway.example")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	sig := signPayment("topsecret", "order-1", "pay-1")
	if !c.Verify("order-1", "pay-1", sig) {
		t.Fatalf("client must verify against its own secret")
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient("", "secret", "https://gateway.example"); err == nil {
		t.Fatalf("missing key id must be rejected")
	}
	if _, err := NewClient("key", "", "https://gateway.example"); err == nil {
		t.Fatalf("missing secret must be rejected")
	}
	if _, err := NewClient("key", "secret", ""); err == nil {
		t.Fatalf("missing base url must be rejected")
	}
}

func TestStubGateway(t *testing.T) {
	g := NewStubGateway()

	id, err := g.CreateOrder(context.Background(), 1500, "INR", "plan-purchase", nil)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !strings.HasPrefix(id, "order_stub_") {
		t.Fatalf("unexpected stub order id %q", id)
	}

	if _, err := g.CreateOrder(context.Background(), 0, "INR", "plan-purchase", nil); err == nil {
		t.Fatalf("non-positive amount must be rejected")
	}

	if !g.Verify("order-1", "pay-1", "anything") {
		t.Fatalf("stub accepts any well-formed signature")
	}
	if g.Verify("", "pay-1", "anything") || g.Verify("order-1", "", "anything") || g.Verify("order-1", "pay-1", "") {
		t.Fatalf("stub still rejects blank fields")
	}
}
