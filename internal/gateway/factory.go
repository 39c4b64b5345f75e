package gateway

import (
	"github.com/codecraftwt/loan-backend-sub000/internal/config"
)

// Gateway is the combined capability the services consume.
type Gateway interface {
	OrderCreator
	SignatureVerifier
}

func NewFromConfig(cfg config.Config) (Gateway, error) {
	if cfg.GatewayKeyID == "" || cfg.GatewayKeySecret == "" {
		return NewStubGateway(), nil
	}
	return NewClient(cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayBaseURL)
}
