package application

import (
	"context"

	"lspquotes-service/internal/domain"
)

//go:generate mockgen -package=application -destination=mock_lsp_client_test.go -source=lsp_client.go LSPClient

// LSPClient is the two-call LSPS1 handshake against one provider.
type LSPClient interface {
	GetInfo(ctx context.Context, p domain.Provider) (domain.Capabilities, error)
	CreateOrder(ctx context.Context, p domain.Provider, channelSizeSat int64, caps domain.Capabilities) (domain.OrderQuote, error)
}
