// ABOUTME: MCP resources exposing BlinkPay data
// ABOUTME: Bank metadata read live from the Debit API

package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harper/blinkpay-mcp/pkg/debit"
	"github.com/mark3labs/mcp-go/mcp"
)

// BanksResourceURI is the URI of the supported banks resource
const BanksResourceURI = "blinkpay://meta/banks"

// registerResources registers all MCP resources
func (s *Server) registerResources() {
	s.mcp.AddResource(
		mcp.NewResource(
			BanksResourceURI,
			"Supported Banks",
			mcp.WithResourceDescription("Banks supported by the Debit API with their flows, features and payment limits"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleBanksResource,
	)
}

func (s *Server) handleBanksResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	banks, err := s.debit.GetMeta(ctx, debit.CallOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bank metadata: %w", err)
	}

	data, err := json.MarshalIndent(map[string]interface{}{
		"bank_count": len(banks),
		"banks":      banks,
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
