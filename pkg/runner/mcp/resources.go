package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerResources(srv *server.MCPServer, svc *Service) {
	registerStatusResource(srv, svc)
	registerDevicesResource(srv, svc)
	registerProfilesResource(srv, svc)
}

func registerStatusResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"meshctl://status",
		"Connection Status",
		mcp.WithResourceDescription("Current mesh connection state, identity, and exit node."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dto, err := svc.Status(ctx)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, dto)
	})
}

func registerDevicesResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"meshctl://devices",
		"Device Roster",
		mcp.WithResourceDescription("Every device on the mesh network."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		devices, err := svc.Devices(ctx)
		if err != nil {
			return nil, err
		}
		payload := map[string]any{
			"devices": devices,
			"count":   len(devices),
		}
		return encodeResourceJSON(request.Params.URI, payload)
	})
}

func registerProfilesResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"meshctl://profiles",
		"Account Profiles",
		mcp.WithResourceDescription("Saved account profiles and which one is active."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		profiles, err := svc.Profiles(ctx)
		if err != nil {
			return nil, err
		}
		payload := map[string]any{
			"profiles": profiles,
			"count":    len(profiles),
		}
		return encodeResourceJSON(request.Params.URI, payload)
	})
}

func encodeResourceJSON(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
