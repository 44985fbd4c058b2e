package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerTools(srv *server.MCPServer, svc *Service) {
	registerGetStatusTool(srv, svc)
	registerListDevicesTool(srv, svc)
	registerConnectTool(srv, svc)
	registerDisconnectTool(srv, svc)
	registerSetExitNodeTool(srv, svc)
	registerListProfilesTool(srv, svc)
	registerAddProfileTool(srv, svc)
	registerRemoveProfileTool(srv, svc)
	registerSwitchProfileTool(srv, svc)
}

func registerGetStatusTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_status",
		mcp.WithDescription("Poll the mesh daemon and return the connection status."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dto, err := svc.Status(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerListDevicesTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_devices",
		mcp.WithDescription("List every device on the mesh network, this device first."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		devices, err := svc.Devices(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"devices": devices,
			"count":   len(devices),
		})
	})
}

func registerConnectTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"connect",
		mcp.WithDescription("Join the mesh network. May leave the daemon waiting on browser authentication."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dto, err := svc.Connect(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerDisconnectTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"disconnect",
		mcp.WithDescription("Leave the mesh network."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dto, err := svc.Disconnect(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerSetExitNodeTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"set_exit_node",
		mcp.WithDescription("Route traffic through a device, or clear the exit node."),
		mcp.WithString("id",
			mcp.Description("Device identifier to route through. Empty clears the exit node."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("id", "")
		dto, err := svc.SetExitNode(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerListProfilesTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_profiles",
		mcp.WithDescription("List saved account profiles with the active one marked."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		profiles, err := svc.Profiles(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"profiles": profiles,
			"count":    len(profiles),
		})
	})
}

func registerAddProfileTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"add_profile",
		mcp.WithDescription("Save a new account profile nickname."),
		mcp.WithString("nickname",
			mcp.Required(),
			mcp.Description("Nickname for the new profile."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nickname, err := request.RequireString("nickname")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.AddProfile(ctx, nickname)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerRemoveProfileTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"remove_profile",
		mcp.WithDescription("Delete a saved account profile."),
		mcp.WithString("nickname",
			mcp.Required(),
			mcp.Description("Nickname of the profile to remove."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nickname, err := request.RequireString("nickname")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := svc.RemoveProfile(ctx, nickname); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"removed": nickname})
	})
}

func registerSwitchProfileTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"switch_profile",
		mcp.WithDescription("Switch the daemon to a saved account profile and return the fresh status."),
		mcp.WithString("nickname",
			mcp.Required(),
			mcp.Description("Nickname of the profile to switch to."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nickname, err := request.RequireString("nickname")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.SwitchProfile(ctx, nickname)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func toJSONResult(data any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return result, nil
}
