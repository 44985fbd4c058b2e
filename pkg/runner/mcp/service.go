// Package mcp exposes mesh status and control through the Model Context
// Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/meshctl/pkg/daemon"
	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/profile"
)

// Service coordinates engine-backed operations shared by the MCP server.
type Service struct {
	Engine *engine.Engine
	Store  *profile.Store
	Client *daemon.Client
}

// StatusDTO is a transport-friendly projection of the engine view.
type StatusDTO struct {
	State      string `json:"state"`
	Identity   string `json:"identity,omitempty"`
	ExitNodeID string `json:"exitNodeId,omitempty"`
	Known      bool   `json:"known"`
	Seq        uint64 `json:"seq"`
	LastError  string `json:"lastError,omitempty"`
}

// DeviceDTO is a transport-friendly projection of a roster device.
type DeviceDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	DNSName        string   `json:"dnsName,omitempty"`
	Addresses      []string `json:"addresses,omitempty"`
	Online         bool     `json:"online"`
	Self           bool     `json:"self"`
	ExitNodeOption bool     `json:"exitNodeOption"`
	ActiveExitNode bool     `json:"activeExitNode"`
}

// ProfileDTO is a transport-friendly projection of a stored profile.
type ProfileDTO struct {
	Nickname string `json:"nickname"`
	Identity string `json:"identity,omitempty"`
	Active   bool   `json:"active"`
}

// NewService builds a service over the engine, profile store, and client.
func NewService(eng *engine.Engine, store *profile.Store, client *daemon.Client) *Service {
	return &Service{Engine: eng, Store: store, Client: client}
}

// Status polls once and returns the fresh view. A poll failure is reported
// inside the DTO, not as an error, so callers still see last known good.
func (s *Service) Status(ctx context.Context) (StatusDTO, error) {
	if s.Engine == nil {
		return StatusDTO{}, errors.New("engine is not configured")
	}
	_ = s.Engine.PollNow(ctx)
	return statusDTO(s.Engine.Snapshot()), nil
}

// Devices polls once and returns the roster, self first.
func (s *Service) Devices(ctx context.Context) ([]DeviceDTO, error) {
	if s.Engine == nil {
		return nil, errors.New("engine is not configured")
	}
	_ = s.Engine.PollNow(ctx)
	v := s.Engine.Snapshot()

	devices := v.Roster.Devices()
	out := make([]DeviceDTO, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceDTO{
			ID:             d.ID,
			Name:           d.Name,
			DNSName:        d.DNSName,
			Addresses:      d.IPs,
			Online:         d.Online,
			Self:           d.Self,
			ExitNodeOption: d.ExitNodeOption,
			ActiveExitNode: d.ActiveExitNode,
		})
	}
	return out, nil
}

// Connect joins the mesh and returns the resulting status.
func (s *Service) Connect(ctx context.Context) (StatusDTO, error) {
	if s.Engine == nil {
		return StatusDTO{}, errors.New("engine is not configured")
	}
	err := s.Engine.Connect(ctx)
	var timeout *daemon.TimeoutError
	if errors.As(err, &timeout) {
		// Browser authentication pending; the follow-up poll reports
		// connecting.
		err = nil
	}
	if err != nil {
		return StatusDTO{}, err
	}
	return statusDTO(s.Engine.Snapshot()), nil
}

// Disconnect leaves the mesh and returns the resulting status.
func (s *Service) Disconnect(ctx context.Context) (StatusDTO, error) {
	if s.Engine == nil {
		return StatusDTO{}, errors.New("engine is not configured")
	}
	if err := s.Engine.Disconnect(ctx); err != nil {
		return StatusDTO{}, err
	}
	return statusDTO(s.Engine.Snapshot()), nil
}

// SetExitNode routes traffic through the given device ID, or clears the
// exit node when id is empty.
func (s *Service) SetExitNode(ctx context.Context, id string) (StatusDTO, error) {
	if s.Engine == nil {
		return StatusDTO{}, errors.New("engine is not configured")
	}
	if err := s.Engine.SetExitNode(ctx, id); err != nil {
		return StatusDTO{}, err
	}
	return statusDTO(s.Engine.Snapshot()), nil
}

// Profiles returns the stored profiles with the active one marked.
func (s *Service) Profiles(ctx context.Context) ([]ProfileDTO, error) {
	if s.Store == nil {
		return nil, errors.New("profile store is not configured")
	}

	active := ""
	if s.Engine != nil {
		active = s.Engine.Snapshot().Status.Identity
	}

	stored := s.Store.List()
	out := make([]ProfileDTO, 0, len(stored))
	for _, p := range stored {
		dto := ProfileDTO{Nickname: p.Nickname}
		if p.Identity != nil {
			dto.Identity = *p.Identity
			dto.Active = active != "" && *p.Identity == active
		}
		out = append(out, dto)
	}
	return out, nil
}

// AddProfile saves a new profile nickname.
func (s *Service) AddProfile(_ context.Context, nickname string) (ProfileDTO, error) {
	if s.Store == nil {
		return ProfileDTO{}, errors.New("profile store is not configured")
	}
	if err := s.Store.Add(nickname); err != nil {
		return ProfileDTO{}, err
	}
	return ProfileDTO{Nickname: nickname}, nil
}

// RemoveProfile deletes a stored profile.
func (s *Service) RemoveProfile(_ context.Context, nickname string) error {
	if s.Store == nil {
		return errors.New("profile store is not configured")
	}
	return s.Store.Remove(nickname)
}

// SwitchProfile switches daemon accounts and returns the fresh status.
func (s *Service) SwitchProfile(ctx context.Context, nickname string) (StatusDTO, error) {
	if s.Store == nil || s.Engine == nil || s.Client == nil {
		return StatusDTO{}, errors.New("profile switching requires store, engine, and client")
	}
	if err := s.Store.Switch(ctx, nickname, s.Client, s.Engine); err != nil {
		return StatusDTO{}, fmt.Errorf("switch profile: %w", err)
	}
	return statusDTO(s.Engine.Snapshot()), nil
}

func statusDTO(v engine.View) StatusDTO {
	out := StatusDTO{
		State:      string(v.Status.State),
		Identity:   v.Status.Identity,
		ExitNodeID: v.Status.ExitNodeID,
		Known:      v.Known,
		Seq:        v.Seq,
	}
	if v.LastErr != nil {
		out.LastError = v.LastErr.Error()
	}
	return out
}
