package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ruteri/weighted-membership-registry/api"
	"github.com/ruteri/weighted-membership-registry/identity"
	"github.com/ruteri/weighted-membership-registry/interfaces"
	"github.com/ruteri/weighted-membership-registry/registry"
)

// ErrNoSigner is returned by mutations of a client created without a signer.
var ErrNoSigner = errors.New("client has no signer")

// RegistryClient talks to the registry HTTP API. Mutations are signed with
// the client's signer; queries are unauthenticated.
type RegistryClient struct {
	serverAddr string
	signer     *identity.Signer
	httpClient *http.Client
}

// NewRegistryClient creates a client for the server at serverAddr
// (e.g. "http://localhost:8080"). signer may be nil for a read-only client.
func NewRegistryClient(serverAddr string, signer *identity.Signer, timeout ...time.Duration) *RegistryClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &RegistryClient{
		serverAddr: strings.TrimRight(serverAddr, "/"),
		signer:     signer,
		httpClient: &http.Client{Timeout: clientTimeout},
	}
}

// Create constructs a registry. A nil admin makes the signer the admin.
func (c *RegistryClient) Create(ctx context.Context, admin *interfaces.Address, members []interfaces.Member) (*api.MutationResponse, error) {
	var resp api.MutationResponse
	err := c.signed(ctx, "/api/registries", api.CreateRequest{Admin: admin, Members: members}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns the addresses of all hosted registries.
func (c *RegistryClient) List(ctx context.Context) ([]interfaces.Address, error) {
	var resp api.RegistriesResponse
	if err := c.get(ctx, "/api/registries", &resp); err != nil {
		return nil, err
	}
	return resp.Registries, nil
}

func (c *RegistryClient) Admin(ctx context.Context, id interfaces.Address) (*api.AdminResponse, error) {
	var resp api.AdminResponse
	if err := c.get(ctx, fmt.Sprintf("/api/registries/%s/admin", id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RegistryClient) Members(ctx context.Context, id interfaces.Address) (*api.MembersResponse, error) {
	var resp api.MembersResponse
	if err := c.get(ctx, fmt.Sprintf("/api/registries/%s/members", id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Member looks up one member. A miss returns an error matching
// interfaces.ErrNoMember.
func (c *RegistryClient) Member(ctx context.Context, id, member interfaces.Address) (*interfaces.Member, error) {
	var resp interfaces.Member
	if err := c.get(ctx, fmt.Sprintf("/api/registries/%s/members/%s", id, member), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RegistryClient) TotalWeight(ctx context.Context, id interfaces.Address) (*api.TotalWeightResponse, error) {
	var resp api.TotalWeightResponse
	if err := c.get(ctx, fmt.Sprintf("/api/registries/%s/total_weight", id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns up to limit snapshots, newest first. A non-positive limit
// leaves the choice to the server.
func (c *RegistryClient) History(ctx context.Context, id interfaces.Address, limit int) ([]*registry.Snapshot, error) {
	path := fmt.Sprintf("/api/registries/%s/history", id)
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}

	var resp api.HistoryResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Snapshots, nil
}

// UpdateAdmin transfers the admin role. The server rejects the call if the
// registry is no longer at expectedSequence. A nil expectedSequence binds the
// request to the sequence the registry is at right now.
func (c *RegistryClient) UpdateAdmin(ctx context.Context, id, newAdmin interfaces.Address, expectedSequence *uint64) (*api.MutationResponse, error) {
	expectedSequence, err := c.bindSequence(ctx, id, expectedSequence)
	if err != nil {
		return nil, err
	}

	req := api.UpdateAdminRequest{
		Registry:         id,
		NewAdmin:         newAdmin,
		ExpectedSequence: expectedSequence,
	}

	var resp api.MutationResponse
	if err := c.signed(ctx, fmt.Sprintf("/api/registries/%s/admin", id), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateMembers applies upserts, then removals. expectedSequence is handled
// as in UpdateAdmin.
func (c *RegistryClient) UpdateMembers(ctx context.Context, id interfaces.Address, upserts []interfaces.Member, removals []interfaces.Address, expectedSequence *uint64) (*api.MutationResponse, error) {
	expectedSequence, err := c.bindSequence(ctx, id, expectedSequence)
	if err != nil {
		return nil, err
	}

	req := api.UpdateMembersRequest{
		Registry:         id,
		Upserts:          upserts,
		Removals:         removals,
		ExpectedSequence: expectedSequence,
	}

	var resp api.MutationResponse
	if err := c.signed(ctx, fmt.Sprintf("/api/registries/%s/members", id), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// bindSequence returns expected, or the current sequence of id when expected is nil.
func (c *RegistryClient) bindSequence(ctx context.Context, id interfaces.Address, expected *uint64) (*uint64, error) {
	if expected != nil {
		return expected, nil
	}
	if c.signer == nil {
		return nil, ErrNoSigner
	}

	admin, err := c.Admin(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read current sequence: %w", err)
	}
	return &admin.Sequence, nil
}

func (c *RegistryClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverAddr+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *RegistryClient) signed(ctx context.Context, path string, body, out any) error {
	if c.signer == nil {
		return ErrNoSigner
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverAddr+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.signer.SignRequest(req, data); err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	return c.do(req, out)
}

// do sends req and decodes the response into out. Error bodies are turned
// back into errors matching the interfaces sentinels.
func (c *RegistryClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, api.MaxBodySize))
		var errResp api.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Code == "" {
			return fmt.Errorf("request to %s failed with code %d: %s", req.URL.Path, resp.StatusCode, string(body))
		}
		return errResp.AsError()
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}
