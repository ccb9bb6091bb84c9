package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// instanceConfig is the payload served by an instance's config endpoint.
type instanceConfig struct {
	EnvironmentConfigURL string `json:"environment_config_url"`
	DirectoryAPI         string `json:"directory_api"`
	PortalAPI            string `json:"portal_api"`
	CollaborationAddress string `json:"http_collaboration_service_address"`
	IdentityAPI          string `json:"identity_api"`
}

// DiscoverServices fetches an instance's service URLs from its config
// endpoint, used by `lumoctl config set` when provisioning a profile.
func DiscoverServices(ctx context.Context, client *http.Client, configURL string) (Services, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, configURL, nil)
	if err != nil {
		return Services{}, errors.Wrap(err, "config request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return Services{}, errors.Wrap(err, "fetch instance config")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Services{}, errors.Errorf("instance config returned status %d", resp.StatusCode)
	}
	var ic instanceConfig
	if err := json.NewDecoder(resp.Body).Decode(&ic); err != nil {
		return Services{}, errors.Wrap(err, "decode instance config")
	}
	if ic.DirectoryAPI == "" {
		return Services{}, fmt.Errorf("instance config at %s has no directory_api", configURL)
	}
	return Services{
		Config:    ic.EnvironmentConfigURL,
		Directory: ic.DirectoryAPI,
		Portal:    ic.PortalAPI,
		Collab:    ic.CollaborationAddress,
		Identity:  ic.IdentityAPI,
	}, nil
}
