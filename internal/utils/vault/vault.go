package vault

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
)

// Client reads runtime secrets from Vault's KV store. It is used only when
// the deployment provides a Vault address; local development falls back to
// plain environment variables.
type Client struct {
	addr         string
	kvSecretPath string
	role         string
	token        string
}

func New(addr, kvSecretPath, role string) (*Client, error) {
	vc := &Client{
		addr:         addr,
		role:         role,
		kvSecretPath: kvSecretPath,
	}

	token, err := vc.login()
	if err != nil {
		return nil, err
	}
	vc.token = token
	return vc, nil
}

func (vc *Client) login() (string, error) {
	k8sToken, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/token")
	if err != nil {
		return "", fmt.Errorf("failed to read service account token: %v", err)
	}

	client := resty.New()
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"jwt":  string(k8sToken),
			"role": vc.role,
		}).
		Post(fmt.Sprintf("%s/v1/auth/kubernetes/login", vc.addr))
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault authentication failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var result struct {
		Errors []string `json:"errors"`
		Auth   *struct {
			ClientToken string `json:"client_token"`
		} `json:"auth"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse vault response: %v", err)
	}
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("vault authentication error: %v", result.Errors)
	}
	if result.Auth == nil || result.Auth.ClientToken == "" {
		return "", fmt.Errorf("vault response carries no client token")
	}

	return result.Auth.ClientToken, nil
}

// GetKV retrieves one secret value from the configured KV path.
func (vc *Client) GetKV(secretKey string) (string, error) {
	client := resty.New()
	resp, err := client.R().
		SetHeader("X-Vault-Token", vc.token).
		Get(fmt.Sprintf("%s/v1/%s", vc.addr, vc.kvSecretPath))
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault KV get failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var result struct {
		Errors []string `json:"errors"`
		Data   struct {
			Data map[string]string `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse vault response: %v", err)
	}
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("vault KV error: %v", result.Errors)
	}

	value, ok := result.Data.Data[secretKey]
	if !ok {
		return "", fmt.Errorf("secret %s not found at %s", secretKey, vc.kvSecretPath)
	}
	return value, nil
}
