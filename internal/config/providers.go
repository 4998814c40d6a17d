package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"lspquotes-service/internal/domain"

	"github.com/spf13/viper"
)

type providerFile struct {
	Providers []providerEntry `mapstructure:"providers"`
}

type providerEntry struct {
	ID         string   `mapstructure:"id"`
	Name       string   `mapstructure:"name"`
	URLs       []string `mapstructure:"urls"`
	PublicKey  string   `mapstructure:"public_key"`
	Active     *bool    `mapstructure:"active"`
	CooldownMS int      `mapstructure:"cooldown_ms"`
	FeeFields  []string `mapstructure:"fee_fields"`
}

// DefaultProviders is the built-in roster. Deployments normally replace it
// with LSP_PROVIDERS_FILE or adjust it through LSP_<ID>_* variables.
func DefaultProviders() []domain.Provider {
	return []domain.Provider{
		{
			ID:       "olympus",
			Name:     "Olympus by ZEUS",
			URLs:     []string{"https://0conf.lnolymp.us/api/v1"},
			Active:   true,
			Cooldown: 5 * time.Second,
		},
		{
			ID:       "megalith",
			Name:     "Megalith",
			URLs:     []string{"https://megalithic.me/api/lsps1/v1"},
			Active:   true,
			Cooldown: 10 * time.Second,
		},
		{
			ID:   "lnserver",
			Name: "LNServer Wave",
			URLs: []string{
				"https://lnserver.com/lsp/api/v1",
				"https://lnserver.com/api/lsps1/v1",
			},
			Active:    true,
			Cooldown:  10 * time.Second,
			FeeFields: []string{"payment.bolt11.fee_total_sat", "fee_total_sat"},
		},
		{
			ID:     "flashsats",
			Name:   "Flashsats",
			URLs:   []string{"https://flashsats.xyz/api/v1"},
			Active: false,
		},
	}
}

// LoadProviders returns the roster: the file when path is set, otherwise the
// defaults, then LSP_<ID>_URL, LSP_<ID>_PUBKEY and LSP_<ID>_ACTIVE overrides.
func LoadProviders(path string, defaultCooldown time.Duration) ([]domain.Provider, error) {
	providers := DefaultProviders()
	if path != "" {
		var err error
		if providers, err = readProviderFile(path); err != nil {
			return nil, err
		}
	}
	for i := range providers {
		applyEnvOverrides(&providers[i])
		if providers[i].Cooldown <= 0 {
			providers[i].Cooldown = defaultCooldown
		}
	}
	return providers, nil
}

func readProviderFile(path string) ([]domain.Provider, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read providers file %s: %w", path, err)
	}
	var f providerFile
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal providers: %w", err)
	}

	out := make([]domain.Provider, 0, len(f.Providers))
	seen := make(map[string]bool, len(f.Providers))
	for _, e := range f.Providers {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return nil, fmt.Errorf("providers file %s: entry without id", path)
		}
		if seen[id] {
			return nil, fmt.Errorf("providers file %s: duplicate id %q", path, id)
		}
		seen[id] = true
		name := e.Name
		if name == "" {
			name = id
		}
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		out = append(out, domain.Provider{
			ID:        id,
			Name:      name,
			URLs:      e.URLs,
			PublicKey: e.PublicKey,
			Active:    active,
			Cooldown:  time.Duration(e.CooldownMS) * time.Millisecond,
			FeeFields: e.FeeFields,
		})
	}
	return out, nil
}

func envKey(id, suffix string) string {
	id = strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(id))
	return "LSP_" + id + "_" + suffix
}

func applyEnvOverrides(p *domain.Provider) {
	if u := os.Getenv(envKey(p.ID, "URL")); u != "" {
		p.URLs = []string{u}
	}
	if k := os.Getenv(envKey(p.ID, "PUBKEY")); k != "" {
		p.PublicKey = k
	}
	if a := os.Getenv(envKey(p.ID, "ACTIVE")); a != "" {
		if b, err := strconv.ParseBool(a); err == nil {
			p.Active = b
		}
	}
}
