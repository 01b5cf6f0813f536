package classify

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// AccountInfo describes one customer account in the registry.
type AccountInfo struct {
	Name            string `yaml:"name"`
	OperationsEmail string `yaml:"operations_email"`
	POCName         string `yaml:"poc_name"`
}

// Registry maps account ids to customer metadata and knows which payer ids
// represent reseller billing hierarchies. Its lifecycle is scoped to one
// batch run; callers pass it explicitly rather than sharing process state.
type Registry struct {
	accounts        map[string]AccountInfo
	resellerPayerID map[string]bool
}

type registryFile struct {
	ResellerPayerIDs []string               `yaml:"reseller_payer_ids"`
	Accounts         map[string]AccountInfo `yaml:"accounts"`
}

// NewRegistry builds a registry from already-loaded entries.
func NewRegistry(accounts map[string]AccountInfo, resellerPayerIDs []string) *Registry {
	r := &Registry{
		accounts:        make(map[string]AccountInfo, len(accounts)),
		resellerPayerID: make(map[string]bool, len(resellerPayerIDs)),
	}
	for id, info := range accounts {
		r.accounts[normalizeAccountID(id)] = info
	}
	for _, id := range resellerPayerIDs {
		r.resellerPayerID[normalizeAccountID(id)] = true
	}
	return r
}

// LoadRegistry reads the account registry from a YAML file.
func LoadRegistry(path string, logger *zap.Logger) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read account registry: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse account registry: %w", err)
	}
	logger.Info("Loaded account registry",
		zap.String("path", path),
		zap.Int("accounts", len(f.Accounts)),
		zap.Int("reseller_payers", len(f.ResellerPayerIDs)))
	return NewRegistry(f.Accounts, f.ResellerPayerIDs), nil
}

// Lookup returns the registered info for an account id.
func (r *Registry) Lookup(accountID string) (AccountInfo, bool) {
	info, ok := r.accounts[normalizeAccountID(accountID)]
	return info, ok
}

// IsResellerPayer reports whether the id is a known reseller payer account.
func (r *Registry) IsResellerPayer(accountID string) bool {
	return r.resellerPayerID[normalizeAccountID(accountID)]
}

// Size returns the number of registered accounts.
func (r *Registry) Size() int {
	return len(r.accounts)
}

// WriteContactsCSV dumps the registered accounts and their operations
// contacts to a CSV file, sorted by account id.
func (r *Registry) WriteContactsCSV(path string) error {
	ids := make([]string, 0, len(r.accounts))
	for id := range r.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create contacts file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"account_id", "account_name", "operations_email", "poc_name"}); err != nil {
		return err
	}
	for _, id := range ids {
		info := r.accounts[id]
		if err := w.Write([]string{id, info.Name, info.OperationsEmail, info.POCName}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// normalizeAccountID strips separators and left-pads short ids to the
// canonical 12 digits.
func normalizeAccountID(id string) string {
	id = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(id))
	for len(id) > 0 && len(id) < 12 {
		id = "0" + id
	}
	return id
}
