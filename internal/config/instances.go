package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soyeahso/loom/internal/domain"
)

// defaultInstanceMarker is the file under the instances dir naming the
// default remote instance.
const defaultInstanceMarker = "default_instance.txt"

// LoadInstances reads all saved instance accounts from the instances
// directory. The account named in the default marker gets Default set.
// A missing directory yields an empty map.
func LoadInstances(dir string) (map[string]domain.InstanceAccount, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]domain.InstanceAccount{}, nil
		}
		return nil, err
	}

	defaultName, _ := DefaultInstance(dir)

	accounts := make(map[string]domain.InstanceAccount)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var acct domain.InstanceAccount
		if err := yaml.Unmarshal(data, &acct); err != nil {
			return nil, &ConfigError{Message: "failed to parse instance " + e.Name() + ": " + err.Error()}
		}
		if acct.Name == "" {
			acct.Name = strings.TrimSuffix(e.Name(), ".yaml")
		}
		acct.APIKey = expandEnvVars(acct.APIKey)
		acct.Default = acct.Name == defaultName
		accounts[acct.Name] = acct
	}
	return accounts, nil
}

// SaveInstance writes one instance account to <dir>/<name>.yaml.
func SaveInstance(dir string, acct domain.InstanceAccount) error {
	if acct.Name == "" {
		return &ConfigError{Message: "instance name is required"}
	}
	if acct.BaseURL == "" {
		return &ConfigError{Message: "instance baseUrl is required"}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(acct)
	if err != nil {
		return err
	}
	return os.WriteFile(instancePath(dir, acct.Name), data, 0o600)
}

// RemoveInstance deletes a saved instance account. If it was the
// default, the marker is cleared too.
func RemoveInstance(dir, name string) error {
	if err := os.Remove(instancePath(dir, name)); err != nil {
		return err
	}
	if current, _ := DefaultInstance(dir); current == name {
		os.Remove(filepath.Join(dir, defaultInstanceMarker))
	}
	return nil
}

// SetDefaultInstance marks a saved instance as the default. The
// instance must already exist.
func SetDefaultInstance(dir, name string) error {
	if _, err := os.Stat(instancePath(dir, name)); err != nil {
		return &ConfigError{Message: fmt.Sprintf("instance %q not found", name)}
	}
	return os.WriteFile(filepath.Join(dir, defaultInstanceMarker), []byte(name+"\n"), 0o600)
}

// DefaultInstance returns the name of the default instance, or "" if
// none is set.
func DefaultInstance(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, defaultInstanceMarker))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func instancePath(dir, name string) string {
	return filepath.Join(dir, name+".yaml")
}
