package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/servicewatch/internal/domain"
)

// ServiceList is the shape of the services file.
type ServiceList struct {
	Services []domain.ServiceDefinition `json:"services" yaml:"services"`
}

var validate = validator.New()

// LoadServices reads the service list from path. A missing file is not
// an error: monitoring simply runs with zero services. A file that is
// present but invalid returns an error so the operator sees it.
func LoadServices(path string) ([]domain.ServiceDefinition, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read services file: %w", err)
	}

	var list ServiceList
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &list)
	default:
		err = json.Unmarshal(data, &list)
	}
	if err != nil {
		return nil, fmt.Errorf("parse services file: %w", err)
	}

	seen := make(map[string]bool, len(list.Services))
	for i := range list.Services {
		d := &list.Services[i]
		if err := validateDefinition(d); err != nil {
			return nil, fmt.Errorf("service %q: %w", d.Name, err)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate service name %q", d.Name)
		}
		seen[d.Name] = true
		applyDefaults(d)
	}
	return list.Services, nil
}

func validateDefinition(d *domain.ServiceDefinition) error {
	if err := validate.Struct(d); err != nil {
		return err
	}
	switch d.Type {
	case domain.TypeHTTP, domain.TypeAPI:
		if d.URL == "" {
			return errors.New("url is required")
		}
	case domain.TypeTCP:
		if d.Host == "" || d.Port == 0 {
			return errors.New("host and port are required")
		}
	case domain.TypeDNS:
		if d.Domain == "" {
			return errors.New("domain is required")
		}
	}
	return nil
}

func applyDefaults(d *domain.ServiceDefinition) {
	if (d.Type == domain.TypeHTTP || d.Type == domain.TypeAPI) && d.ExpectedStatus == 0 {
		d.ExpectedStatus = 200
	}
}
