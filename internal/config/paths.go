package config

import (
	"fmt"
	"strings"

	"cleanarch/internal/pattern"
)

// PathsConfig assigns packages to their Clean Architecture role.
// MainProject is a go/packages load pattern relative to the workspace;
// every other field is a package pattern (see internal/pattern).
type PathsConfig struct {
	MainProject                   string `yaml:"main_project"`
	EnterpriseBusiness            string `yaml:"enterprise_business"`
	ApplicationBusiness           string `yaml:"application_business"`
	InterfaceAdaptersController   string `yaml:"interface_adapters_controller"`
	InterfaceAdaptersPresenter    string `yaml:"interface_adapters_presenter"`
	InterfaceAdaptersInfra        string `yaml:"interface_adapters_infra"`
	CommunicationCoreWithAdapters string `yaml:"communication_core_with_adapters"`
}

// DefaultPaths returns the conventional layout for a module path.
func DefaultPaths(module string) PathsConfig {
	module = strings.TrimSuffix(module, "/")
	return PathsConfig{
		MainProject:                   "./...",
		EnterpriseBusiness:            module + "/internal/entity/...",
		ApplicationBusiness:           module + "/internal/usecase/...",
		InterfaceAdaptersController:   module + "/internal/adapter/controller/...",
		InterfaceAdaptersPresenter:    module + "/internal/adapter/presenter/...",
		InterfaceAdaptersInfra:        module + "/internal/adapter/infra/...",
		CommunicationCoreWithAdapters: module + "/internal/usecase/port/...",
	}
}

// Validate checks that the mandatory roles are set and every pattern compiles.
func (p PathsConfig) Validate() error {
	if p.MainProject == "" {
		return fmt.Errorf("paths.main_project is required")
	}
	if p.EnterpriseBusiness == "" {
		return fmt.Errorf("paths.enterprise_business is required")
	}
	if p.ApplicationBusiness == "" {
		return fmt.Errorf("paths.application_business is required")
	}
	for key, raw := range p.patterns() {
		if raw == "" {
			continue
		}
		if _, err := pattern.Compile(raw); err != nil {
			return fmt.Errorf("paths.%s: %w", key, err)
		}
	}
	return nil
}

func (p PathsConfig) patterns() map[string]string {
	return map[string]string{
		"enterprise_business":              p.EnterpriseBusiness,
		"application_business":             p.ApplicationBusiness,
		"interface_adapters_controller":    p.InterfaceAdaptersController,
		"interface_adapters_presenter":     p.InterfaceAdaptersPresenter,
		"interface_adapters_infra":         p.InterfaceAdaptersInfra,
		"communication_core_with_adapters": p.CommunicationCoreWithAdapters,
	}
}
