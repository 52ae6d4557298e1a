package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclFile is the decoding shape of a .cleanarch.hcl file. Pointers mark
// optional settings so absent ones keep their defaults.
type hclFile struct {
	Name                       *string     `hcl:"name,optional"`
	AcceptedEntityDependencies []string    `hcl:"accepted_entity_dependencies,optional"`
	Paths                      *hclPaths   `hcl:"paths,block"`
	Load                       *hclLoad    `hcl:"load,block"`
	Rules                      *hclRules   `hcl:"rules,block"`
	Mangle                     *hclMangle  `hcl:"mangle,block"`
	Report                     *hclReport  `hcl:"report,block"`
	Store                      *hclStore   `hcl:"store,block"`
	Publish                    *hclPublish `hcl:"publish,block"`
	Server                     *hclServer  `hcl:"server,block"`
	Watch                      *hclWatch   `hcl:"watch,block"`
	Logging                    *hclLogging `hcl:"logging,block"`
}

type hclPaths struct {
	MainProject                   *string `hcl:"main_project,optional"`
	EnterpriseBusiness            *string `hcl:"enterprise_business,optional"`
	ApplicationBusiness           *string `hcl:"application_business,optional"`
	InterfaceAdaptersController   *string `hcl:"interface_adapters_controller,optional"`
	InterfaceAdaptersPresenter    *string `hcl:"interface_adapters_presenter,optional"`
	InterfaceAdaptersInfra        *string `hcl:"interface_adapters_infra,optional"`
	CommunicationCoreWithAdapters *string `hcl:"communication_core_with_adapters,optional"`
}

type hclLoad struct {
	Tests       *bool    `hcl:"tests,optional"`
	Workers     *int     `hcl:"workers,optional"`
	AllowErrors *bool    `hcl:"allow_errors,optional"`
	BuildTags   []string `hcl:"build_tags,optional"`
	Timeout     *string  `hcl:"timeout,optional"`
}

type hclRules struct {
	Disabled          []string          `hcl:"disabled,optional"`
	Severity          map[string]string `hcl:"severity,optional"`
	FailFast          *bool             `hcl:"fail_fast,optional"`
	ExceptionPackages []string          `hcl:"exception_packages,optional"`
}

type hclMangle struct {
	FactLimit *int `hcl:"fact_limit,optional"`
}

type hclReport struct {
	Format *string `hcl:"format,optional"`
	Output *string `hcl:"output,optional"`
	Color  *bool   `hcl:"color,optional"`
}

type hclStore struct {
	Enabled *bool   `hcl:"enabled,optional"`
	Driver  *string `hcl:"driver,optional"`
	DSN     *string `hcl:"dsn,optional"`
}

type hclPublish struct {
	Enabled  *bool   `hcl:"enabled,optional"`
	Endpoint *string `hcl:"endpoint,optional"`
	Bucket   *string `hcl:"bucket,optional"`
	Prefix   *string `hcl:"prefix,optional"`
	Region   *string `hcl:"region,optional"`
	UseSSL   *bool   `hcl:"use_ssl,optional"`
}

type hclServer struct {
	Addr         *string `hcl:"addr,optional"`
	ReadTimeout  *string `hcl:"read_timeout,optional"`
	WriteTimeout *string `hcl:"write_timeout,optional"`
}

type hclWatch struct {
	Debounce *string  `hcl:"debounce,optional"`
	Ignore   []string `hcl:"ignore,optional"`
}

type hclLogging struct {
	Level      *string         `hcl:"level,optional"`
	Format     *string         `hcl:"format,optional"`
	DebugMode  *bool           `hcl:"debug_mode,optional"`
	Categories map[string]bool `hcl:"categories,optional"`
}

// decodeHCL parses an HCL config and merges it onto cfg.
func decodeHCL(path string, data []byte, cfg *Config) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL config %s: %w", path, diags)
	}

	var raw hclFile
	if diags := gohcl.DecodeBody(file.Body, evalContext(path), &raw); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL config %s: %w", path, diags)
	}

	raw.mergeInto(cfg)
	return nil
}

// evalContext exposes the process environment as env.NAME and the
// directory holding the config file as config_dir.
func evalContext(path string) *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		env[name] = cty.StringVal(value)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		dir = filepath.Dir(path)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{
		"env":        cty.ObjectVal(env),
		"config_dir": cty.StringVal(dir),
	}}
}

func (f *hclFile) mergeInto(cfg *Config) {
	setString(&cfg.Name, f.Name)
	if f.AcceptedEntityDependencies != nil {
		cfg.AcceptedEntityDependencies = f.AcceptedEntityDependencies
	}

	if p := f.Paths; p != nil {
		setString(&cfg.Paths.MainProject, p.MainProject)
		setString(&cfg.Paths.EnterpriseBusiness, p.EnterpriseBusiness)
		setString(&cfg.Paths.ApplicationBusiness, p.ApplicationBusiness)
		setString(&cfg.Paths.InterfaceAdaptersController, p.InterfaceAdaptersController)
		setString(&cfg.Paths.InterfaceAdaptersPresenter, p.InterfaceAdaptersPresenter)
		setString(&cfg.Paths.InterfaceAdaptersInfra, p.InterfaceAdaptersInfra)
		setString(&cfg.Paths.CommunicationCoreWithAdapters, p.CommunicationCoreWithAdapters)
	}

	if l := f.Load; l != nil {
		setBool(&cfg.Load.Tests, l.Tests)
		if l.Workers != nil {
			cfg.Load.Workers = *l.Workers
		}
		setBool(&cfg.Load.AllowErrors, l.AllowErrors)
		if l.BuildTags != nil {
			cfg.Load.BuildTags = l.BuildTags
		}
		setString(&cfg.Load.Timeout, l.Timeout)
	}

	if r := f.Rules; r != nil {
		if r.Disabled != nil {
			cfg.Rules.Disabled = r.Disabled
		}
		for k, v := range r.Severity {
			if cfg.Rules.Severity == nil {
				cfg.Rules.Severity = map[string]string{}
			}
			cfg.Rules.Severity[k] = v
		}
		setBool(&cfg.Rules.FailFast, r.FailFast)
		if r.ExceptionPackages != nil {
			cfg.Rules.ExceptionPackages = r.ExceptionPackages
		}
	}

	if m := f.Mangle; m != nil && m.FactLimit != nil {
		cfg.Mangle.FactLimit = *m.FactLimit
	}

	if r := f.Report; r != nil {
		setString(&cfg.Report.Format, r.Format)
		setString(&cfg.Report.Output, r.Output)
		setBool(&cfg.Report.Color, r.Color)
	}

	if s := f.Store; s != nil {
		setBool(&cfg.Store.Enabled, s.Enabled)
		setString(&cfg.Store.Driver, s.Driver)
		setString(&cfg.Store.DSN, s.DSN)
	}

	if p := f.Publish; p != nil {
		setBool(&cfg.Publish.Enabled, p.Enabled)
		setString(&cfg.Publish.Endpoint, p.Endpoint)
		setString(&cfg.Publish.Bucket, p.Bucket)
		setString(&cfg.Publish.Prefix, p.Prefix)
		setString(&cfg.Publish.Region, p.Region)
		setBool(&cfg.Publish.UseSSL, p.UseSSL)
	}

	if s := f.Server; s != nil {
		setString(&cfg.Server.Addr, s.Addr)
		setString(&cfg.Server.ReadTimeout, s.ReadTimeout)
		setString(&cfg.Server.WriteTimeout, s.WriteTimeout)
	}

	if w := f.Watch; w != nil {
		setString(&cfg.Watch.Debounce, w.Debounce)
		if w.Ignore != nil {
			cfg.Watch.Ignore = w.Ignore
		}
	}

	if l := f.Logging; l != nil {
		setString(&cfg.Logging.Level, l.Level)
		setString(&cfg.Logging.Format, l.Format)
		setBool(&cfg.Logging.DebugMode, l.DebugMode)
		if l.Categories != nil {
			cfg.Logging.Categories = l.Categories
		}
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
