// Package dataset loads targets, test groups, mappings and plugin outputs
// from a YAML document and writes them into a store.
//
//	targets:
//	  - id: 1
//	    target_url: http://example.com
//	test_groups:
//	  - code: OWTF-IG-001
//	    descrip: Spiders, Robots and Crawlers
//	mappings:
//	  OWASP_V4:
//	    OWTF-IG-001: {code: WSTG-INFO-01, descrip: Search Engine Discovery}
//	plugin_outputs:
//	  - id: 1
//	    target_id: 1
//	    plugin_code: OWTF-IG-001
//	    owtf_rank: 2
//
// Ranks which are not set default to model.UnsetRank.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/owtf/exporter/internal/model"

	"gopkg.in/yaml.v3"
)

type Dataset struct {
	Targets       []Target                 `yaml:"targets"`
	TestGroups    []TestGroup              `yaml:"test_groups"`
	Mappings      map[string]model.Mapping `yaml:"mappings"`
	PluginOutputs []PluginOutput           `yaml:"plugin_outputs"`
}

type Target struct {
	ID             int64    `yaml:"id"`
	TargetURL      string   `yaml:"target_url"`
	HostIP         string   `yaml:"host_ip"`
	PortNumber     string   `yaml:"port_number"`
	URLScheme      string   `yaml:"url_scheme"`
	AlternativeIPs []string `yaml:"alternative_ips"`
	HostName       string   `yaml:"host_name"`
	HostPath       string   `yaml:"host_path"`
	IPURL          string   `yaml:"ip_url"`
	TopDomain      string   `yaml:"top_domain"`
	TopURL         string   `yaml:"top_url"`
	Scope          *bool    `yaml:"scope"`
	MaxUserRank    *int     `yaml:"max_user_rank"`
	MaxOWTFRank    *int     `yaml:"max_owtf_rank"`
}

type TestGroup struct {
	Code     string `yaml:"code"`
	Group    string `yaml:"group"`
	Descrip  string `yaml:"descrip"`
	Hint     string `yaml:"hint"`
	URL      string `yaml:"url"`
	Priority int    `yaml:"priority"`
}

type PluginOutput struct {
	ID          int64     `yaml:"id"`
	TargetID    int64     `yaml:"target_id"`
	PluginKey   string    `yaml:"plugin_key"`
	PluginCode  string    `yaml:"plugin_code"`
	PluginGroup string    `yaml:"plugin_group"`
	PluginType  string    `yaml:"plugin_type"`
	PluginName  string    `yaml:"plugin_name"`
	Status      string    `yaml:"status"`
	Output      string    `yaml:"output"`
	Error       string    `yaml:"error"`
	UserNotes   string    `yaml:"user_notes"`
	UserRank    *int      `yaml:"user_rank"`
	OWTFRank    *int      `yaml:"owtf_rank"`
	StartTime   time.Time `yaml:"start_time"`
	EndTime     time.Time `yaml:"end_time"`
	RunTime     string    `yaml:"run_time"`
}

// Load decodes a dataset from r. Unknown fields are an error.
func Load(r io.Reader) (Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Dataset
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return Dataset{}, nil
		}
		return Dataset{}, fmt.Errorf("decoding dataset: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Dataset{}, err
	}
	return d, nil
}

// Validate checks identifiers are present and unique. Plugin outputs need an
// id too, so importing the same dataset again replaces them instead of adding
// copies.
func (d Dataset) Validate() error {
	var errs []error

	targets := make(map[int64]struct{}, len(d.Targets))
	for i, t := range d.Targets {
		if t.ID <= 0 {
			errs = append(errs, fmt.Errorf("targets[%d]: id must be positive", i))
			continue
		}
		if _, ok := targets[t.ID]; ok {
			errs = append(errs, fmt.Errorf("targets[%d]: duplicate id %d", i, t.ID))
		}
		targets[t.ID] = struct{}{}
		if t.TargetURL == "" {
			errs = append(errs, fmt.Errorf("targets[%d]: target_url is empty", i))
		}
	}

	codes := make(map[string]struct{}, len(d.TestGroups))
	for i, tg := range d.TestGroups {
		if tg.Code == "" {
			errs = append(errs, fmt.Errorf("test_groups[%d]: code is empty", i))
			continue
		}
		if _, ok := codes[tg.Code]; ok {
			errs = append(errs, fmt.Errorf("test_groups[%d]: duplicate code %q", i, tg.Code))
		}
		codes[tg.Code] = struct{}{}
	}

	for name, m := range d.Mappings {
		for code, mapped := range m {
			if mapped.Code == "" {
				errs = append(errs, fmt.Errorf("mappings.%s.%s: code is empty", name, code))
			}
		}
	}

	ids := make(map[int64]struct{}, len(d.PluginOutputs))
	for i, o := range d.PluginOutputs {
		switch _, dup := ids[o.ID]; {
		case o.ID <= 0:
			errs = append(errs, fmt.Errorf("plugin_outputs[%d]: id must be positive", i))
		case dup:
			errs = append(errs, fmt.Errorf("plugin_outputs[%d]: duplicate id %d", i, o.ID))
		default:
			ids[o.ID] = struct{}{}
		}
		if o.PluginCode == "" {
			errs = append(errs, fmt.Errorf("plugin_outputs[%d]: plugin_code is empty", i))
		}
		if o.TargetID <= 0 {
			errs = append(errs, fmt.Errorf("plugin_outputs[%d]: target_id must be positive", i))
		}
	}
	return errors.Join(errs...)
}

// Sink is where Import writes. Both *store.Store and *store.Tx implement it,
// the latter makes the import all or nothing.
type Sink interface {
	PutTarget(ctx context.Context, t model.TargetConfig) error
	PutTestGroup(ctx context.Context, tg model.TestGroup) error
	PutMapping(ctx context.Context, name string, m model.Mapping) error
	PutPluginOutput(ctx context.Context, o model.PluginOutput) (int64, error)
}

type Stats struct {
	Targets       int
	TestGroups    int
	Mappings      int
	PluginOutputs int
}

// Import writes the dataset into sink: targets first, plugin outputs last.
func (d Dataset) Import(ctx context.Context, sink Sink) (Stats, error) {
	var stats Stats
	for _, t := range d.Targets {
		if err := sink.PutTarget(ctx, t.model()); err != nil {
			return stats, fmt.Errorf("importing target %d: %w", t.ID, err)
		}
		stats.Targets++
	}
	for _, tg := range d.TestGroups {
		if err := sink.PutTestGroup(ctx, tg.model()); err != nil {
			return stats, fmt.Errorf("importing test group %s: %w", tg.Code, err)
		}
		stats.TestGroups++
	}
	for _, name := range slices.Sorted(maps.Keys(d.Mappings)) {
		if err := sink.PutMapping(ctx, name, d.Mappings[name]); err != nil {
			return stats, fmt.Errorf("importing mapping %s: %w", name, err)
		}
		stats.Mappings++
	}
	for i, o := range d.PluginOutputs {
		if _, err := sink.PutPluginOutput(ctx, o.model()); err != nil {
			return stats, fmt.Errorf("importing plugin_outputs[%d]: %w", i, err)
		}
		stats.PluginOutputs++
	}
	return stats, nil
}

func (t Target) model() model.TargetConfig {
	scope := true
	if t.Scope != nil {
		scope = *t.Scope
	}
	return model.TargetConfig{
		ID:             t.ID,
		TargetURL:      t.TargetURL,
		HostIP:         t.HostIP,
		PortNumber:     t.PortNumber,
		URLScheme:      t.URLScheme,
		AlternativeIPs: t.AlternativeIPs,
		HostName:       t.HostName,
		HostPath:       t.HostPath,
		IPURL:          t.IPURL,
		TopDomain:      t.TopDomain,
		TopURL:         t.TopURL,
		Scope:          scope,
		MaxUserRank:    rankOrUnset(t.MaxUserRank),
		MaxOWTFRank:    rankOrUnset(t.MaxOWTFRank),
	}
}

func (tg TestGroup) model() model.TestGroup {
	return model.TestGroup{
		Code:     tg.Code,
		Group:    tg.Group,
		Descrip:  tg.Descrip,
		Hint:     tg.Hint,
		URL:      tg.URL,
		Priority: tg.Priority,
	}
}

func (o PluginOutput) model() model.PluginOutput {
	return model.PluginOutput{
		ID:          o.ID,
		TargetID:    o.TargetID,
		PluginKey:   o.PluginKey,
		PluginCode:  o.PluginCode,
		PluginGroup: o.PluginGroup,
		PluginType:  o.PluginType,
		PluginName:  o.PluginName,
		Status:      o.Status,
		Output:      o.Output,
		Error:       o.Error,
		UserNotes:   o.UserNotes,
		UserRank:    rankOrUnset(o.UserRank),
		OWTFRank:    rankOrUnset(o.OWTFRank),
		StartTime:   o.StartTime,
		EndTime:     o.EndTime,
		RunTime:     o.RunTime,
	}
}

func rankOrUnset(r *int) int {
	if r == nil {
		return model.UnsetRank
	}
	return *r
}
