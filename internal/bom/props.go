package bom

import (
	cdx "github.com/CycloneDX/cyclonedx-go"
)

// Exported so tests and other packages can reference the same strings.
const (
	OWTFTargetHostIP        = "owtf:target:host_ip"
	OWTFTargetHostName      = "owtf:target:host_name"
	OWTFTargetPortNumber    = "owtf:target:port_number"
	OWTFTargetURLScheme     = "owtf:target:url_scheme"
	OWTFTargetAlternativeIP = "owtf:target:alternative_ip"
	OWTFTargetTopDomain     = "owtf:target:top_domain"
	OWTFTargetScope         = "owtf:target:scope"
	OWTFVulnerabilityCode   = "owtf:vulnerability:code"
	OWTFVulnerabilityGroup  = "owtf:vulnerability:group"
	OWTFPluginKey           = "owtf:plugin:key"
	OWTFPluginType          = "owtf:plugin:type"
	OWTFPluginName          = "owtf:plugin:name"
	OWTFPluginStatus        = "owtf:plugin:status"
	OWTFPluginRunTime       = "owtf:plugin:run_time"
	OWTFPluginRank          = "owtf:plugin:rank"
	OWTFPluginUserNotes     = "owtf:plugin:user_notes"
	OWTFPluginErrorMessage  = "owtf:plugin:error"
	OWTFReportTestGroups    = "owtf:report:test_groups"
	OWTFReportPluginOutputs = "owtf:report:plugin_outputs"
)

// setProp upserts a property. Empty values are skipped.
func setProp(props *[]cdx.Property, name, value string) {
	if value == "" {
		return
	}
	for i := range *props {
		if (*props)[i].Name == name {
			(*props)[i].Value = value
			return
		}
	}
	*props = append(*props, cdx.Property{Name: name, Value: value})
}

// addProp appends a property, used for multi valued names.
func addProp(props *[]cdx.Property, name, value string) {
	if value == "" {
		return
	}
	*props = append(*props, cdx.Property{Name: name, Value: value})
}
