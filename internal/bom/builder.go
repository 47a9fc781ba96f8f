// Package bom renders an exported report as a CycloneDX vulnerability BOM.
package bom

import (
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/owtf/exporter/internal/model"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
)

var version string

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		version = "unknown"
	} else {
		version = info.Main.Version
	}
}

// Builder is a builder pattern for a CycloneDX BOM structure
type Builder struct {
	subject         *cdx.Component
	timestamp       time.Time
	vulnerabilities []cdx.Vulnerability
	properties      []cdx.Property
}

func NewBuilder() *Builder {
	return &Builder{
		// those MUST be initialized as cyclone-dx JSON schema do not allow items to be null
		vulnerabilities: []cdx.Vulnerability{},
		properties:      []cdx.Property{},
	}
}

// FromReport returns a builder holding the target of r as the BOM subject
// and one vulnerability per plugin output. BOM properties count the test
// groups and plugin outputs of r.
func FromReport(r model.Report) *Builder {
	b := NewBuilder().SetSubject(targetComponent(r.TargetConfig))
	if ts, err := time.ParseInLocation(model.TimeLayout, r.Time, time.UTC); err == nil {
		b.SetTimestamp(ts)
	}
	ref := targetRef(r.ID)
	outputs := 0
	for _, tg := range r.Vulnerabilities {
		for _, o := range tg.Data {
			b.AppendVulnerabilities(vulnerability(ref, tg, o))
		}
		outputs += len(tg.Data)
	}
	return b.AppendProperties(
		cdx.Property{Name: OWTFReportTestGroups, Value: strconv.Itoa(len(r.Vulnerabilities))},
		cdx.Property{Name: OWTFReportPluginOutputs, Value: strconv.Itoa(outputs)},
	)
}

func (b *Builder) SetSubject(c cdx.Component) *Builder {
	b.subject = &c
	return b
}

func (b *Builder) SetTimestamp(t time.Time) *Builder {
	b.timestamp = t
	return b
}

func (b *Builder) AppendVulnerabilities(vulnerabilities ...cdx.Vulnerability) *Builder {
	b.vulnerabilities = append(b.vulnerabilities, vulnerabilities...)
	return b
}

func (b *Builder) AppendProperties(properties ...cdx.Property) *Builder {
	b.properties = append(b.properties, properties...)
	return b
}

// BOM returns a cdx.BOM based on a data inside the Builder
func (b *Builder) BOM() cdx.BOM {
	ts := b.timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	tools := []cdx.Component{
		{
			Type:    cdx.ComponentTypeApplication,
			Name:    "owtf-exporter",
			Version: version,
		},
	}
	bom := cdx.BOM{
		JSONSchema:   "https://cyclonedx.org/schema/bom-1.6.schema.json",
		BOMFormat:    "CycloneDX",
		SpecVersion:  cdx.SpecVersion1_6,
		SerialNumber: "urn:uuid:" + uuid.New().String(),
		Version:      1,
		Metadata: &cdx.Metadata{
			Timestamp: ts.UTC().Format(time.RFC3339),
			Lifecycles: &[]cdx.Lifecycle{
				{
					Phase: cdx.LifecyclePhaseOperations,
				},
			},
			Tools: &cdx.ToolsChoice{
				Components: &tools,
			},
			Component: b.subject,
		},
		Vulnerabilities: &b.vulnerabilities,
		Properties:      &b.properties,
	}
	return bom
}

// AsJSON encode the BOM into JSON format
func (b *Builder) AsJSON(w io.Writer) error {
	bom := b.BOM()
	return cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON).SetPretty(true).Encode(&bom)
}

// Severity maps a rank name onto a CycloneDX severity. Names outside of the
// default rank table are unknown.
func Severity(rank string) cdx.Severity {
	switch strings.ToLower(rank) {
	case "critical":
		return cdx.SeverityCritical
	case "high":
		return cdx.SeverityHigh
	case "medium":
		return cdx.SeverityMedium
	case "low":
		return cdx.SeverityLow
	case "info", "passing":
		return cdx.SeverityInfo
	default:
		return cdx.SeverityUnknown
	}
}

func targetRef(id int64) string {
	return "target:" + strconv.FormatInt(id, 10)
}

func targetComponent(t model.TargetConfig) cdx.Component {
	props := []cdx.Property{}
	setProp(&props, OWTFTargetHostIP, t.HostIP)
	setProp(&props, OWTFTargetHostName, t.HostName)
	setProp(&props, OWTFTargetPortNumber, t.PortNumber)
	setProp(&props, OWTFTargetURLScheme, t.URLScheme)
	for _, ip := range t.AlternativeIPs {
		addProp(&props, OWTFTargetAlternativeIP, ip)
	}
	setProp(&props, OWTFTargetTopDomain, t.TopDomain)
	setProp(&props, OWTFTargetScope, strconv.FormatBool(t.Scope))

	c := cdx.Component{
		BOMRef:     targetRef(t.ID),
		Type:       cdx.ComponentTypeApplication,
		Name:       t.TargetURL,
		Properties: &props,
	}
	if t.TopURL != "" {
		c.ExternalReferences = &[]cdx.ExternalReference{
			{URL: t.TopURL, Type: cdx.ERTypeWebsite},
		}
	}
	return c
}

func vulnerability(ref string, tg model.TestGroup, o model.PluginOutput) cdx.Vulnerability {
	props := []cdx.Property{}
	setProp(&props, OWTFVulnerabilityCode, tg.Code)
	setProp(&props, OWTFVulnerabilityGroup, tg.Group)
	setProp(&props, OWTFPluginKey, o.PluginKey)
	setProp(&props, OWTFPluginType, o.PluginType)
	setProp(&props, OWTFPluginName, o.PluginName)
	setProp(&props, OWTFPluginStatus, o.Status)
	setProp(&props, OWTFPluginRunTime, o.RunTime)
	setProp(&props, OWTFPluginRank, o.Rank)
	setProp(&props, OWTFPluginUserNotes, o.UserNotes)
	setProp(&props, OWTFPluginErrorMessage, o.Error)

	id := fmt.Sprintf("%s:%d", tg.MappedCode, o.ID)
	v := cdx.Vulnerability{
		BOMRef:         id,
		ID:             id,
		Source:         &cdx.Source{Name: "OWTF", URL: tg.URL},
		Description:    tg.MappedDescrip,
		Detail:         o.Output,
		Recommendation: tg.Hint,
		Ratings: &[]cdx.VulnerabilityRating{
			{
				Severity: Severity(o.Rank),
				Method:   cdx.ScoringMethodOther,
			},
		},
		Affects:    &[]cdx.Affects{{Ref: ref}},
		Properties: &props,
	}
	if !o.StartTime.IsZero() {
		v.Created = o.StartTime.UTC().Format(time.RFC3339)
	}
	return v
}
