package model

// TestGroup describes a category of security tests identified by Code.
// MappedCode and MappedDescrip hold the names shown in a report: they are the
// original ones unless a Mapping overrides them.
type TestGroup struct {
	Code          string         `json:"code"`
	Group         string         `json:"group"`
	Descrip       string         `json:"descrip"`
	Hint          string         `json:"hint"`
	URL           string         `json:"url"`
	Priority      int            `json:"priority"`
	MappedCode    string         `json:"mapped_code"`
	MappedDescrip string         `json:"mapped_descrip"`
	Data          []PluginOutput `json:"data,omitempty"`
}

// MappedName is an alternative code and description of a test group.
type MappedName struct {
	Code    string `json:"code" yaml:"code"`
	Descrip string `json:"descrip" yaml:"descrip"`
}

// Mapping relabels test groups: test group code -> alternative name.
type Mapping map[string]MappedName

// Apply returns a copy of tg with mapped fields filled in. Codes not present
// in m keep the original code and description.
func (m Mapping) Apply(tg TestGroup) TestGroup {
	tg.MappedCode = tg.Code
	tg.MappedDescrip = tg.Descrip
	if name, ok := m[tg.Code]; ok {
		tg.MappedCode = name.Code
		tg.MappedDescrip = name.Descrip
	}
	return tg
}
