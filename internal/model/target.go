package model

// TargetConfig is the stored configuration of a scanned target. It is the
// base document of an exported report.
type TargetConfig struct {
	ID             int64    `json:"id"`
	TargetURL      string   `json:"target_url"`
	HostIP         string   `json:"host_ip"`
	PortNumber     string   `json:"port_number"`
	URLScheme      string   `json:"url_scheme"`
	AlternativeIPs []string `json:"alternative_ips"`
	HostName       string   `json:"host_name"`
	HostPath       string   `json:"host_path"`
	IPURL          string   `json:"ip_url"`
	TopDomain      string   `json:"top_domain"`
	TopURL         string   `json:"top_url"`
	Scope          bool     `json:"scope"`
	MaxUserRank    int      `json:"max_user_rank"`
	MaxOWTFRank    int      `json:"max_owtf_rank"`
}

// TimeLayout is the format of Report.Time.
const TimeLayout = "2006-01-02 15:04:05"

// Report is a target configuration merged with grouped findings.
type Report struct {
	TargetConfig
	Vulnerabilities []TestGroup `json:"vulnerabilities"`
	Time            string      `json:"time"`
}
