package attribution

// Metric is the usage payload posted to the attribution service. Field
// names follow the service's wire contract.
type Metric struct {
	Version            string   `json:"O3DEVersion"`
	Platform           string   `json:"Platform"`
	PlatformSubvariant string   `json:"PlatformSubvariant,omitempty"`
	ActiveGems         []string `json:"ActiveGems"`
}

// SetPlatform records the host platform and optional subvariant.
func (m *Metric) SetPlatform(platform, subvariant string) {
	m.Platform = platform
	m.PlatformSubvariant = subvariant
}

// AddActiveGem appends one gem name to the reported set.
func (m *Metric) AddActiveGem(name string) {
	m.ActiveGems = append(m.ActiveGems, name)
}
