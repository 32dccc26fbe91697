package artifact

// Provider declares a named capability an artifact definition may supply,
// e.g. the system codepage or the %SystemRoot% environment variable.
type Provider struct {
	Name        string
	Description string
	URLs        []string
}

// NewProvider returns a provider with no URLs.
func NewProvider(name, description string) *Provider {
	return &Provider{Name: name, Description: description, URLs: []string{}}
}
